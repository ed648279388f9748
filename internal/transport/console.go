package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Console is a line-oriented transport for running the bot locally without
// any chat network. Every line typed is delivered as text from a single
// fixed user; lines starting with "cb " are delivered as callbacks so the
// approval buttons can be exercised.
type Console struct {
	userID int64
	out    io.Writer
	mu     sync.Mutex
	nextID int64
}

func NewConsole(userID int64, out io.Writer) *Console {
	return &Console{userID: userID, out: out}
}

func (c *Console) Send(userID int64, text string, kb *Keyboard) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := atomic.AddInt64(&c.nextID, 1)
	fmt.Fprintf(c.out, "[bot #%d]\n%s\n", id, text)
	if kb != nil {
		for _, row := range kb.Rows {
			for _, b := range row {
				fmt.Fprintf(c.out, "  [%s] -> cb %s\n", b.Label, b.Data)
			}
		}
	}
	return MessageRef{ChatID: userID, MessageID: id}, nil
}

func (c *Console) Edit(ref MessageRef, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[bot #%d edit]\n%s\n", ref.MessageID, text)
	return nil
}

func (c *Console) AnswerCallback(callbackID, text string) error {
	if text == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[callback ack] %s\n", text)
	return nil
}

// Listen reads lines from r until EOF, delivering each as an Incoming to
// handle. It blocks.
func (c *Console) Listen(r io.Reader, handle func(Incoming)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		in := Incoming{UserID: c.userID}
		if data, ok := strings.CutPrefix(line, "cb "); ok {
			in.Callback = data
			in.CallbackID = "console"
		} else {
			in.Text = line
		}
		handle(in)
	}
}
