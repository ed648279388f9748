package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeFakeAssistant drops an executable shell script that plays the
// assistant CLI: it emits the given stream-json lines and then runs a
// trailing shell fragment.
func writeFakeAssistant(t *testing.T, lines []string, trailer string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	for _, line := range lines {
		b.WriteString("echo '" + line + "'\n")
	}
	if trailer != "" {
		b.WriteString(trailer + "\n")
	}
	path := filepath.Join(t.TempDir(), "fake-assistant")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o755))
	return path
}

func testExecutor() *Executor {
	return NewExecutor("claude", "/tmp", 10, 0, zap.NewNop())
}

func consume(t *testing.T, lines ...string) ExecutionResult {
	t.Helper()
	e := testExecutor()
	return e.consumeStream(strings.NewReader(strings.Join(lines, "\n")), nil)
}

func TestConsumeStreamFirstInitWins(t *testing.T) {
	result := consume(t,
		`{"type":"system","subtype":"init","session_id":"sess-1","model":"model-a"}`,
		`{"type":"system","subtype":"init","session_id":"sess-2","model":"model-b"}`,
	)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, "model-a", result.Model)
}

func TestConsumeStreamAppendsTextInOrder(t *testing.T) {
	result := consume(t,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Hello "}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"world"}]}}`,
	)
	assert.Equal(t, "Hello world", result.Output)
}

func TestConsumeStreamToolOrderPreservingSet(t *testing.T) {
	result := consume(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a/b/main.go"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"go test ./..."}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/a/b/other.go"}}]}}`,
	)
	assert.Equal(t, []string{"Read", "Bash"}, result.ToolsUsed)
}

func TestConsumeStreamProgressLines(t *testing.T) {
	e := testExecutor()
	var got []string
	stream := strings.Join([]string{
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"file_path":"/src/main.go"}}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash","input":{"command":"ls -la"}}]}}`,
	}, "\n")

	e.consumeStream(strings.NewReader(stream), func(line string) {
		got = append(got, line)
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Read: main.go (step 1)", got[0])
	assert.Equal(t, "Bash: ls -la (step 2)", got[1])
}

func TestConsumeStreamSkipsMalformedLines(t *testing.T) {
	result := consume(t,
		`{"type":"system","subtype":"init","session_id":"sess-1"}`,
		`this is not json at all`,
		`{"broken json`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"ok"}]}}`,
	)
	assert.Equal(t, "sess-1", result.SessionID)
	assert.Equal(t, "ok", result.Output)
}

func TestConsumeStreamResultFields(t *testing.T) {
	result := consume(t,
		`{"type":"result","subtype":"success","session_id":"sess-9","total_cost_usd":0.042,"duration_ms":1234,"usage":{"input_tokens":100,"output_tokens":250}}`,
	)
	assert.Equal(t, "sess-9", result.SessionID)
	assert.InDelta(t, 0.042, result.CostUSD, 1e-9)
	assert.Equal(t, int64(1234), result.DurationMS)
	assert.Equal(t, int64(100), result.InputTokens)
	assert.Equal(t, int64(250), result.OutputTokens)
}

func TestConsumeStreamInitSessionBeatsResultFallback(t *testing.T) {
	result := consume(t,
		`{"type":"system","subtype":"init","session_id":"from-init"}`,
		`{"type":"result","subtype":"success","session_id":"from-result"}`,
	)
	assert.Equal(t, "from-init", result.SessionID)
}

func TestDecodeEventUnknownType(t *testing.T) {
	ev := DecodeEvent(`{"type":"something_else"}`)
	assert.Equal(t, KindUnrecognized, ev.Kind)
}

func TestDecodeEventSystemNonInit(t *testing.T) {
	ev := DecodeEvent(`{"type":"system","subtype":"other"}`)
	assert.Equal(t, KindUnrecognized, ev.Kind)
}

func TestFingerprintFileTools(t *testing.T) {
	for _, name := range []string{"Read", "Write", "Edit", "Create"} {
		tu := ToolUse{Name: name, Input: map[string]any{"file_path": "/deep/path/to/file.txt"}}
		assert.Equal(t, "file.txt", tu.Fingerprint(), name)
	}
}

func TestFingerprintBashTruncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	tu := ToolUse{Name: "Bash", Input: map[string]any{"command": long}}
	assert.Equal(t, long[:40], tu.Fingerprint())
}

func TestFingerprintBashMultibyteCommand(t *testing.T) {
	long := strings.Repeat("ñ", 60)
	tu := ToolUse{Name: "Bash", Input: map[string]any{"command": long}}
	fp := tu.Fingerprint()
	assert.Equal(t, strings.Repeat("ñ", 40), fp)
}

func TestFingerprintUnknownToolEmpty(t *testing.T) {
	tu := ToolUse{Name: "Grep", Input: map[string]any{"pattern": "foo"}}
	assert.Equal(t, "", tu.Fingerprint())
}

func TestFailureMessagePrefersStderr(t *testing.T) {
	e := testExecutor()
	msg := e.failureMessage(nil, "boom from stderr\n", []StreamEvent{
		{Kind: KindResult, Subtype: "error_during_execution", Errors: []string{"event error"}},
	})
	assert.Equal(t, "boom from stderr", msg)
}

func TestFailureMessageFallsBackToResultEvent(t *testing.T) {
	e := testExecutor()
	msg := e.failureMessage(nil, "", []StreamEvent{
		{Kind: KindResult, Subtype: "error_during_execution", Errors: []string{"first", "second"}},
	})
	assert.Equal(t, "first", msg)
}

func TestFailureMessageUnknown(t *testing.T) {
	e := testExecutor()
	assert.Equal(t, "unknown error", e.failureMessage(nil, "", nil))
}

func TestExecuteEmptyPrompt(t *testing.T) {
	e := testExecutor()
	result := e.Execute(context.Background(), Request{Prompt: "   "})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestExecuteCollectsStreamFromSubprocess(t *testing.T) {
	bin := writeFakeAssistant(t, []string{
		`{"type":"system","subtype":"init","session_id":"sess-7","model":"model-x"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"all done"}]}}`,
	}, "")
	e := NewExecutor(bin, t.TempDir(), 10, 30*time.Second, zap.NewNop())

	result := e.Execute(context.Background(), Request{Prompt: "hello"})

	assert.True(t, result.Success)
	assert.Equal(t, "all done", result.Output)
	assert.Equal(t, "sess-7", result.SessionID)
}

// A hung run must end at the deadline even when the assistant has spawned
// its own children holding the stdout pipe open.
func TestExecuteTimeoutKillsProcessTree(t *testing.T) {
	bin := writeFakeAssistant(t, []string{
		`{"type":"assistant","message":{"content":[{"type":"text","text":"partial "}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"answer"}]}}`,
	}, "sleep 30")
	e := NewExecutor(bin, t.TempDir(), 10, 2*time.Second, zap.NewNop())

	start := time.Now()
	result := e.Execute(context.Background(), Request{Prompt: "hang forever"})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Second, "run must not outlive the deadline by the sleep duration")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out")
	assert.Equal(t, "partial answer", result.Output)
}
