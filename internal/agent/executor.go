package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// PlaceholderOutput is returned when a run used tools but produced no text.
const PlaceholderOutput = "task completed, no text output"

// maxLineSize caps a single stream-json line; tool results can be large.
const maxLineSize = 1024 * 1024

// reapGrace bounds how long Wait keeps the stdout pipe open after the run
// context is cancelled.
const reapGrace = 5 * time.Second

// ProgressFunc receives one human-readable line per tool invocation, in
// arrival order.
type ProgressFunc func(line string)

// ExecutionResult is the outcome of one assistant run. Success requires a
// clean exit and either textual output or at least one tool use.
type ExecutionResult struct {
	Success      bool
	Output       string
	Error        string
	SessionID    string
	Model        string
	CostUSD      float64
	DurationMS   int64
	InputTokens  int64
	OutputTokens int64
	ToolsUsed    []string
	RawEvents    []StreamEvent
}

// Executor runs the assistant CLI as a subprocess and turns its stream-json
// output into an ExecutionResult.
type Executor struct {
	bin      string
	workDir  string
	maxTurns int
	timeout  time.Duration
	logger   *zap.Logger
}

func NewExecutor(bin, workDir string, maxTurns int, timeout time.Duration, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		bin:      bin,
		workDir:  workDir,
		maxTurns: maxTurns,
		timeout:  timeout,
		logger:   logger,
	}
}

// Request describes one assistant run.
type Request struct {
	Prompt    string
	SessionID *string
	// WorkDir overrides the executor's default working directory, used when
	// a conversation is bound to a repository checkout.
	WorkDir string
}

// Execute runs a single prompt without progress reporting.
func (e *Executor) Execute(ctx context.Context, req Request) ExecutionResult {
	return e.ExecuteStreaming(ctx, req, nil)
}

// ExecuteStreaming runs a single prompt, invoking onProgress once per tool
// use. The result is always populated; subprocess failures are reported in
// Result.Error rather than a Go error so partial output survives.
func (e *Executor) ExecuteStreaming(ctx context.Context, req Request, onProgress ProgressFunc) ExecutionResult {
	if strings.TrimSpace(req.Prompt) == "" {
		return ExecutionResult{Error: "prompt cannot be empty"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := []string{
		"-p", req.Prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--max-turns", strconv.Itoa(e.maxTurns),
	}
	if req.SessionID != nil && *req.SessionID != "" {
		args = append(args, "--resume", *req.SessionID)
	}

	cmd := exec.CommandContext(runCtx, e.bin, args...)
	cmd.Dir = e.workDir
	if req.WorkDir != "" {
		cmd.Dir = req.WorkDir
	}

	// The assistant spawns its own children (shell commands, tools); they
	// inherit the stdout pipe and would keep the stream open past a
	// timeout. Run the whole tree in its own process group and kill the
	// group, not just the direct child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = reapGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ExecutionResult{Error: fmt.Sprintf("stdout pipe: %v", err)}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Info("starting assistant run",
		zap.String("bin", e.bin),
		zap.Bool("resume", req.SessionID != nil && *req.SessionID != ""),
		zap.Int("max_turns", e.maxTurns))

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExecutionResult{Error: fmt.Sprintf("start %s: %v", e.bin, err)}
	}

	result := e.consumeStream(stdout, onProgress)

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.Error = fmt.Sprintf("timed out after %s", e.timeout)
		e.logger.Warn("assistant run timed out",
			zap.Duration("timeout", e.timeout),
			zap.Int("tools_used", len(result.ToolsUsed)))
		return result
	}

	if waitErr != nil {
		result.Success = false
		result.Error = e.failureMessage(waitErr, stderr.String(), result.RawEvents)
		e.logger.Error("assistant run failed",
			zap.String("error", result.Error),
			zap.Duration("elapsed", time.Since(start)))
		return result
	}

	result.Success = result.Output != "" || len(result.ToolsUsed) > 0
	if result.Success && result.Output == "" {
		result.Output = PlaceholderOutput
	}
	if !result.Success && result.Error == "" {
		result.Error = "assistant produced no output"
	}

	e.logger.Info("assistant run finished",
		zap.Bool("success", result.Success),
		zap.String("session_id", result.SessionID),
		zap.Int("tools_used", len(result.ToolsUsed)),
		zap.Float64("cost_usd", result.CostUSD),
		zap.Duration("elapsed", time.Since(start)))
	return result
}

// consumeStream drains stream-json lines from r, building up the result.
// Factored off the subprocess so parsing can be driven from any reader.
func (e *Executor) consumeStream(r io.Reader, onProgress ProgressFunc) ExecutionResult {
	var result ExecutionResult
	var output strings.Builder
	seen := make(map[string]bool)
	step := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		ev := DecodeEvent(line)
		result.RawEvents = append(result.RawEvents, ev)

		switch ev.Kind {
		case KindSystemInit:
			// First init wins; a resumed run may re-announce.
			if result.SessionID == "" {
				result.SessionID = ev.SessionID
			}
			if result.Model == "" {
				result.Model = ev.Model
			}

		case KindAssistant:
			for _, text := range ev.TextBlocks {
				output.WriteString(text)
			}
			for _, tool := range ev.ToolUses {
				if !seen[tool.Name] {
					seen[tool.Name] = true
					result.ToolsUsed = append(result.ToolsUsed, tool.Name)
				}
				step++
				if onProgress != nil {
					onProgress(progressLine(tool, step))
				}
			}

		case KindResult:
			result.CostUSD = ev.CostUSD
			result.DurationMS = ev.DurationMS
			result.InputTokens = ev.InputTokens
			result.OutputTokens = ev.OutputTokens
			if result.SessionID == "" {
				result.SessionID = ev.SessionID
			}

		case KindUnrecognized:
			e.logger.Warn("skipping unrecognized stream line",
				zap.String("line", truncateForLog(line)))
		}
	}
	if err := scanner.Err(); err != nil {
		e.logger.Warn("stream read ended early", zap.Error(err))
	}

	result.Output = strings.TrimSpace(output.String())
	return result
}

// failureMessage picks the most specific error description available:
// stderr first, then a terminal error result event, then the exit status.
func (e *Executor) failureMessage(waitErr error, stderr string, events []StreamEvent) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return msg
	}
	for _, ev := range events {
		if ev.Kind == KindResult && ev.Subtype == "error_during_execution" {
			if len(ev.Errors) > 0 {
				return ev.Errors[0]
			}
			if ev.ResultText != "" {
				return ev.ResultText
			}
		}
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return fmt.Sprintf("unknown error (exit status %d)", exitErr.ExitCode())
	}
	return "unknown error"
}

func progressLine(tool ToolUse, step int) string {
	fp := tool.Fingerprint()
	if fp == "" {
		return fmt.Sprintf("%s (step %d)", tool.Name, step)
	}
	return fmt.Sprintf("%s: %s (step %d)", tool.Name, fp, step)
}

func truncateForLog(s string) string {
	const max = 200
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
