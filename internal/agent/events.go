package agent

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// EventKind discriminates the JSON lines emitted by the assistant CLI in
// stream-json mode.
type EventKind string

const (
	KindSystemInit   EventKind = "system_init"
	KindAssistant    EventKind = "assistant"
	KindResult       EventKind = "result"
	KindUnrecognized EventKind = "unrecognized"
)

const bashFingerprintLen = 40

// StreamEvent is the decoded form of one stream-json line. Only the fields
// relevant to the kind are populated.
type StreamEvent struct {
	Kind      EventKind
	SessionID string
	Model     string

	// Assistant message content, in arrival order.
	TextBlocks []string
	ToolUses   []ToolUse

	// Result fields.
	Subtype      string
	IsError      bool
	ResultText   string
	CostUSD      float64
	DurationMS   int64
	InputTokens  int64
	OutputTokens int64
	Errors       []string

	Raw string
}

// ToolUse is one tool invocation reported by the assistant.
type ToolUse struct {
	Name  string
	Input map[string]any
}

// Fingerprint produces a short human-readable hint of what the tool touched:
// the base name of the file for file tools, a command prefix for Bash.
func (t ToolUse) Fingerprint() string {
	switch t.Name {
	case "Read", "Write", "Edit", "Create":
		if p, ok := t.Input["file_path"].(string); ok && p != "" {
			return filepath.Base(p)
		}
	case "Bash":
		if cmd, ok := t.Input["command"].(string); ok {
			cmd = strings.TrimSpace(cmd)
			if runes := []rune(cmd); len(runes) > bashFingerprintLen {
				return string(runes[:bashFingerprintLen])
			}
			return cmd
		}
	}
	return ""
}

// wireEvent mirrors the CLI's stream-json line schema.
type wireEvent struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`

	Message *struct {
		Content []struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		} `json:"content"`
	} `json:"message"`

	TotalCostUSD float64  `json:"total_cost_usd"`
	DurationMS   int64    `json:"duration_ms"`
	Errors       []string `json:"errors"`
	Usage        *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// DecodeEvent parses one stream-json line. Lines that are not valid JSON or
// carry an unknown type decode to KindUnrecognized rather than an error so a
// noisy stream never aborts a run.
func DecodeEvent(line string) StreamEvent {
	ev := StreamEvent{Kind: KindUnrecognized, Raw: line}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return ev
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
		return ev
	}

	switch w.Type {
	case "system":
		if w.Subtype != "init" {
			return ev
		}
		ev.Kind = KindSystemInit
		ev.SessionID = w.SessionID
		ev.Model = w.Model

	case "assistant":
		ev.Kind = KindAssistant
		ev.SessionID = w.SessionID
		if w.Message != nil {
			for _, block := range w.Message.Content {
				switch block.Type {
				case "text":
					ev.TextBlocks = append(ev.TextBlocks, block.Text)
				case "tool_use":
					if block.Name != "" {
						ev.ToolUses = append(ev.ToolUses, ToolUse{
							Name:  block.Name,
							Input: block.Input,
						})
					}
				}
			}
		}

	case "result":
		ev.Kind = KindResult
		ev.Subtype = w.Subtype
		ev.SessionID = w.SessionID
		ev.IsError = w.IsError
		ev.ResultText = w.Result
		ev.CostUSD = w.TotalCostUSD
		ev.DurationMS = w.DurationMS
		ev.Errors = w.Errors
		if w.Usage != nil {
			ev.InputTokens = w.Usage.InputTokens
			ev.OutputTokens = w.Usage.OutputTokens
		}

	default:
		return ev
	}

	return ev
}
