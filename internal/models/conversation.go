package models

import (
	"encoding/json"
	"time"
)

// ChangeState is the lifecycle state of a proposed change.
type ChangeState string

const (
	ChangePending  ChangeState = "pending"
	ChangeApproved ChangeState = "approved"
	ChangeRejected ChangeState = "rejected"
)

// PromptExcerptLen bounds the prompt excerpt stored in history entries and
// embedded in commit messages.
const PromptExcerptLen = 100

// HistoryLimit bounds the per-user approval history.
const HistoryLimit = 20

// ConversationContext is the persisted per-user conversational state. One row
// per chat user; mutated only by that user's own requests.
type ConversationContext struct {
	UserID    int64 `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// SessionID is the assistant-assigned conversation token. Nil means the
	// next run starts fresh.
	SessionID *string `gorm:"size:128"`

	TurnCount    uint
	LastActiveAt time.Time

	// RepoSlug/RepoPath bind the conversation to a repository checkout.
	RepoSlug string `gorm:"size:256"`
	RepoPath string `gorm:"size:512"`

	// LastPrompt and LastTranscription support the retry action.
	LastPrompt        string
	LastTranscription string

	PendingChange *PendingChange `gorm:"foreignKey:UserID;references:UserID"`
	History       []HistoryEntry `gorm:"foreignKey:UserID;references:UserID"`
}

// HasRepo reports whether a repository is bound to this conversation.
func (c *ConversationContext) HasRepo() bool {
	return c.RepoSlug != "" && c.RepoPath != ""
}

// PendingChange is a proposed modification awaiting a human decision. At most
// one row exists per user; a new proposal replaces any existing one.
type PendingChange struct {
	ID        uint  `gorm:"primaryKey"`
	UserID    int64 `gorm:"uniqueIndex"`
	ChangeID  string
	State     ChangeState `gorm:"size:16"`
	Prompt    string
	Output    string
	ToolsJSON string
	SessionID *string `gorm:"size:128"`
	CreatedAt time.Time
	DecidedAt *time.Time
}

// Tools decodes the tools-used list. Order is first-seen order from the run.
func (p *PendingChange) Tools() []string {
	if p.ToolsJSON == "" {
		return nil
	}
	var tools []string
	if err := json.Unmarshal([]byte(p.ToolsJSON), &tools); err != nil {
		return nil
	}
	return tools
}

// SetTools encodes the tools-used list.
func (p *PendingChange) SetTools(tools []string) {
	if len(tools) == 0 {
		p.ToolsJSON = ""
		return
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return
	}
	p.ToolsJSON = string(data)
}

// HistoryEntry is one decided change in a user's approval history.
type HistoryEntry struct {
	ID            uint  `gorm:"primaryKey"`
	UserID        int64 `gorm:"index"`
	ChangeID      string
	State         ChangeState `gorm:"size:16"`
	Timestamp     time.Time
	PromptExcerpt string `gorm:"size:100"`
}
