package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the bot. Values come from the
// environment (optionally a .env file); secrets may also come from the system
// keyring, resolved later by the keyring service.
type Config struct {
	// BotToken authenticates the chat transport. Optional for the console
	// transport.
	BotToken string

	// TranscribeKey is the speech-to-text API key.
	TranscribeKey string

	// AgentBin is the assistant executable invoked per turn.
	AgentBin string

	// Workspace is the working directory the assistant operates in when no
	// repository is linked.
	Workspace string

	// Timeout bounds a single assistant run, wall clock.
	Timeout time.Duration

	// MaxTurns caps assistant-internal turns per run.
	MaxTurns int

	// SessionsDir is the root under which the assistant persists one
	// directory per session.
	SessionsDir string

	// DBPath is the SQLite database file for conversation state.
	DBPath string

	// RetentionDays is the cleanup threshold for old session artifacts.
	RetentionDays int

	// AllowedUsers is the authorization allow-list. Empty means unrestricted.
	AllowedUsers []int64

	// RejectResetsWorktree makes a rejected change hard-reset the worktree
	// instead of leaving uncommitted modifications in place.
	RejectResetsWorktree bool

	// GitHubToken is used for authenticated clones of linked repositories.
	GitHubToken string
}

const (
	defaultAgentBin      = "claude"
	defaultWorkspace     = "/workspace"
	defaultTimeout       = time.Hour
	defaultMaxTurns      = 10
	defaultRetentionDays = 30
)

// Load reads .env (if present) and builds a Config from the environment.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:      os.Getenv("CODEVOX_BOT_TOKEN"),
		TranscribeKey: os.Getenv("CODEVOX_TRANSCRIBE_KEY"),
		AgentBin:      envDefault("CODEVOX_AGENT_BIN", defaultAgentBin),
		Workspace:     envDefault("CODEVOX_WORKSPACE", defaultWorkspace),
		Timeout:       defaultTimeout,
		MaxTurns:      defaultMaxTurns,
		SessionsDir:   envDefault("CODEVOX_SESSIONS_DIR", defaultSessionsDir()),
		DBPath:        envDefault("CODEVOX_DB_PATH", "codevox.db"),
		RetentionDays: defaultRetentionDays,
		GitHubToken:   os.Getenv("CODEVOX_GITHUB_TOKEN"),
	}

	if v := os.Getenv("CODEVOX_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid CODEVOX_TIMEOUT_SECONDS: %q", v)
		}
		cfg.Timeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("CODEVOX_MAX_TURNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CODEVOX_MAX_TURNS: %q", v)
		}
		cfg.MaxTurns = n
	}

	if v := os.Getenv("CODEVOX_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CODEVOX_RETENTION_DAYS: %q", v)
		}
		cfg.RetentionDays = n
	}

	if v := os.Getenv("CODEVOX_REJECT_RESET"); v != "" {
		cfg.RejectResetsWorktree = v == "1" || strings.EqualFold(v, "true")
	}

	users, err := ParseAllowedUsers(os.Getenv("CODEVOX_ALLOWED_USERS"))
	if err != nil {
		return nil, err
	}
	cfg.AllowedUsers = users

	return cfg, nil
}

// ParseAllowedUsers parses a comma-separated list of numeric user ids.
func ParseAllowedUsers(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var users []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CODEVOX_ALLOWED_USERS entry %q: %w", part, err)
		}
		users = append(users, id)
	}
	return users, nil
}

// Allowed reports whether userID passes the allow-list. An empty list allows
// everyone; callers should have warned about that at startup.
func (c *Config) Allowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sessions")
	}
	return filepath.Join(home, ".claude", "projects")
}
