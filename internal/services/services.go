package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"codevox/internal/config"
	"codevox/internal/repositories"
)

// Services aggregates the domain services the app layer depends on.
type Services struct {
	Conversations ConversationService
	Approvals     ApprovalService
	Git           GitService
	Sessions      SessionIndexService
	Transcription TranscriptionService
	Keyring       *KeyringService
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *Services {
	conversationRepo := repositories.NewConversationRepository(db)

	keyring := NewKeyringService()
	git := NewGitService(logger)

	transcribeKey := cfg.TranscribeKey
	if transcribeKey == "" {
		transcribeKey = keyring.GetSecret("transcribe-key", "CODEVOX_TRANSCRIBE_KEY")
	}
	if cfg.BotToken == "" {
		cfg.BotToken = keyring.GetSecret("bot-token", "CODEVOX_BOT_TOKEN")
	}

	return &Services{
		Conversations: NewConversationService(conversationRepo, logger),
		Approvals:     NewApprovalService(conversationRepo, git, cfg.RejectResetsWorktree, logger),
		Git:           git,
		Sessions:      NewSessionIndexService(cfg.SessionsDir, logger),
		Transcription: NewTranscriptionService(transcribeKey, logger),
		Keyring:       keyring,
	}
}
