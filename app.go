package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yargevad/filepathx"
	"go.uber.org/zap"

	"codevox/internal/agent"
	"codevox/internal/config"
	"codevox/internal/events"
	"codevox/internal/format"
	"codevox/internal/services"
	"codevox/internal/transport"
	"codevox/internal/utils"
)

const helpText = `Send me a text or voice message and I'll run it through the coding assistant.

Commands:
/info - conversation state
/status - pending change
/repo show|link <owner/repo> <path>|clear - repository binding
/newsession - start a fresh assistant session
/compact - reset the turn counter, keep the session
/clear - reset the whole conversation
/workspace - list files in the working directory
/sessions - list stored assistant sessions
/sessioninfo <id> - one session's details
/cleansessions - delete sessions past retention
/gitinit /gitstatus /gitdiff /gitlog - repository inspection
/commit <message> - commit the worktree`

// App routes incoming transport updates to the services. One instance serves
// all users; per-user state lives in the database.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *services.Services
	executor  *agent.Executor
	messenger transport.Messenger
	formatter *format.Formatter

	userLocks sync.Map
}

func NewApp(cfg *config.Config, logger *zap.Logger, svc *services.Services, executor *agent.Executor, messenger transport.Messenger) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		svc:       svc,
		executor:  executor,
		messenger: messenger,
		formatter: format.NewFormatter(format.DefaultUnitLimit),
	}
}

// HandleUpdate is the single entry point for every transport update. It
// authorizes, serializes per user, dispatches, and converts any error into
// one bounded user-facing message.
func (a *App) HandleUpdate(ctx context.Context, in transport.Incoming) {
	if !a.cfg.Allowed(in.UserID) {
		a.logger.Warn("unauthorized update dropped", zap.Int64("user_id", in.UserID))
		a.reply(in.UserID, services.UserMessage(services.ErrUnauthorized))
		return
	}

	lock := a.lockFor(in.UserID)
	lock.Lock()
	defer lock.Unlock()

	var err error
	switch {
	case in.Callback != "":
		err = a.handleCallback(ctx, in)
	case len(in.Voice) > 0:
		err = a.handleVoice(ctx, in.UserID, in.Voice)
	case in.Text != "":
		err = a.handleText(ctx, in.UserID, in.Text)
	}

	if err != nil {
		a.logger.Error("handler failed",
			zap.Int64("user_id", in.UserID),
			zap.String("text", format.Truncate(in.Text, 80)),
			zap.String("callback", in.Callback),
			zap.Error(err))
		a.reply(in.UserID, format.FormatError(services.UserMessage(err)))
	}
}

func (a *App) lockFor(userID int64) *sync.Mutex {
	v, _ := a.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (a *App) handleText(ctx context.Context, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return a.runAssistant(ctx, userID, text)
	}

	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/start":
		a.reply(userID, "👋 Ready. "+helpText)
		return nil
	case "/help":
		a.reply(userID, helpText)
		return nil
	case "/info":
		return a.cmdInfo(ctx, userID)
	case "/status":
		return a.cmdStatus(ctx, userID)
	case "/newsession":
		return a.cmdNewSession(ctx, userID)
	case "/compact":
		return a.cmdCompact(ctx, userID)
	case "/clear":
		return a.cmdClear(ctx, userID)
	case "/workspace":
		return a.cmdWorkspace(ctx, userID)
	case "/sessions":
		return a.cmdSessions(userID)
	case "/sessioninfo":
		return a.cmdSessionInfo(userID, args)
	case "/cleansessions":
		removed := a.svc.Sessions.CleanupOlderThan(a.cfg.RetentionDays, "")
		a.reply(userID, fmt.Sprintf("Removed %d session(s) older than %d days.", removed, a.cfg.RetentionDays))
		return nil
	case "/repo":
		return a.cmdRepo(ctx, userID, args)
	case "/gitinit":
		return a.cmdGitInit(ctx, userID)
	case "/gitstatus":
		return a.cmdGitStatus(ctx, userID)
	case "/gitdiff":
		return a.cmdGitDiff(ctx, userID)
	case "/gitlog":
		return a.cmdGitLog(ctx, userID)
	case "/commit":
		return a.cmdCommit(ctx, userID, args)
	default:
		a.reply(userID, "Unknown command. "+helpText)
		return nil
	}
}

func (a *App) handleVoice(ctx context.Context, userID int64, ogg []byte) error {
	wav, err := a.svc.Transcription.ConvertOggToWav(ctx, ogg)
	if err != nil {
		return err
	}
	transcript, err := a.svc.Transcription.Transcribe(ctx, wav)
	if err != nil {
		return err
	}
	if err := a.svc.Conversations.RecordTranscription(ctx, userID, transcript.Text); err != nil {
		a.logger.Warn("record transcription failed", zap.Error(err))
	}

	ev := events.NewInfo(userID, "voice message transcribed")
	a.logger.Info("voice message transcribed",
		zap.String("event_id", ev.ID),
		zap.Float64("confidence", transcript.Confidence))

	a.reply(userID, "🎤 "+transcript.Text)
	return a.runAssistant(ctx, userID, transcript.Text)
}

// runAssistant is the main flow: resolve the session, stream the run with
// progress edits, then either propose a change or deliver the output.
func (a *App) runAssistant(ctx context.Context, userID int64, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: empty prompt", services.ErrInvalidInput)
	}
	if err := a.svc.Conversations.RecordPrompt(ctx, userID, prompt); err != nil {
		a.logger.Warn("record prompt failed", zap.Error(err))
	}

	sessionID, turn, err := a.svc.Conversations.ResolveOrCreateTurn(ctx, userID)
	if err != nil {
		return err
	}
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return err
	}

	req := agent.Request{Prompt: prompt, SessionID: sessionID}
	if conv.HasRepo() {
		req.WorkDir = conv.RepoPath
		req.Prompt = fmt.Sprintf("Working in repository %s.\n\n%s", conv.RepoSlug, prompt)
	}

	tracker := format.NewProgressTracker()
	statusRef, sendErr := a.messenger.Send(userID, tracker.Render(), nil)
	if sendErr != nil {
		a.logger.Warn("progress message send failed", zap.Error(sendErr))
	}

	result := a.executor.ExecuteStreaming(ctx, req, func(line string) {
		ev := events.NewToolUse(userID, line)
		a.logger.Debug("assistant progress",
			zap.String("event_id", ev.ID),
			zap.String("step", ev.Message))
		tracker.Add(line)
		if sendErr == nil && tracker.ShouldEdit(time.Now()) {
			if err := a.messenger.Edit(statusRef, tracker.Render()); err != nil {
				a.logger.Debug("progress edit failed", zap.Error(err))
			}
		}
	})

	if result.SessionID != "" {
		if err := a.svc.Conversations.RecordSessionID(ctx, userID, result.SessionID); err != nil {
			a.logger.Warn("record session id failed", zap.Error(err))
		}
	}

	if !result.Success {
		ev := events.NewError(userID, result.Error)
		a.logger.Error("assistant run unsuccessful",
			zap.Int64("user_id", userID),
			zap.Uint("turn", turn),
			zap.String("event_id", ev.ID),
			zap.String("error", result.Error))
		if _, err := a.messenger.Send(userID,
			format.FormatError("Assistant failed: "+format.Truncate(result.Error, 300)),
			&transport.Keyboard{Rows: [][]transport.Button{{
				{Label: "🔄 Retry", Data: "action:retry"},
			}}}); err != nil {
			a.logger.Error("send failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return nil
	}

	done := events.NewDone(userID, fmt.Sprintf("run finished, %d tool(s)", len(result.ToolsUsed)))
	a.logger.Info("assistant run delivered",
		zap.Int64("user_id", userID),
		zap.Uint("turn", turn),
		zap.String("event_id", done.ID))

	a.deliver(userID, result)

	// Every successful run becomes a pending change; approval decides
	// whether its worktree effects get committed.
	return a.proposeChange(ctx, userID, prompt, result)
}

func (a *App) proposeChange(ctx context.Context, userID int64, prompt string, result agent.ExecutionResult) error {
	var sessionID *string
	if result.SessionID != "" {
		sessionID = &result.SessionID
	}
	change, err := a.svc.Approvals.Propose(ctx, userID, prompt, result.Output, sessionID, result.ToolsUsed)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("🔧 Tools: %s\n\nApprove these changes?",
		format.FormatToolList(change.Tools()))
	if _, err := a.messenger.Send(userID, text, transport.ApprovalKeyboard()); err != nil {
		return fmt.Errorf("send approval card: %w", err)
	}
	return nil
}

func (a *App) deliver(userID int64, result agent.ExecutionResult) {
	for _, unit := range a.formatter.Split(result.Output) {
		a.reply(userID, unit)
	}
	if result.CostUSD > 0 {
		a.reply(userID, fmt.Sprintf("💰 $%.4f · %d in / %d out tokens · %s",
			result.CostUSD, result.InputTokens, result.OutputTokens,
			(time.Duration(result.DurationMS) * time.Millisecond).Round(time.Millisecond)))
	}
}

// handleCallback routes button presses as category:action[:param].
func (a *App) handleCallback(ctx context.Context, in transport.Incoming) error {
	defer func() {
		if err := a.messenger.AnswerCallback(in.CallbackID, ""); err != nil {
			a.logger.Debug("callback ack failed", zap.Error(err))
		}
	}()

	parts := strings.SplitN(in.Callback, ":", 3)
	if len(parts) < 2 {
		return fmt.Errorf("%w: malformed callback %q", services.ErrInvalidInput, in.Callback)
	}
	category, action := parts[0], parts[1]
	param := ""
	if len(parts) == 3 {
		param = parts[2]
	}

	switch category {
	case "action":
		switch action {
		case "approve":
			return a.decide(ctx, in.UserID, services.OutcomeApprove)
		case "reject":
			return a.decide(ctx, in.UserID, services.OutcomeReject)
		case "retry":
			return a.retry(ctx, in.UserID)
		}
	case "confirm":
		if action == "clear" {
			return a.doClear(ctx, in.UserID)
		}
	case "cancel":
		a.reply(in.UserID, "Cancelled.")
		return nil
	case "git":
		switch action {
		case "status":
			return a.cmdGitStatus(ctx, in.UserID)
		case "diff":
			return a.cmdGitDiff(ctx, in.UserID)
		case "log":
			return a.cmdGitLog(ctx, in.UserID)
		}
	case "session":
		if action == "delete" && param != "" {
			if a.svc.Sessions.Delete(param) {
				a.reply(in.UserID, "Session deleted.")
			} else {
				a.reply(in.UserID, "Could not delete that session.")
			}
			return nil
		}
	}
	return fmt.Errorf("%w: unknown callback %q", services.ErrInvalidInput, in.Callback)
}

func (a *App) decide(ctx context.Context, userID int64, outcome services.Outcome) error {
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return err
	}

	// Unbound conversations run in the shared workspace; decisions apply
	// there.
	repoPath := conv.RepoPath
	if repoPath == "" {
		repoPath = a.cfg.Workspace
	}

	result, err := a.svc.Approvals.Decide(ctx, userID, outcome, repoPath)
	if err != nil {
		return err
	}

	switch {
	case outcome == services.OutcomeApprove && result.Applied:
		a.reply(userID, fmt.Sprintf("✅ Approved and committed (%s).", result.CommitHash[:8]))
	case outcome == services.OutcomeApprove && result.CommitError != nil:
		a.reply(userID, format.FormatError(fmt.Sprintf(
			"Approved, but the commit failed: %v. The changes are still in the worktree.", result.CommitError)))
	case outcome == services.OutcomeApprove:
		a.reply(userID, "✅ Approved. Nothing to commit.")
	case result.DirtyWorktree:
		if _, err := a.messenger.Send(userID,
			"❌ Rejected. The worktree still contains the changes.",
			&transport.Keyboard{Rows: [][]transport.Button{{
				{Label: "Status", Data: "git:status"},
				{Label: "Diff", Data: "git:diff"},
			}}}); err != nil {
			a.logger.Error("send failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	default:
		a.reply(userID, "❌ Rejected.")
	}
	return nil
}

func (a *App) retry(ctx context.Context, userID int64) error {
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(conv.LastPrompt) == "" {
		a.reply(userID, "Nothing to retry yet.")
		return nil
	}
	return a.runAssistant(ctx, userID, conv.LastPrompt)
}

func (a *App) cmdInfo(ctx context.Context, userID int64) error {
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Turns: %d\n", conv.TurnCount)
	if conv.SessionID != nil {
		fmt.Fprintf(&b, "Session: %s\n", *conv.SessionID)
	} else {
		b.WriteString("Session: none (next run starts fresh)\n")
	}
	if conv.HasRepo() {
		fmt.Fprintf(&b, "Repository: %s (%s)\n", conv.RepoSlug, conv.RepoPath)
	} else {
		b.WriteString("Repository: not linked\n")
	}
	if !conv.LastActiveAt.IsZero() {
		fmt.Fprintf(&b, "Last active: %s\n", conv.LastActiveAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "Decisions recorded: %d", len(conv.History))
	a.reply(userID, b.String())
	return nil
}

func (a *App) cmdStatus(ctx context.Context, userID int64) error {
	change, err := a.svc.Approvals.Pending(ctx, userID)
	if err != nil {
		a.reply(userID, "No pending change.")
		return nil
	}
	text := fmt.Sprintf("Pending change %s\nPrompt: %s\nTools: %s\n\nApprove?",
		change.ChangeID,
		format.Truncate(change.Prompt, 200),
		format.FormatToolList(change.Tools()))
	_, sendErr := a.messenger.Send(userID, text, transport.ApprovalKeyboard())
	return sendErr
}

func (a *App) cmdNewSession(ctx context.Context, userID int64) error {
	if err := a.svc.Conversations.Reset(ctx, userID); err != nil {
		return err
	}
	a.reply(userID, "Started a new session. The next message begins a fresh conversation.")
	return nil
}

func (a *App) cmdCompact(ctx context.Context, userID int64) error {
	if err := a.svc.Conversations.CompactTurns(ctx, userID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			a.reply(userID, "No active session to compact.")
			return nil
		}
		return err
	}
	a.reply(userID, "✅ Session compacted. Turn count reset.")
	return nil
}

// cmdWorkspace lists the working directory's files, skipping .git, capped
// at 50 entries.
func (a *App) cmdWorkspace(ctx context.Context, userID int64) error {
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return err
	}
	dir := a.cfg.Workspace
	if conv.HasRepo() {
		dir = conv.RepoPath
	}

	matches, err := filepathx.Glob(filepath.Join(dir, "**", "*"))
	if err != nil {
		return fmt.Errorf("read workspace %s: %w", dir, err)
	}

	var files []string
	for _, m := range matches {
		rel, relErr := filepath.Rel(dir, m)
		if relErr != nil {
			continue
		}
		if rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
			continue
		}
		if info, statErr := os.Stat(m); statErr != nil || info.IsDir() {
			continue
		}
		files = append(files, rel)
	}
	if len(files) == 0 {
		a.reply(userID, "📁 Workspace "+dir+" is empty. Send a prompt to create files.")
		return nil
	}
	sort.Strings(files)

	var b strings.Builder
	fmt.Fprintf(&b, "📁 Workspace %s\nTotal files: %d\n\n", dir, len(files))
	for i, f := range files {
		if i >= 50 {
			fmt.Fprintf(&b, "... and %d more", len(files)-i)
			break
		}
		b.WriteString("  " + f + "\n")
	}
	a.reply(userID, b.String())
	return nil
}

func (a *App) cmdClear(ctx context.Context, userID int64) error {
	if _, err := a.svc.Approvals.Pending(ctx, userID); err == nil {
		_, sendErr := a.messenger.Send(userID,
			"There is an undecided change. Clearing will discard it. Continue?",
			transport.ConfirmKeyboard("clear"))
		return sendErr
	}
	return a.doClear(ctx, userID)
}

func (a *App) doClear(ctx context.Context, userID int64) error {
	if err := a.svc.Conversations.Reset(ctx, userID); err != nil {
		return err
	}
	a.reply(userID, "Conversation cleared.")
	return nil
}

func (a *App) cmdSessions(userID int64) error {
	artifacts, err := a.svc.Sessions.List("")
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		a.reply(userID, "No stored sessions.")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d session(s):\n", len(artifacts))
	for i, s := range artifacts {
		if i >= 15 {
			fmt.Fprintf(&b, "... and %d more", len(artifacts)-i)
			break
		}
		fmt.Fprintf(&b, "• %s: %d files, %s, modified %s\n",
			s.ID, s.FileCount, humanSize(s.SizeBytes), s.ModifiedAt.Format("2006-01-02 15:04"))
	}
	a.reply(userID, b.String())
	return nil
}

func (a *App) cmdSessionInfo(userID int64, id string) error {
	if id == "" {
		a.reply(userID, "Usage: /sessioninfo <id>")
		return nil
	}
	s, err := a.svc.Sessions.Info(id)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Session %s\nFiles: %d\nSize: %s\nCreated: %s\nModified: %s",
		s.ID, s.FileCount, humanSize(s.SizeBytes),
		s.CreatedAt.Format(time.RFC1123), s.ModifiedAt.Format(time.RFC1123))
	_, sendErr := a.messenger.Send(userID, text, &transport.Keyboard{Rows: [][]transport.Button{{
		{Label: "🗑 Delete", Data: "session:delete:" + s.ID},
	}}})
	return sendErr
}

func (a *App) cmdRepo(ctx context.Context, userID int64, args string) error {
	sub, rest, _ := strings.Cut(args, " ")
	switch sub {
	case "", "show":
		conv, err := a.svc.Conversations.Get(ctx, userID)
		if err != nil {
			return err
		}
		if !conv.HasRepo() {
			a.reply(userID, "No repository linked. Use /repo link <owner/repo> <path>.")
			return nil
		}
		a.reply(userID, fmt.Sprintf("Linked to %s at %s.", conv.RepoSlug, conv.RepoPath))
		return nil
	case "link":
		slug, path, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok {
			a.reply(userID, "Usage: /repo link <owner/repo> <path>")
			return nil
		}
		path = strings.TrimSpace(path)
		if !utils.DirectoryExists(path) {
			return fmt.Errorf("%w: %s is not a directory", services.ErrInvalidInput, path)
		}
		if err := a.svc.Conversations.BindRepo(ctx, userID, slug, path); err != nil {
			return err
		}
		a.reply(userID, fmt.Sprintf("Linked %s. The session was reset for the new context.", slug))
		if !utils.HasGitRepo(path) {
			a.reply(userID, "Note: "+path+" is not a git repository yet. Use /gitinit to create one.")
		}
		return nil
	case "clear":
		if err := a.svc.Conversations.UnbindRepo(ctx, userID); err != nil {
			return err
		}
		a.reply(userID, "Repository unlinked.")
		return nil
	default:
		a.reply(userID, "Usage: /repo show|link <owner/repo> <path>|clear")
		return nil
	}
}

func (a *App) repoPath(ctx context.Context, userID int64) (string, error) {
	conv, err := a.svc.Conversations.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !conv.HasRepo() {
		return "", fmt.Errorf("%w: no repository linked, use /repo link first", services.ErrInvalidInput)
	}
	return conv.RepoPath, nil
}

func (a *App) cmdGitInit(ctx context.Context, userID int64) error {
	path, err := a.repoPath(ctx, userID)
	if err != nil {
		return err
	}
	if a.svc.Git.IsRepository(path) {
		a.reply(userID, "Already a git repository.")
		return nil
	}
	if err := a.svc.Git.Init(path); err != nil {
		return err
	}
	a.reply(userID, "Initialized empty repository.")
	return nil
}

func (a *App) cmdGitStatus(ctx context.Context, userID int64) error {
	path, err := a.repoPath(ctx, userID)
	if err != nil {
		return err
	}
	status, err := a.svc.Git.Status(path)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "On branch %s", status.Branch)
	if status.Ahead > 0 || status.Behind > 0 {
		fmt.Fprintf(&b, " (%d ahead, %d behind)", status.Ahead, status.Behind)
	}
	b.WriteString("\n")
	if status.IsClean() {
		b.WriteString("Working tree clean.")
	} else {
		writeFileList(&b, "Staged", status.Staged)
		writeFileList(&b, "Modified", status.Modified)
		writeFileList(&b, "Untracked", status.Untracked)
	}
	a.reply(userID, b.String())
	return nil
}

func (a *App) cmdGitDiff(ctx context.Context, userID int64) error {
	path, err := a.repoPath(ctx, userID)
	if err != nil {
		return err
	}
	diff, err := a.svc.Git.Diff(path)
	if err != nil {
		return err
	}
	if !diff.HasChanges {
		a.reply(userID, "No uncommitted changes.")
		return nil
	}
	header := fmt.Sprintf("%d file(s), +%d -%d\n", len(diff.FilesChanged), diff.Insertions, diff.Deletions)
	a.reply(userID, header+format.FormatCodeBlock(diff.Unified, "diff", 120))
	return nil
}

func (a *App) cmdGitLog(ctx context.Context, userID int64) error {
	path, err := a.repoPath(ctx, userID)
	if err != nil {
		return err
	}
	commits, err := a.svc.Git.Log(path, 10)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		a.reply(userID, "No commits yet.")
		return nil
	}
	var b strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&b, "%s %s by %s (%s)\n",
			c.Hash[:8], c.Subject, c.Author, c.When.Format("2006-01-02"))
	}
	a.reply(userID, b.String())
	return nil
}

func (a *App) cmdCommit(ctx context.Context, userID int64, message string) error {
	path, err := a.repoPath(ctx, userID)
	if err != nil {
		return err
	}
	if message == "" {
		a.reply(userID, "Usage: /commit <message>")
		return nil
	}
	if err := a.svc.Git.StageAll(path); err != nil {
		return err
	}
	hash, err := a.svc.Git.Commit(path, message)
	if err != nil {
		return err
	}
	a.reply(userID, "Committed "+hash[:8]+".")
	return nil
}

// reply sends without a keyboard and logs rather than propagates send
// failures: there is nobody further up to surface them to.
func (a *App) reply(userID int64, text string) {
	if _, err := a.messenger.Send(userID, text, nil); err != nil {
		a.logger.Error("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func writeFileList(b *strings.Builder, label string, files []string) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", label, len(files))
	for _, f := range files {
		b.WriteString("  " + f + "\n")
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
