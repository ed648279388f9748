package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codevox/internal/models"
	"codevox/internal/tests/mocks"
)

// conversationStore keeps one in-memory ConversationContext per user.
type conversationStore struct {
	mocks.ConversationRepositoryMock
	rows map[int64]*models.ConversationContext
}

func newConversationStore() *conversationStore {
	s := &conversationStore{rows: make(map[int64]*models.ConversationContext)}
	s.GetOrCreateFunc = func(ctx context.Context, userID int64) (*models.ConversationContext, error) {
		if c, ok := s.rows[userID]; ok {
			return c, nil
		}
		c := &models.ConversationContext{UserID: userID}
		s.rows[userID] = c
		return c, nil
	}
	s.SaveFunc = func(ctx context.Context, c *models.ConversationContext) error {
		s.rows[c.UserID] = c
		return nil
	}
	return s
}

func TestResolveOrCreateTurnIncrementsAndNeverInventsSession(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	id, turn, err := svc.ResolveOrCreateTurn(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Equal(t, uint(1), turn)

	_, turn, err = svc.ResolveOrCreateTurn(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint(2), turn)
	assert.False(t, store.rows[42].LastActiveAt.IsZero())
}

func TestRecordSessionIDThenResolve(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.RecordSessionID(context.Background(), 42, "sess-abc"))

	id, _, err := svc.ResolveOrCreateTurn(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "sess-abc", *id)
}

func TestRecordSessionIDRejectsEmpty(t *testing.T) {
	svc := NewConversationService(newConversationStore(), nil)
	err := svc.RecordSessionID(context.Background(), 42, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResetClearsSessionTurnsAndPending(t *testing.T) {
	store := newConversationStore()
	cleared := false
	store.ClearPendingChangeFunc = func(ctx context.Context, userID int64) error {
		cleared = true
		return nil
	}
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.RecordSessionID(context.Background(), 42, "sess"))
	_, _, err := svc.ResolveOrCreateTurn(context.Background(), 42)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(context.Background(), 42))
	row := store.rows[42]
	assert.Nil(t, row.SessionID)
	assert.Equal(t, uint(0), row.TurnCount)
	assert.True(t, cleared)
}

func TestCompactTurnsKeepsSession(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.RecordSessionID(context.Background(), 42, "sess"))
	for i := 0; i < 3; i++ {
		_, _, err := svc.ResolveOrCreateTurn(context.Background(), 42)
		require.NoError(t, err)
	}

	require.NoError(t, svc.CompactTurns(context.Background(), 42))
	row := store.rows[42]
	assert.Equal(t, uint(0), row.TurnCount)
	require.NotNil(t, row.SessionID)
	assert.Equal(t, "sess", *row.SessionID)
}

func TestCompactTurnsWithoutSession(t *testing.T) {
	svc := NewConversationService(newConversationStore(), nil)
	err := svc.CompactTurns(context.Background(), 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBindRepoValidatesSlug(t *testing.T) {
	svc := NewConversationService(newConversationStore(), nil)

	for _, bad := range []string{"", "norepo", "owner/", "/repo", "a/b/c", "owner repo", "owner/repo extra"} {
		err := svc.BindRepo(context.Background(), 42, bad, "/tmp/x")
		assert.ErrorIs(t, err, ErrInvalidInput, "slug %q", bad)
	}

	err := svc.BindRepo(context.Background(), 42, "owner/repo", "/tmp/x")
	assert.NoError(t, err)
}

func TestBindRepoClearsSession(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.RecordSessionID(context.Background(), 42, "sess"))
	require.NoError(t, svc.BindRepo(context.Background(), 42, "owner/repo", "/tmp/x"))

	row := store.rows[42]
	assert.Nil(t, row.SessionID)
	assert.Equal(t, "owner/repo", row.RepoSlug)
	assert.Equal(t, "/tmp/x", row.RepoPath)
	assert.True(t, row.HasRepo())
}

func TestUnbindRepoClearsBindingAndSession(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.BindRepo(context.Background(), 42, "owner/repo", "/tmp/x"))
	require.NoError(t, svc.RecordSessionID(context.Background(), 42, "sess"))
	require.NoError(t, svc.UnbindRepo(context.Background(), 42))

	row := store.rows[42]
	assert.False(t, row.HasRepo())
	assert.Nil(t, row.SessionID)
}

func TestRecordPromptAndTranscription(t *testing.T) {
	store := newConversationStore()
	svc := NewConversationService(store, nil)

	require.NoError(t, svc.RecordPrompt(context.Background(), 42, "fix the tests"))
	require.NoError(t, svc.RecordTranscription(context.Background(), 42, "fix the tests please"))

	row := store.rows[42]
	assert.Equal(t, "fix the tests", row.LastPrompt)
	assert.Equal(t, "fix the tests please", row.LastTranscription)
}
