package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "memory.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.EnsureConversation(context.Background(), NewChatID(), "user_a", "t"))
}

func TestListConversationsEmpty(t *testing.T) {
	store := openTestStore(t)

	convos, err := store.ListConversations(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Empty(t, convos)
}

func TestListConversationsOrderAndCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := NewChatID()
	second := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, first, "user_a", "first"))
	require.NoError(t, store.EnsureConversation(ctx, second, "user_a", "second"))

	_, err := store.AppendMessage(ctx, first, "user", "hello")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, first, "agent", "hi there")
	require.NoError(t, err)

	convos, err := store.ListConversations(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, convos, 2)
	// Appending to "first" bumped its updated_at above "second".
	assert.Equal(t, first, convos[0].ID)
	assert.Equal(t, 2, convos[0].MessageCount)
	assert.Equal(t, 0, convos[1].MessageCount)
}

func TestListConversationsScopedToUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureConversation(ctx, NewChatID(), "user_a", "mine"))
	require.NoError(t, store.EnsureConversation(ctx, NewChatID(), "user_b", "theirs"))

	convos, err := store.ListConversations(ctx, "user_a")
	require.NoError(t, err)
	require.Len(t, convos, 1)
	assert.Equal(t, "mine", convos[0].Title)
}

func TestGetConversationRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()

	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "chat"))
	_, err := store.AppendMessage(ctx, id, "user", "question")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, id, "agent", "answer")
	require.NoError(t, err)

	convo, messages, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	require.NotNil(t, convo)
	assert.Equal(t, "chat", convo.Title)
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "question", ParseMessageContent(messages[0].Parts))
	assert.Equal(t, "answer", ParseMessageContent(messages[1].Parts))
	assert.False(t, messages[0].CreatedAt.IsZero())
}

func TestGetConversationAbsent(t *testing.T) {
	store := openTestStore(t)

	convo, messages, err := store.GetConversation(context.Background(), "chat_missing", "user_a")
	require.NoError(t, err)
	assert.Nil(t, convo)
	assert.Empty(t, messages)
}

func TestGetConversationWrongOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "private"))

	convo, messages, err := store.GetConversation(ctx, id, "user_b")
	require.NoError(t, err)
	assert.Nil(t, convo)
	assert.Empty(t, messages)
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "doomed"))
	_, err := store.AppendMessage(ctx, id, "user", "bye")
	require.NoError(t, err)

	deleted, err := store.DeleteConversation(ctx, id, "user_a")
	require.NoError(t, err)
	assert.True(t, deleted)

	convo, messages, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	assert.Nil(t, convo)
	assert.Empty(t, messages)

	var count int
	require.NoError(t, store.DB().QueryRow(
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, id).Scan(&count))
	assert.Zero(t, count)
}

func TestDeleteConversationWrongOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "keep"))

	deleted, err := store.DeleteConversation(ctx, id, "user_b")
	require.NoError(t, err)
	assert.False(t, deleted)

	convo, _, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	assert.NotNil(t, convo)
}

func TestDeleteConversationAbsent(t *testing.T) {
	store := openTestStore(t)

	deleted, err := store.DeleteConversation(context.Background(), "chat_missing", "user_a")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateConversationTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "old"))

	updated, err := store.UpdateConversationTitle(ctx, id, "user_a", "new title")
	require.NoError(t, err)
	assert.True(t, updated)

	convo, _, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "new title", convo.Title)

	updated, err = store.UpdateConversationTitle(ctx, id, "user_b", "hijack")
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestEnsureConversationIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()

	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "original"))
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "ignored"))

	convo, _, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "original", convo.Title)
}

func TestFormatTimeFixedWidthFraction(t *testing.T) {
	whole := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tenth := whole.Add(500 * time.Millisecond)
	finer := whole.Add(510 * time.Millisecond)

	assert.Equal(t, "2024-03-01T12:00:00.000000000Z", formatTime(whole))
	assert.Equal(t, "2024-03-01T12:00:00.500000000Z", formatTime(tenth))
	// Text comparison must agree with time comparison.
	assert.Less(t, formatTime(whole), formatTime(tenth))
	assert.Less(t, formatTime(tenth), formatTime(finer))
}

func insertMessageAt(t *testing.T, store *Store, conversationID, text, createdAt string) {
	t.Helper()
	_, err := store.DB().Exec(`
		INSERT INTO messages (id, conversation_id, role, parts, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		NewMessageID(), conversationID, "user", EncodeParts(text), createdAt)
	require.NoError(t, err)
}

func TestMessagesOrderedAcrossFractionWidths(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "chat"))

	// One timestamp's fraction is a prefix of the other's; a turn's user
	// message and agent reply land this close on nearly every exchange.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	insertMessageAt(t, store, id, "first", formatTime(base.Add(500*time.Millisecond)))
	insertMessageAt(t, store, id, "second", formatTime(base.Add(510*time.Millisecond)))

	_, messages, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", ParseMessageContent(messages[0].Parts))
	assert.Equal(t, "second", ParseMessageContent(messages[1].Parts))
}

func TestMessagesWithEqualTimestampsKeepInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := NewChatID()
	require.NoError(t, store.EnsureConversation(ctx, id, "user_a", "chat"))

	stamp := formatTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	insertMessageAt(t, store, id, "question", stamp)
	insertMessageAt(t, store, id, "answer", stamp)

	_, messages, err := store.GetConversation(ctx, id, "user_a")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "question", ParseMessageContent(messages[0].Parts))
	assert.Equal(t, "answer", ParseMessageContent(messages[1].Parts))
}

func TestParseMessageContent(t *testing.T) {
	assert.Equal(t, "hello", ParseMessageContent(`[{"text":"hello"}]`))
	assert.Equal(t, "ab", ParseMessageContent(`[{"text":"a"},{"text":"b"}]`))
	// Malformed or empty parts fall back to the raw stored string.
	assert.Equal(t, "not json", ParseMessageContent("not json"))
	assert.Equal(t, "[]", ParseMessageContent("[]"))
}

func TestEncodePartsRoundTrip(t *testing.T) {
	encoded := EncodeParts(`line with "quotes" and newline` + "\n")
	assert.Equal(t, `line with "quotes" and newline`+"\n", ParseMessageContent(encoded))
}

func TestIDPrefixes(t *testing.T) {
	assert.Contains(t, NewChatID(), "chat_")
	assert.Contains(t, NewUserID(), "user_")
	assert.Contains(t, NewMessageID(), "msg_")
	assert.NotEqual(t, NewChatID(), NewChatID())
}
