package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/cache"
)

func newTestStore(t *testing.T) (*Store, *cache.MemoryBackend) {
	t.Helper()
	backend := cache.NewMemoryBackend()
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend, 24*time.Hour, 100), backend
}

func TestCreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	sess, err := store.CreateSession(ctx, "u1", "What does my chart say?")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.ID == "" || !sess.IsActive {
		t.Fatalf("unexpected session: %+v", sess)
	}

	got, err := store.GetSession(ctx, sess.ID, "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Title != "What does my chart say?" || got.OwnerID != "u1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.MessageCount != 0 {
		t.Fatalf("expected zero message count, got %d", got.MessageCount)
	}
}

func TestGetSessionOwnerMismatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	sess, err := store.CreateSession(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Another owner probing a real id learns nothing: same error as a
	// missing session.
	_, err = store.GetSession(ctx, sess.ID, "u2")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = store.GetSession(ctx, "no-such-session", "u2")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendMessageBumpsCountAndCapsLog(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend()
	store := New(backend, time.Hour, 100)

	sess, err := store.CreateSession(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < 101; i++ {
		_, err := store.AppendMessage(ctx, sess.ID, domain.Message{
			Role:    domain.RoleUser,
			Content: fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("AppendMessage %d failed: %v", i, err)
		}
	}

	got, err := store.GetSession(ctx, sess.ID, "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.MessageCount != 101 {
		t.Fatalf("expected lifetime count 101, got %d", got.MessageCount)
	}

	messages, err := store.GetMessages(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 100 {
		t.Fatalf("expected capped log of 100, got %d", len(messages))
	}
	// The oldest message was evicted; the log now starts at message 1.
	if messages[0].Content != "message 1" {
		t.Fatalf("expected oldest cached message 1, got %q", messages[0].Content)
	}
	if messages[99].Content != "message 100" {
		t.Fatalf("expected newest message 100, got %q", messages[99].Content)
	}
}

func TestAppendMessageMissingSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.AppendMessage(ctx, "ghost", domain.Message{Role: domain.RoleUser, Content: "x"})
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMessagesLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	sess, _ := store.CreateSession(ctx, "u1", "t")
	for i := 0; i < 5; i++ {
		if _, err := store.AppendMessage(ctx, sess.ID, domain.Message{
			Role:    domain.RoleUser,
			Content: fmt.Sprintf("m%d", i),
		}); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages, err := store.GetMessages(ctx, sess.ID, 2)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "m3" || messages[1].Content != "m4" {
		t.Fatalf("expected last two in order, got %+v", messages)
	}
}

func TestGetMessagesMissingSessionIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	messages, err := store.GetMessages(ctx, "ghost", 10)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty slice, got %d messages", len(messages))
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend()
	store := New(backend, time.Hour, 100)

	sess, err := store.CreateSession(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := store.AppendMessage(ctx, sess.ID, domain.Message{Role: domain.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	backend.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := store.GetSession(ctx, sess.ID, "u1"); err != domain.ErrNotFound {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	messages, err := store.GetMessages(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected expired log to be empty, got %d", len(messages))
	}
}

func TestListSessionsPrunesExpiredAndSorts(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	first, _ := store.CreateSession(ctx, "u1", "first")
	second, _ := store.CreateSession(ctx, "u1", "second")

	// Make the first session the most recently updated.
	if err := store.RenameSession(ctx, first.ID, "u1", "first renamed"); err != nil {
		t.Fatalf("RenameSession failed: %v", err)
	}

	// Expire the second session's metadata but leave the index entry.
	if err := backend.Del(ctx, "chat:"+second.ID+":meta"); err != nil {
		t.Fatalf("Del failed: %v", err)
	}

	sessions, err := store.ListSessions(ctx, "u1", false)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != first.ID {
		t.Fatalf("expected only the live session, got %+v", sessions)
	}

	// The stale index entry was pruned on the way through.
	again, err := store.ListSessions(ctx, "u1", false)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("expected 1 session after prune, got %d", len(again))
	}
}

func TestListSessionsActiveOnly(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	active, _ := store.CreateSession(ctx, "u1", "active")
	archived, _ := store.CreateSession(ctx, "u1", "archived")
	if err := store.SetActive(ctx, archived.ID, "u1", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	sessions, err := store.ListSessions(ctx, "u1", true)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != active.ID {
		t.Fatalf("expected only the active session, got %+v", sessions)
	}
}

func TestDeleteSessionRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	sess, _ := store.CreateSession(ctx, "u1", "t")
	if _, err := store.AppendMessage(ctx, sess.ID, domain.Message{Role: domain.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if _, err := store.GetSession(ctx, sess.ID, "u1"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	sessions, err := store.ListSessions(ctx, "u1", false)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected empty index, got %+v", sessions)
	}
}

func TestDeleteOwnerSessions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	a, _ := store.CreateSession(ctx, "u1", "a")
	b, _ := store.CreateSession(ctx, "u1", "b")
	other, _ := store.CreateSession(ctx, "u2", "other")

	if err := store.DeleteOwnerSessions(ctx, "u1"); err != nil {
		t.Fatalf("DeleteOwnerSessions failed: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		if _, err := store.GetSession(ctx, id, "u1"); err != domain.ErrNotFound {
			t.Fatalf("expected session %s gone, got %v", id, err)
		}
	}
	if _, err := store.GetSession(ctx, other.ID, "u2"); err != nil {
		t.Fatalf("other owner's session should survive: %v", err)
	}
}

func TestSeedRestoresSessionAndTrims(t *testing.T) {
	ctx := context.Background()
	backend := cache.NewMemoryBackend()
	store := New(backend, time.Hour, 3)

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:           "restored",
		OwnerID:      "u1",
		Title:        "old talk",
		IsActive:     true,
		CreatedAt:    now.Add(-time.Hour),
		UpdatedAt:    now,
		MessageCount: 5,
	}
	var messages []domain.Message
	for i := 0; i < 5; i++ {
		messages = append(messages, domain.Message{
			ID:        fmt.Sprintf("m%d", i),
			SessionID: "restored",
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
	}

	if err := store.Seed(ctx, sess, messages); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	got, err := store.GetSession(ctx, "restored", "u1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.MessageCount != 5 {
		t.Fatalf("expected seeded count 5, got %d", got.MessageCount)
	}

	cached, err := store.GetMessages(ctx, "restored", 0)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(cached) != 3 || cached[0].ID != "m2" {
		t.Fatalf("expected trimmed log starting at m2, got %+v", cached)
	}
}
