package service

import (
	"context"
	"errors"
	"testing"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/adapter/auth"
	"github.com/astrialabs/astrochat/internal/adapter/llm"
)

func TestEnsureUserCreatesOnFirstLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())

	identity := &auth.Identity{UID: "auth-123", Email: "new@example.com", Name: "Nova"}

	user, err := svc.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if user.ID == "" || user.AuthUID != "auth-123" || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.SubscriptionTier != "free" {
		t.Fatalf("new accounts start on the free tier, got %q", user.SubscriptionTier)
	}

	// A second login resolves the same account.
	again, err := svc.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("second EnsureUser failed: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("expected same account, got %s and %s", user.ID, again.ID)
	}

	if _, err := repo.GetUser(ctx, user.ID); err != nil {
		t.Fatalf("account not durable: %v", err)
	}
}

func TestEnsureUserRejectsDeactivatedAccount(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())

	identity := &auth.Identity{UID: "auth-x", Email: "x@example.com"}
	user, err := svc.EnsureUser(ctx, identity)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if err := repo.SetUserActive(ctx, user.ID, false); err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}

	if _, err := svc.EnsureUser(ctx, identity); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected rejection for deactivated account, got %v", err)
	}
}

func TestUpdateUserValidatesBirthFields(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	date := "1990-06-15"
	tm := "14:30"
	loc := "london"
	updated, err := svc.UpdateUser(ctx, "u1", UserUpdate{
		BirthDate:     &date,
		BirthTime:     &tm,
		BirthLocation: &loc,
	})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.BirthDate != date || updated.BirthTime != tm {
		t.Fatalf("update not applied: %+v", updated)
	}

	bad := "June 15th"
	if _, err := svc.UpdateUser(ctx, "u1", UserUpdate{BirthDate: &bad}); err == nil {
		t.Fatal("expected error for malformed birth date")
	}
}

func TestLogoutFlushesAndClearsCache(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := newTestService(t, llm.NewMockClient())
	createTestUser(t, repo, "u1")

	resp, err := svc.ProcessMessage(ctx, "u1", ChatRequest{Content: "see you soon"})
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	if err := svc.Logout(ctx, "u1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// Cached copy is gone.
	if _, err := store.GetSession(ctx, resp.SessionID, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cached session cleared, got %v", err)
	}

	// Durable copy survives; history is still readable via fallback.
	messages, err := svc.GetMessages(ctx, resp.SessionID, "u1", 0)
	if err != nil {
		t.Fatalf("GetMessages after logout failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 durable messages, got %d", len(messages))
	}
}
