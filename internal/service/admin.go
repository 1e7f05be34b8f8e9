package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/astrialabs/astrochat/domain"
)

// Admin action names checked against the policy engine.
const (
	ActionViewUsers      = "view_users"
	ActionDeactivateUser = "deactivate_user"
	ActionRunCleanup     = "run_cleanup"
	ActionGrantRole      = "grant_role"
)

// ErrForbidden is returned when the policy denies an admin action.
var ErrForbidden = errors.New("forbidden")

// RequireAdmin resolves the caller's admin record, or ErrForbidden when the
// user holds no role.
func (s *Service) RequireAdmin(ctx context.Context, userID string) (*domain.AdminUser, error) {
	admin, err := s.repo.GetAdminByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to resolve admin: %w", err)
	}
	return admin, nil
}

func (s *Service) authorize(ctx context.Context, admin *domain.AdminUser, action string) error {
	allowed, err := s.policyEngine.Authorize(ctx, string(admin.Role), action)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func (s *Service) audit(ctx context.Context, admin *domain.AdminUser, action, targetID string, detail interface{}) {
	entry := &domain.AuditEntry{
		ID:        uuid.New().String(),
		AdminID:   admin.ID,
		Action:    action,
		TargetID:  targetID,
		CreatedAt: time.Now().UTC(),
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			entry.Detail = raw
		}
	}
	if err := s.repo.InsertAudit(ctx, entry); err != nil {
		log.Printf("WARN: failed to record audit entry for %s: %v", action, err)
	}
}

// AdminListUsers returns a page of accounts.
func (s *Service) AdminListUsers(ctx context.Context, admin *domain.AdminUser, limit, offset int) ([]domain.User, error) {
	if err := s.authorize(ctx, admin, ActionViewUsers); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// AdminDeactivateUser disables an account and drops its cached sessions.
func (s *Service) AdminDeactivateUser(ctx context.Context, admin *domain.AdminUser, userID string) error {
	if err := s.authorize(ctx, admin, ActionDeactivateUser); err != nil {
		return err
	}
	if err := s.repo.SetUserActive(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if err := s.Logout(ctx, userID); err != nil {
		log.Printf("WARN: failed to clear sessions for deactivated user %s: %v", userID, err)
	}
	s.audit(ctx, admin, ActionDeactivateUser, userID, nil)
	return nil
}

// CleanupReport summarises one cleanup pass.
type CleanupReport struct {
	Evicted int `json:"evicted"`
	Skipped int `json:"skipped"`
}

// AdminRunCleanup persists and evicts expired sessions on demand.
func (s *Service) AdminRunCleanup(ctx context.Context, admin *domain.AdminUser) (*CleanupReport, error) {
	if err := s.authorize(ctx, admin, ActionRunCleanup); err != nil {
		return nil, err
	}
	evicted, skipped, err := s.bridge.CleanupExpired(ctx, s.config.CleanupAfterDays)
	if err != nil {
		return nil, fmt.Errorf("cleanup failed: %w", err)
	}
	report := &CleanupReport{Evicted: evicted, Skipped: skipped}
	s.audit(ctx, admin, ActionRunCleanup, "", report)
	return report, nil
}

// AdminGrantRole attaches an admin role to a user.
func (s *Service) AdminGrantRole(ctx context.Context, admin *domain.AdminUser, userID string, role domain.AdminRole) (*domain.AdminUser, error) {
	if err := s.authorize(ctx, admin, ActionGrantRole); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	grant := &domain.AdminUser{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateAdmin(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to grant role: %w", err)
	}
	s.audit(ctx, admin, ActionGrantRole, userID, map[string]string{"role": string(role)})
	return grant, nil
}

// RunCleanupLoop runs periodic cleanup until the context is cancelled.
func (s *Service) RunCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, skipped, err := s.bridge.CleanupExpired(ctx, s.config.CleanupAfterDays)
			if err != nil {
				log.Printf("WARN: cleanup pass failed: %v", err)
				continue
			}
			if evicted > 0 || skipped > 0 {
				log.Printf("cleanup pass: evicted=%d skipped=%d", evicted, skipped)
			}
		}
	}
}
