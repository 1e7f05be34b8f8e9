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
	"github.com/astrialabs/astrochat/internal/adapter/auth"
)

// EnsureUser returns the account for a verified identity, creating it on
// first login.
func (s *Service) EnsureUser(ctx context.Context, identity *auth.Identity) (*domain.User, error) {
	user, err := s.repo.GetUserByAuthUID(ctx, identity.UID)
	if err == nil {
		if !user.IsActive {
			return nil, fmt.Errorf("account is deactivated: %w", domain.ErrNotFound)
		}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:               uuid.New().String(),
		AuthUID:          identity.UID,
		Email:            identity.Email,
		DisplayName:      identity.Name,
		IsActive:         true,
		SubscriptionTier: "free",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Printf("created user %s for auth uid %s", user.ID, identity.UID)
	return user, nil
}

// GetUser returns the account by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// UserUpdate carries the mutable profile fields. Nil pointers leave the
// current value unchanged.
type UserUpdate struct {
	DisplayName   *string          `json:"display_name,omitempty"`
	BirthDate     *string          `json:"birth_date,omitempty"`
	BirthTime     *string          `json:"birth_time,omitempty"`
	BirthLocation *string          `json:"birth_location,omitempty"`
	Preferences   *json.RawMessage `json:"preferences,omitempty"`
}

// UpdateUser applies profile changes.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (*domain.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.DisplayName != nil {
		user.DisplayName = *upd.DisplayName
	}
	if upd.BirthDate != nil {
		if *upd.BirthDate != "" {
			if _, err := time.Parse("2006-01-02", *upd.BirthDate); err != nil {
				return nil, fmt.Errorf("invalid birth_date: %w", err)
			}
		}
		user.BirthDate = *upd.BirthDate
	}
	if upd.BirthTime != nil {
		if *upd.BirthTime != "" {
			if _, err := time.Parse("15:04", *upd.BirthTime); err != nil {
				return nil, fmt.Errorf("invalid birth_time: %w", err)
			}
		}
		user.BirthTime = *upd.BirthTime
	}
	if upd.BirthLocation != nil {
		user.BirthLocation = *upd.BirthLocation
	}
	if upd.Preferences != nil {
		user.Preferences = *upd.Preferences
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Logout drops every cached session for the user. Durable copies are kept;
// anything unpersisted is flushed first.
func (s *Service) Logout(ctx context.Context, userID string) error {
	sessions, err := s.sessions.ListSessions(ctx, userID, false)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, sess := range sessions {
		if _, err := s.bridge.Persist(ctx, sess.ID); err != nil {
			log.Printf("WARN: failed to persist session %s on logout: %v", sess.ID, err)
		}
	}
	if err := s.sessions.DeleteOwnerSessions(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cached sessions: %w", err)
	}
	return nil
}
