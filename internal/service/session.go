package service

import (
	"context"
	"fmt"
	"log"

	"github.com/astrialabs/astrochat/domain"
)

// ListSessions returns the owner's sessions, newest activity first.
func (s *Service) ListSessions(ctx context.Context, ownerID string, activeOnly bool) ([]domain.Session, error) {
	cached, err := s.sessions.ListSessions(ctx, ownerID, activeOnly)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil {
		log.Printf("WARN: cache listing failed for owner %s: %v", ownerID, err)
	}
	sessions, err := s.repo.ListSessions(ctx, ownerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession opens a new cached session without sending a message.
func (s *Service) CreateSession(ctx context.Context, ownerID, title string) (*domain.Session, error) {
	if title == "" {
		title = "New conversation"
	}
	sess, err := s.sessions.CreateSession(ctx, ownerID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSession resolves one session for the owner.
func (s *Service) GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	return s.bridge.ResolveSession(ctx, sessionID, ownerID)
}

// GetMessages returns up to limit recent messages for the owner's session.
func (s *Service) GetMessages(ctx context.Context, sessionID, ownerID string, limit int) ([]domain.Message, error) {
	if _, err := s.bridge.ResolveSession(ctx, sessionID, ownerID); err != nil {
		return nil, err
	}
	messages, err := s.bridge.ReadWithFallback(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// RenameSession updates the session title on both copies.
func (s *Service) RenameSession(ctx context.Context, sessionID, ownerID, title string) error {
	if title == "" {
		return fmt.Errorf("title is required")
	}
	sess, err := s.bridge.ResolveSession(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}
	if err := s.sessions.RenameSession(ctx, sessionID, ownerID, title); err != nil {
		log.Printf("WARN: cache rename failed for session %s: %v", sessionID, err)
	}
	sess.Title = title
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	return nil
}

// ArchiveSession marks a session inactive. Archived sessions reject new
// messages and become candidates for cleanup once persisted.
func (s *Service) ArchiveSession(ctx context.Context, sessionID, ownerID string) error {
	sess, err := s.bridge.ResolveSession(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}
	if _, err := s.bridge.Persist(ctx, sessionID); err != nil {
		log.Printf("WARN: failed to persist session %s before archive: %v", sessionID, err)
	}
	if err := s.sessions.SetActive(ctx, sessionID, ownerID, false); err != nil {
		log.Printf("WARN: cache archive failed for session %s: %v", sessionID, err)
	}
	sess.IsActive = false
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return nil
}

// RestoreSession reactivates an archived session.
func (s *Service) RestoreSession(ctx context.Context, sessionID, ownerID string) error {
	sess, err := s.bridge.ResolveSession(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}
	if err := s.sessions.SetActive(ctx, sessionID, ownerID, true); err != nil {
		log.Printf("WARN: cache restore failed for session %s: %v", sessionID, err)
	}
	sess.IsActive = true
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}

// AttachChart links an owned chart to the session so readings can use it.
func (s *Service) AttachChart(ctx context.Context, sessionID, ownerID, chartID string) error {
	sess, err := s.bridge.ResolveSession(ctx, sessionID, ownerID)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetChart(ctx, chartID, ownerID); err != nil {
		return err
	}
	if err := s.sessions.SetChartRef(ctx, sessionID, ownerID, chartID); err != nil {
		log.Printf("WARN: cache chart link failed for session %s: %v", sessionID, err)
	}
	sess.ChartID = chartID
	if err := s.repo.UpsertSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to link chart: %w", err)
	}
	return nil
}

// DeleteSession removes both the cached and the durable copy.
func (s *Service) DeleteSession(ctx context.Context, sessionID, ownerID string) error {
	if _, err := s.bridge.ResolveSession(ctx, sessionID, ownerID); err != nil {
		return err
	}
	if err := s.bridge.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PersistSession flushes the cached session to durable storage on demand.
func (s *Service) PersistSession(ctx context.Context, sessionID, ownerID string) (inserted int, err error) {
	if _, err := s.bridge.ResolveSession(ctx, sessionID, ownerID); err != nil {
		return 0, err
	}
	res, err := s.bridge.Persist(ctx, sessionID)
	if err != nil {
		return res.Inserted, err
	}
	return res.Inserted, nil
}
