// Package session implements the TTL-bounded session store. It is the single
// read/write path while a conversation is active; durable storage is handled
// by the bridge package.
//
// Cache layout:
//
//	chat:{id}:meta      hash of session metadata
//	chat:{id}:messages  list of JSON-encoded messages, capped at MessageCap
//	user:{owner}:sessions  set of session ids owned by the user
//
// All keys carry the same TTL, refreshed on every access that mutates the
// session. AppendMessage pushes to the log before touching the metadata: a
// crash between the two steps leaves a cached message whose count bump is
// missing, which the durability bridge reconciles by message id rather than
// by count.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/cache"
)

// Store provides fast, expiring storage for session metadata and message logs.
type Store struct {
	backend    cache.Backend
	ttl        time.Duration
	messageCap int
}

// New creates a session store on the given backend.
func New(backend cache.Backend, ttl time.Duration, messageCap int) *Store {
	if messageCap <= 0 {
		messageCap = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{backend: backend, ttl: ttl, messageCap: messageCap}
}

// MessageCap returns the maximum number of messages kept in the cached log.
func (s *Store) MessageCap() int { return s.messageCap }

// TTL returns the expiry applied to cached sessions.
func (s *Store) TTL() time.Duration { return s.ttl }

func metaKey(sessionID string) string     { return "chat:" + sessionID + ":meta" }
func messagesKey(sessionID string) string { return "chat:" + sessionID + ":messages" }
func ownerKey(ownerID string) string      { return "user:" + ownerID + ":sessions" }

// CreateSession allocates a new session for the owner and registers it in
// the owner's index set.
func (s *Store) CreateSession(ctx context.Context, ownerID, title string) (*domain.Session, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeMeta(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.backend.SAdd(ctx, ownerKey(ownerID), sess.ID); err != nil {
		return nil, err
	}
	if err := s.backend.Expire(ctx, ownerKey(ownerID), s.ttl); err != nil {
		return nil, err
	}
	return sess, nil
}

// Seed writes an existing session's metadata into the cache under a fresh
// TTL. Used by the durability bridge when rehydrating from permanent storage.
func (s *Store) Seed(ctx context.Context, sess *domain.Session, messages []domain.Message) error {
	if err := s.writeMeta(ctx, sess); err != nil {
		return err
	}
	if err := s.backend.SAdd(ctx, ownerKey(sess.OwnerID), sess.ID); err != nil {
		return err
	}
	if err := s.backend.Expire(ctx, ownerKey(sess.OwnerID), s.ttl); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	encoded := make([]string, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		encoded = append(encoded, string(data))
	}
	key := messagesKey(sess.ID)
	if err := s.backend.RPush(ctx, key, encoded...); err != nil {
		return err
	}
	if err := s.backend.LTrim(ctx, key, int64(-s.messageCap), -1); err != nil {
		return err
	}
	return s.backend.Expire(ctx, key, s.ttl)
}

// GetSession reads session metadata. When ownerID is non-empty and does not
// match the stored owner, the session is reported as not found.
func (s *Store) GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	fields, err := s.backend.HGetAll(ctx, metaKey(sessionID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	sess, err := sessionFromFields(fields)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && sess.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return sess, nil
}

// ListSessions returns the owner's cached sessions, most recently updated
// first. Index entries whose metadata has expired are pruned as they are
// encountered.
func (s *Store) ListSessions(ctx context.Context, ownerID string, activeOnly bool) ([]domain.Session, error) {
	ids, err := s.backend.SMembers(ctx, ownerKey(ownerID))
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		fields, err := s.backend.HGetAll(ctx, metaKey(id))
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			// Stale index entry from an expired session.
			if err := s.backend.SRem(ctx, ownerKey(ownerID), id); err != nil {
				return nil, err
			}
			continue
		}
		sess, err := sessionFromFields(fields)
		if err != nil {
			return nil, err
		}
		if sess.OwnerID != ownerID {
			continue
		}
		if activeOnly && !sess.IsActive {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// AppendMessage assigns the message an id and timestamp if absent, pushes it
// onto the session log, trims the log to the cap, and bumps the metadata
// counters under a refreshed TTL. The log push happens first so that a
// partial failure never loses the message itself.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg domain.Message) (*domain.Message, error) {
	fields, err := s.backend.HGetAll(ctx, metaKey(sessionID))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.SessionID = sessionID

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	key := messagesKey(sessionID)
	if err := s.backend.RPush(ctx, key, string(data)); err != nil {
		return nil, err
	}
	if err := s.backend.LTrim(ctx, key, int64(-s.messageCap), -1); err != nil {
		return nil, err
	}
	if err := s.backend.Expire(ctx, key, s.ttl); err != nil {
		return nil, err
	}

	if _, err := s.backend.HIncrBy(ctx, metaKey(sessionID), "message_count", 1); err != nil {
		return nil, err
	}
	if err := s.backend.HSet(ctx, metaKey(sessionID), map[string]string{
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return nil, err
	}
	if err := s.backend.Expire(ctx, metaKey(sessionID), s.ttl); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages returns up to limit most recent cached messages in
// chronological order. A missing or expired session yields an empty slice,
// not an error.
func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.backend.LRange(ctx, messagesKey(sessionID), start, -1)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(raw))
	for _, data := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("corrupt cached message in session %s: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// RenameSession updates the session title.
func (s *Store) RenameSession(ctx context.Context, sessionID, ownerID, title string) error {
	return s.updateMeta(ctx, sessionID, ownerID, map[string]string{"title": title})
}

// SetActive flips the active flag. Inactive sessions stay readable but are
// closed for new messages at the service layer.
func (s *Store) SetActive(ctx context.Context, sessionID, ownerID string, active bool) error {
	return s.updateMeta(ctx, sessionID, ownerID, map[string]string{"is_active": formatBool(active)})
}

// SetChartRef links or clears the associated birth chart.
func (s *Store) SetChartRef(ctx context.Context, sessionID, ownerID, chartID string) error {
	return s.updateMeta(ctx, sessionID, ownerID, map[string]string{"chart_id": chartID})
}

// DeleteSession removes the metadata, the message log, and the owner-index
// entry.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	fields, err := s.backend.HGetAll(ctx, metaKey(sessionID))
	if err != nil {
		return err
	}
	owner := fields["owner_id"]
	if err := s.backend.Del(ctx, metaKey(sessionID), messagesKey(sessionID)); err != nil {
		return err
	}
	if owner != "" {
		if err := s.backend.SRem(ctx, ownerKey(owner), sessionID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteOwnerSessions drops every cached session for the owner. Used by the
// logout cleanup path.
func (s *Store) DeleteOwnerSessions(ctx context.Context, ownerID string) error {
	ids, err := s.backend.SMembers(ctx, ownerKey(ownerID))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.backend.Del(ctx, metaKey(id), messagesKey(id)); err != nil {
			return err
		}
	}
	return s.backend.Del(ctx, ownerKey(ownerID))
}

// Touch extends the TTL on the session's keys without mutating content.
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	if err := s.backend.Expire(ctx, metaKey(sessionID), s.ttl); err != nil {
		return err
	}
	return s.backend.Expire(ctx, messagesKey(sessionID), s.ttl)
}

func (s *Store) updateMeta(ctx context.Context, sessionID, ownerID string, fields map[string]string) error {
	if _, err := s.GetSession(ctx, sessionID, ownerID); err != nil {
		return err
	}
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.backend.HSet(ctx, metaKey(sessionID), fields); err != nil {
		return err
	}
	return s.Touch(ctx, sessionID)
}

func (s *Store) writeMeta(ctx context.Context, sess *domain.Session) error {
	fields := map[string]string{
		"id":            sess.ID,
		"owner_id":      sess.OwnerID,
		"title":         sess.Title,
		"is_active":     formatBool(sess.IsActive),
		"created_at":    sess.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    sess.UpdatedAt.Format(time.RFC3339Nano),
		"message_count": strconv.Itoa(sess.MessageCount),
		"chart_id":      sess.ChartID,
	}
	if err := s.backend.HSet(ctx, metaKey(sess.ID), fields); err != nil {
		return err
	}
	return s.backend.Expire(ctx, metaKey(sess.ID), s.ttl)
}

func sessionFromFields(fields map[string]string) (*domain.Session, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session metadata: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session metadata: %w", err)
	}
	count, _ := strconv.Atoi(fields["message_count"])
	return &domain.Session{
		ID:           fields["id"],
		OwnerID:      fields["owner_id"],
		Title:        fields["title"],
		IsActive:     fields["is_active"] == "1",
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		MessageCount: count,
		ChartID:      fields["chart_id"],
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
