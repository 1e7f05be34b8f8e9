// Package bridge moves messages from the expiring session cache into
// permanent storage and serves as the fallback read path when the cache has
// expired.
//
// Consistency contract: the cached copy is authoritative while fresh; the
// durable copy is the fallback source of truth on a cache miss. Once
// rehydrated, the cache is authoritative again until the next expiry.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/session"
)

// Repository is the slice of the permanent store the bridge needs.
type Repository interface {
	UpsertSession(ctx context.Context, sess *domain.Session) error
	GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error)
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	MessageIDs(ctx context.Context, sessionID string) (map[string]struct{}, error)
	InsertMessages(ctx context.Context, messages []domain.Message) (inserted, failed int, err error)
	ListStaleSessions(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Bridge links the session store to the permanent repository.
type Bridge struct {
	sessions *session.Store
	repo     Repository
}

// New creates a bridge over the given store pair.
func New(sessions *session.Store, repo Repository) *Bridge {
	return &Bridge{sessions: sessions, repo: repo}
}

// PersistResult reports the outcome of one persist call.
type PersistResult struct {
	SessionID string `json:"session_id"`
	Inserted  int    `json:"inserted"`
	Failed    int    `json:"failed"`
}

// Complete reports whether every new message reached permanent storage.
func (p PersistResult) Complete() bool { return p.Failed == 0 }

// Persist copies the session's cached messages that are not yet in permanent
// storage. It is idempotent: with no new cache activity a second call
// performs zero writes. Partial failures are surfaced with counts, never
// aggregated away.
func (b *Bridge) Persist(ctx context.Context, sessionID string) (PersistResult, error) {
	result := PersistResult{SessionID: sessionID}

	sess, err := b.sessions.GetSession(ctx, sessionID, "")
	if err == nil {
		if upErr := b.repo.UpsertSession(ctx, sess); upErr != nil {
			return result, fmt.Errorf("failed to persist session metadata: %w", upErr)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return result, err
	}

	cached, err := b.sessions.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return result, err
	}
	if len(cached) == 0 {
		return result, nil
	}

	existing, err := b.repo.MessageIDs(ctx, sessionID)
	if err != nil {
		return result, err
	}

	var fresh []domain.Message
	for _, msg := range cached {
		if _, ok := existing[msg.ID]; !ok {
			fresh = append(fresh, msg)
		}
	}
	if len(fresh) == 0 {
		return result, nil
	}

	inserted, failed, insErr := b.repo.InsertMessages(ctx, fresh)
	result.Inserted = inserted
	result.Failed = failed
	if failed > 0 {
		return result, &domain.PersistError{SessionID: sessionID, Inserted: inserted, Failed: failed}
	}
	return result, insErr
}

// ReadWithFallback reads the session's messages from the cache, falling back
// to permanent storage on a miss. As a repair side effect, the durable rows
// are re-seeded into the cache under a fresh TTL so subsequent reads hit the
// fast path.
func (b *Bridge) ReadWithFallback(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	messages, err := b.sessions.GetMessages(ctx, sessionID, limit)
	if err == nil && len(messages) > 0 {
		return messages, nil
	}
	if err != nil {
		log.Printf("WARN: cache read failed for session %s, falling back to repository: %v", sessionID, err)
	}

	durable, err := b.repo.GetMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if len(durable) == 0 {
		return nil, nil
	}

	sess, err := b.repo.GetSession(ctx, sessionID, "")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if sess != nil {
		if seedErr := b.sessions.Seed(ctx, sess, durable); seedErr != nil {
			// The read itself succeeded; a failed repair only costs the next
			// caller another fallback round-trip.
			log.Printf("WARN: failed to reseed cache for session %s: %v", sessionID, seedErr)
		}
	}
	return durable, nil
}

// ResolveSession fetches session metadata, cache first, repository second.
// Serving the durable copy reseeds the cache so follow-up writes land on a
// live session instead of an expired one.
func (b *Bridge) ResolveSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	sess, err := b.sessions.GetSession(ctx, sessionID, ownerID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Printf("WARN: cache metadata read failed for session %s: %v", sessionID, err)
	}
	sess, repoErr := b.repo.GetSession(ctx, sessionID, ownerID)
	if repoErr != nil {
		return nil, repoErr
	}

	durable, msgErr := b.repo.GetMessages(ctx, sessionID, 0)
	if msgErr != nil {
		log.Printf("WARN: failed to load durable messages for session %s: %v", sessionID, msgErr)
		durable = nil
	}
	if seedErr := b.sessions.Seed(ctx, sess, durable); seedErr != nil {
		log.Printf("WARN: failed to reseed cache for session %s: %v", sessionID, seedErr)
	}
	return sess, nil
}

// Delete removes both the cached and the durable copy of a session.
func (b *Bridge) Delete(ctx context.Context, sessionID string) error {
	if err := b.sessions.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	return b.repo.DeleteSession(ctx, sessionID)
}

// CleanupExpired persists and then evicts inactive sessions whose updated_at
// is older than the threshold. Persist runs strictly before eviction, and a
// session whose persist reported any failure is kept in the cache: the
// system favors last-write durability over eager eviction.
func (b *Bridge) CleanupExpired(ctx context.Context, olderThanDays int) (evicted, skipped int, err error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	stale, err := b.repo.ListStaleSessions(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}

	for _, sess := range stale {
		result, persistErr := b.Persist(ctx, sess.ID)
		if persistErr != nil || !result.Complete() {
			log.Printf("WARN: skipping eviction of session %s, persist incomplete (%d inserted, %d failed): %v",
				sess.ID, result.Inserted, result.Failed, persistErr)
			skipped++
			continue
		}
		if delErr := b.sessions.DeleteSession(ctx, sess.ID); delErr != nil {
			log.Printf("WARN: failed to evict session %s from cache: %v", sess.ID, delErr)
			skipped++
			continue
		}
		evicted++
	}
	return evicted, skipped, nil
}
