// Package repository implements the permanent store on SQLite.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/astrialabs/astrochat/domain"
)

// SQLiteRepository is the durable record keeper for users, charts, sessions,
// and messages. The cached session copy wins while fresh; rows here are the
// fallback source of truth after cache expiry.
type SQLiteRepository struct {
	db *sql.DB
}

// New opens (or creates) the database at dsn and runs migrations.
func New(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

func (r *SQLiteRepository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			auth_uid TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT,
			is_active INTEGER NOT NULL DEFAULT 1,
			subscription_tier TEXT NOT NULL DEFAULT 'free',
			birth_date TEXT,
			birth_time TEXT,
			birth_location TEXT,
			preferences TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS charts (
			chart_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			chart_type TEXT NOT NULL,
			house_system TEXT NOT NULL,
			zodiac_system TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			birth_time TEXT NOT NULL,
			birth_location TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			positions TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (owner_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charts_owner ON charts(owner_id)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			session_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			chart_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_owner ON chat_sessions(owner_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER,
			created_at DATETIME NOT NULL,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at, seq)`,
		`CREATE TABLE IF NOT EXISTS admin_users (
			admin_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS admin_audit (
			audit_id TEXT PRIMARY KEY,
			admin_id TEXT NOT NULL,
			action TEXT NOT NULL,
			target_id TEXT,
			detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping checks database reachability.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- Users ---

// CreateUser inserts a new user row.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *domain.User) error {
	prefs := nullJSON(user.Preferences)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, auth_uid, email, display_name, is_active, subscription_tier,
			birth_date, birth_time, birth_location, preferences, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.AuthUID, user.Email, user.DisplayName, boolInt(user.IsActive),
		user.SubscriptionTier, user.BirthDate, user.BirthTime, user.BirthLocation,
		prefs, user.CreatedAt, user.UpdatedAt)
	return err
}

// GetUser retrieves a user by internal id.
func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return r.getUserWhere(ctx, "user_id = ?", userID)
}

// GetUserByAuthUID retrieves a user by the identity provider's subject id.
func (r *SQLiteRepository) GetUserByAuthUID(ctx context.Context, authUID string) (*domain.User, error) {
	return r.getUserWhere(ctx, "auth_uid = ?", authUID)
}

// GetUserByEmail retrieves a user by email.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUserWhere(ctx, "email = ?", email)
}

func (r *SQLiteRepository) getUserWhere(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	var u domain.User
	var displayName, birthDate, birthTime, birthLocation, prefs sql.NullString
	var isActive int
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, auth_uid, email, display_name, is_active, subscription_tier,
			birth_date, birth_time, birth_location, preferences, created_at, updated_at
		 FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.AuthUID, &u.Email, &displayName, &isActive, &u.SubscriptionTier,
			&birthDate, &birthTime, &birthLocation, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.DisplayName = displayName.String
	u.IsActive = isActive == 1
	u.BirthDate = birthDate.String
	u.BirthTime = birthTime.String
	u.BirthLocation = birthLocation.String
	if prefs.Valid {
		u.Preferences = json.RawMessage(prefs.String)
	}
	return &u, nil
}

// UpdateUser writes the mutable profile fields.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET display_name = ?, subscription_tier = ?, birth_date = ?,
			birth_time = ?, birth_location = ?, preferences = ?, updated_at = ?
		 WHERE user_id = ?`,
		user.DisplayName, user.SubscriptionTier, user.BirthDate, user.BirthTime,
		user.BirthLocation, nullJSON(user.Preferences), user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res)
}

// SetUserActive flips the account's active flag.
func (r *SQLiteRepository) SetUserActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE user_id = ?`,
		boolInt(active), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res)
}

// ListUsers returns users ordered by creation time, newest first.
func (r *SQLiteRepository) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, auth_uid, email, display_name, is_active, subscription_tier,
			birth_date, birth_time, birth_location, preferences, created_at, updated_at
		 FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var displayName, birthDate, birthTime, birthLocation, prefs sql.NullString
		var isActive int
		if err := rows.Scan(&u.ID, &u.AuthUID, &u.Email, &displayName, &isActive,
			&u.SubscriptionTier, &birthDate, &birthTime, &birthLocation, &prefs,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.DisplayName = displayName.String
		u.IsActive = isActive == 1
		u.BirthDate = birthDate.String
		u.BirthTime = birthTime.String
		u.BirthLocation = birthLocation.String
		if prefs.Valid {
			u.Preferences = json.RawMessage(prefs.String)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// --- Charts ---

// CreateChart inserts a computed chart.
func (r *SQLiteRepository) CreateChart(ctx context.Context, chart *domain.Chart) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO charts (chart_id, owner_id, name, chart_type, house_system, zodiac_system,
			birth_date, birth_time, birth_location, latitude, longitude, positions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chart.ID, chart.OwnerID, chart.Name, chart.ChartType, chart.HouseSystem,
		chart.ZodiacSystem, chart.BirthDate, chart.BirthTime, chart.BirthLocation,
		chart.Latitude, chart.Longitude, nullJSON(chart.Positions), chart.CreatedAt)
	return err
}

// GetChart retrieves a chart scoped to its owner. An owner mismatch is
// reported as not found.
func (r *SQLiteRepository) GetChart(ctx context.Context, chartID, ownerID string) (*domain.Chart, error) {
	var c domain.Chart
	var positions sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT chart_id, owner_id, name, chart_type, house_system, zodiac_system,
			birth_date, birth_time, birth_location, latitude, longitude, positions, created_at
		 FROM charts WHERE chart_id = ? AND owner_id = ?`, chartID, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.ChartType, &c.HouseSystem, &c.ZodiacSystem,
			&c.BirthDate, &c.BirthTime, &c.BirthLocation, &c.Latitude, &c.Longitude,
			&positions, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if positions.Valid {
		c.Positions = json.RawMessage(positions.String)
	}
	return &c, nil
}

// ListCharts returns the owner's charts, newest first.
func (r *SQLiteRepository) ListCharts(ctx context.Context, ownerID string) ([]domain.Chart, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chart_id, owner_id, name, chart_type, house_system, zodiac_system,
			birth_date, birth_time, birth_location, latitude, longitude, positions, created_at
		 FROM charts WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charts []domain.Chart
	for rows.Next() {
		var c domain.Chart
		var positions sql.NullString
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.ChartType, &c.HouseSystem,
			&c.ZodiacSystem, &c.BirthDate, &c.BirthTime, &c.BirthLocation,
			&c.Latitude, &c.Longitude, &positions, &c.CreatedAt); err != nil {
			return nil, err
		}
		if positions.Valid {
			c.Positions = json.RawMessage(positions.String)
		}
		charts = append(charts, c)
	}
	return charts, rows.Err()
}

// DeleteChart removes a chart scoped to its owner.
func (r *SQLiteRepository) DeleteChart(ctx context.Context, chartID, ownerID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM charts WHERE chart_id = ? AND owner_id = ?`, chartID, ownerID)
	if err != nil {
		return err
	}
	return rowsOrNotFound(res)
}

// --- Sessions ---

// UpsertSession writes the durable copy of session metadata, replacing any
// existing row for the id.
func (r *SQLiteRepository) UpsertSession(ctx context.Context, sess *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, owner_id, title, is_active, created_at, updated_at, message_count, chart_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			title = excluded.title,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count,
			chart_id = excluded.chart_id`,
		sess.ID, sess.OwnerID, sess.Title, boolInt(sess.IsActive),
		sess.CreatedAt, sess.UpdatedAt, sess.MessageCount, sess.ChartID)
	return err
}

// GetSession retrieves the durable session row. ownerID scoping follows the
// same not-found-on-mismatch rule as the cache.
func (r *SQLiteRepository) GetSession(ctx context.Context, sessionID, ownerID string) (*domain.Session, error) {
	query := `SELECT session_id, owner_id, title, is_active, created_at, updated_at, message_count, chart_id
		 FROM chat_sessions WHERE session_id = ?`
	args := []interface{}{sessionID}
	if ownerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	var s domain.Session
	var chartID sql.NullString
	var isActive int
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&s.ID, &s.OwnerID, &s.Title, &isActive, &s.CreatedAt, &s.UpdatedAt,
			&s.MessageCount, &chartID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = isActive == 1
	s.ChartID = chartID.String
	return &s, nil
}

// ListSessions returns the owner's durable sessions, most recently updated
// first.
func (r *SQLiteRepository) ListSessions(ctx context.Context, ownerID string, activeOnly bool) ([]domain.Session, error) {
	query := `SELECT session_id, owner_id, title, is_active, created_at, updated_at, message_count, chart_id
		 FROM chat_sessions WHERE owner_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		var chartID sql.NullString
		var isActive int
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Title, &isActive, &s.CreatedAt,
			&s.UpdatedAt, &s.MessageCount, &chartID); err != nil {
			return nil, err
		}
		s.IsActive = isActive == 1
		s.ChartID = chartID.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListStaleSessions returns inactive sessions not updated since the cutoff.
func (r *SQLiteRepository) ListStaleSessions(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT session_id, owner_id, title, is_active, created_at, updated_at, message_count, chart_id
		 FROM chat_sessions WHERE is_active = 0 AND updated_at < ?`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		var chartID sql.NullString
		var isActive int
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Title, &isActive, &s.CreatedAt,
			&s.UpdatedAt, &s.MessageCount, &chartID); err != nil {
			return nil, err
		}
		s.IsActive = isActive == 1
		s.ChartID = chartID.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the durable session row and its messages.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE session_id = ?`, sessionID)
	return err
}

// --- Messages ---

// InsertMessages bulk-inserts messages, skipping ids that already exist.
// It returns the number of rows actually inserted and the number that
// failed to write. Rows that were already present count as neither.
func (r *SQLiteRepository) InsertMessages(ctx context.Context, messages []domain.Message) (inserted, failed int, err error) {
	for _, msg := range messages {
		res, execErr := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO chat_messages (message_id, session_id, role, content, token_count, created_at, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.SessionID, msg.Role, msg.Content, nullInt(msg.TokenCount),
			msg.CreatedAt, nullJSON(msg.Metadata))
		if execErr != nil {
			failed++
			err = execErr
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, failed, err
}

// MessageIDs returns the ids already persisted for the session.
func (r *SQLiteRepository) MessageIDs(ctx context.Context, sessionID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT message_id FROM chat_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// GetMessages returns up to limit most recent messages for the session in
// chronological order (created_at, then insert sequence).
func (r *SQLiteRepository) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, session_id, role, content, token_count, created_at, metadata
		 FROM chat_messages WHERE session_id = ? ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var tokenCount sql.NullInt64
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content,
			&tokenCount, &msg.CreatedAt, &metadata); err != nil {
			return nil, err
		}
		msg.TokenCount = int(tokenCount.Int64)
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse the newest-first page back into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountMessages returns the number of persisted messages for the session.
func (r *SQLiteRepository) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// --- Admin ---

// CreateAdmin grants an existing user an admin role.
func (r *SQLiteRepository) CreateAdmin(ctx context.Context, admin *domain.AdminUser) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_users (admin_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		admin.ID, admin.UserID, admin.Role, admin.CreatedAt)
	return err
}

// GetAdminByUserID looks up the admin record for a user, if any.
func (r *SQLiteRepository) GetAdminByUserID(ctx context.Context, userID string) (*domain.AdminUser, error) {
	var a domain.AdminUser
	err := r.db.QueryRowContext(ctx,
		`SELECT admin_id, user_id, role, created_at FROM admin_users WHERE user_id = ?`, userID).
		Scan(&a.ID, &a.UserID, &a.Role, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertAudit records an administrative action.
func (r *SQLiteRepository) InsertAudit(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_audit (audit_id, admin_id, action, target_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AdminID, entry.Action, entry.TargetID, nullJSON(entry.Detail), entry.CreatedAt)
	return err
}

// --- helpers ---

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nullInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func rowsOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
