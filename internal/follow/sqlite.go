package follow

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nomwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type StoreConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// Store is the sqlite-backed Index plus the follow lifecycle operations
// used by the channel adapters (create/remove follows, delete accounts).
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func OpenStore(cfg StoreConfig, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("follow store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Index ----

func (s *Store) FindUsersFollowing(ctx context.Context, kind Kind, itemKeys []string) ([]User, error) {
	q := `SELECT u.id, u.channel, u.address, f.item_key, f.watermark_ms
	      FROM follows f JOIN users u ON u.id = f.user_id
	      WHERE f.kind = ?`
	args := []any{string(kind)}
	if len(itemKeys) > 0 {
		q += ` AND f.item_key IN (` + placeholders(len(itemKeys)) + `)`
		for _, k := range itemKeys {
			args = append(args, k)
		}
	}
	q += ` ORDER BY u.id, f.item_key`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find users following %s: %w", kind, err)
	}
	defer rows.Close()

	var (
		users []User
		cur   *User
	)
	for rows.Next() {
		var (
			id       int64
			channel  string
			address  string
			key      string
			markedMS int64
		)
		if err := rows.Scan(&id, &channel, &address, &key, &markedMS); err != nil {
			return nil, err
		}
		if cur == nil || cur.ID != id {
			users = append(users, User{ID: id, Channel: channel, Address: address})
			cur = &users[len(users)-1]
		}
		f := Follow{Key: key}
		if markedMS > 0 {
			f.Watermark = time.UnixMilli(markedMS)
		}
		cur.Follows = append(cur.Follows, f)
	}
	return users, rows.Err()
}

func (s *Store) AdvanceWatermarks(ctx context.Context, userID int64, kind Kind, itemKeys []string, watermark time.Time) error {
	if len(itemKeys) == 0 {
		return nil
	}
	// Single conditional statement: atomic across the item list, and the
	// watermark_ms guard keeps each row monotonic under concurrent commits.
	q := `UPDATE follows SET watermark_ms = ?
	      WHERE user_id = ? AND kind = ? AND watermark_ms < ?
	        AND item_key IN (` + placeholders(len(itemKeys)) + `)`
	args := []any{watermark.UnixMilli(), userID, string(kind), watermark.UnixMilli()}
	for _, k := range itemKeys {
		args = append(args, k)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("advance watermarks user=%d kind=%s: %w", userID, kind, err)
	}
	return nil
}

// ---- Lifecycle (used by channel adapters) ----

func (s *Store) UpsertUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, channel, address) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET channel=excluded.channel, address=excluded.address`,
		u.ID, u.Channel, u.Address)
	return err
}

func (s *Store) PutFollow(ctx context.Context, userID int64, kind Kind, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("empty follow key")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO follows(user_id, kind, item_key) VALUES(?,?,?)
		 ON CONFLICT(user_id, kind, item_key) DO NOTHING`,
		userID, string(kind), key)
	return err
}

func (s *Store) RemoveFollow(ctx context.Context, userID int64, kind Kind, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id=? AND kind=? AND item_key=?`,
		userID, string(kind), key)
	return err
}

func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, userID)
	return err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
