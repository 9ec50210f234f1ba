// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite provides a SQLite-backed session ledger (modernc.org/sqlite, pure Go).
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// Store persists sessions and owned items in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ ledger.Ledger = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite ledger and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession inserts one session row.
func (s *Store) CreateSession(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id := strings.TrimSpace(snap.ID)
	if id == "" {
		return errs.Malformed("ledger: session id is required")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (id, score, total_score, level, spins_remaining, is_active, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		snap.Score,
		snap.TotalScore,
		snap.Level,
		snap.SpinsRemaining,
		boolToInt(snap.IsActive),
		toMillis(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (ledger.Snapshot, error) {
	if err := s.ready(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	return getSession(ctx, s.sqlDB, id)
}

// Checkpoint overwrites the progress of an active session.
func (s *Store) Checkpoint(ctx context.Context, snap ledger.Snapshot) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE sessions
		    SET score = ?, total_score = ?, level = ?, spins_remaining = ?, updated_at = ?
		  WHERE id = ? AND is_active = 1`,
		snap.Score,
		snap.TotalScore,
		snap.Level,
		snap.SpinsRemaining,
		toMillis(s.now()),
		snap.ID,
	)
	if err != nil {
		return fmt.Errorf("checkpoint session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := getSession(ctx, s.sqlDB, snap.ID); err != nil {
		return err
	}
	return ledger.ErrEnded
}

// GetOwnedItems returns holdings with quantity > 0 ordered by item id.
func (s *Store) GetOwnedItems(ctx context.Context, id string) ([]ledger.Holding, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if _, err := getSession(ctx, s.sqlDB, id); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT item_id, quantity FROM owned_items
		  WHERE session_id = ? AND quantity > 0
		  ORDER BY item_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list owned items: %w", err)
	}
	defer rows.Close()
	out := make([]ledger.Holding, 0, 8)
	for rows.Next() {
		var h ledger.Holding
		if err := rows.Scan(&h.ItemID, &h.Quantity); err != nil {
			return nil, fmt.Errorf("scan owned item: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned items: %w", err)
	}
	return out, nil
}

// GrantItem adds qty units of itemID to the session inventory.
func (s *Store) GrantItem(ctx context.Context, id string, itemID string, qty int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if qty <= 0 {
		return errs.Malformed("ledger: grant quantity must > 0, got %d", qty)
	}
	if _, err := getSession(ctx, s.sqlDB, id); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO owned_items (session_id, item_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		id,
		itemID,
		qty,
	)
	if err != nil {
		return fmt.Errorf("grant item: %w", err)
	}
	return nil
}

// ConsumeItem removes qty units; fails with ErrInsufficient without partial writes.
func (s *Store) ConsumeItem(ctx context.Context, id string, itemID string, qty int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if qty <= 0 {
		return errs.Malformed("ledger: consume quantity must > 0, got %d", qty)
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE owned_items SET quantity = quantity - ?
		  WHERE session_id = ? AND item_id = ? AND quantity >= ?`,
		qty,
		id,
		itemID,
		qty,
	)
	if err != nil {
		return fmt.Errorf("consume item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := getSession(ctx, s.sqlDB, id); err != nil {
		return err
	}
	return ledger.ErrInsufficient
}

// EndSession marks the session settled. Repeating it with the same values succeeds.
func (s *Store) EndSession(ctx context.Context, id string, finalScore int, finalLevel int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin end session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getSession(ctx, tx, id)
	if err != nil {
		return err
	}
	if !cur.IsActive {
		if cur.Score == finalScore && cur.Level == finalLevel {
			return nil
		}
		return ledger.ErrEnded
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE sessions SET score = ?, level = ?, is_active = 0, updated_at = ? WHERE id = ?`,
		finalScore,
		finalLevel,
		toMillis(s.now()),
		id,
	); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit end session: %w", err)
	}
	return nil
}

// DeleteSession removes the session row and its holdings in one transaction.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM owned_items WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete owned items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSession(ctx context.Context, q queryer, id string) (ledger.Snapshot, error) {
	var (
		snap      ledger.Snapshot
		active    int
		updatedAt int64
	)
	err := q.QueryRowContext(
		ctx,
		`SELECT id, score, total_score, level, spins_remaining, is_active, updated_at
		   FROM sessions WHERE id = ?`,
		id,
	).Scan(&snap.ID, &snap.Score, &snap.TotalScore, &snap.Level, &snap.SpinsRemaining, &active, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Snapshot{}, ledger.ErrNotFound
		}
		return ledger.Snapshot{}, fmt.Errorf("get session: %w", err)
	}
	snap.IsActive = active != 0
	snap.UpdatedAt = fromMillis(updatedAt)
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
