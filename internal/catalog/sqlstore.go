package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// SQLStore keeps each game as a JSONB document in a libSQL table. The schema
// comes from the migrations package.
//
// SQLite allows one writer at a time and a deferred transaction that reads
// before writing cannot wait for the lock, so writers are serialized here.
// Readers do not take writeMu.
type SQLStore struct {
	db      *sql.DB
	now     func() time.Time
	writeMu sync.Mutex
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]epicvibe.Game, int, error) {
	games, err := s.all(ctx)
	if err != nil {
		return nil, 0, err
	}
	page, total := query(games, opts.normalize())
	return page, total, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (epicvibe.Game, error) {
	return getGame(ctx, s.db, id)
}

func (s *SQLStore) Insert(ctx context.Context, g epicvibe.Game) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'games' RETURNING value`,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocating game id: %w", err)
	}

	g.ID = gameID(seq)
	data, err := json.Marshal(g)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, seq, creator_id, data) VALUES (?, ?, ?, jsonb(?))`,
		g.ID, seq, g.Creator.ID, string(data),
	)
	if err != nil {
		return "", fmt.Errorf("inserting game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return g.ID, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, patch Patch, actingUserID string) (epicvibe.Game, error) {
	now := s.now()
	return s.Modify(ctx, id, func(g *epicvibe.Game) error {
		return applyPatch(g, patch, actingUserID, now)
	})
}

func (s *SQLStore) Remove(ctx context.Context, id, actingUserID string) (epicvibe.Game, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return epicvibe.Game{}, err
	}
	defer tx.Rollback()

	g, err := getGame(ctx, tx, id)
	if err != nil {
		return epicvibe.Game{}, err
	}
	if err := checkOwner(g, actingUserID); err != nil {
		return epicvibe.Game{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
		return epicvibe.Game{}, err
	}
	if err := tx.Commit(); err != nil {
		return epicvibe.Game{}, err
	}
	return g, nil
}

// Modify loads a game, applies fn, and saves it in a transaction.
func (s *SQLStore) Modify(ctx context.Context, id string, fn func(*epicvibe.Game) error) (epicvibe.Game, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return epicvibe.Game{}, err
	}
	defer tx.Rollback()

	g, err := getGame(ctx, tx, id)
	if err != nil {
		return epicvibe.Game{}, err
	}
	if err := fn(&g); err != nil {
		return epicvibe.Game{}, err
	}
	g.ID = id

	data, err := json.Marshal(g)
	if err != nil {
		return epicvibe.Game{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE games SET creator_id = ?, data = jsonb(?) WHERE id = ?`,
		g.Creator.ID, string(data), id,
	)
	if err != nil {
		return epicvibe.Game{}, err
	}

	if err := tx.Commit(); err != nil {
		return epicvibe.Game{}, err
	}
	return g, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}

// all loads every game document in insertion order.
func (s *SQLStore) all(ctx context.Context) ([]epicvibe.Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT json(data) FROM games ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []epicvibe.Game
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var g epicvibe.Game
		if err := json.Unmarshal([]byte(data), &g); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGame(ctx context.Context, q queryRower, id string) (epicvibe.Game, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT json(data) FROM games WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return epicvibe.Game{}, notFound(id)
	}
	if err != nil {
		return epicvibe.Game{}, err
	}

	var g epicvibe.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return epicvibe.Game{}, err
	}
	return g, nil
}
