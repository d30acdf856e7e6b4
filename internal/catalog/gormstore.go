package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// gameRecord is the Postgres row for a game. Seq drives both the public id
// and insertion order.
type gameRecord struct {
	Seq       int64          `gorm:"primaryKey;autoIncrement"`
	ID        string         `gorm:"size:64;uniqueIndex;not null"`
	CreatorID string         `gorm:"size:128;index;not null"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (gameRecord) TableName() string {
	return "games"
}

func (r gameRecord) game() (epicvibe.Game, error) {
	var g epicvibe.Game
	if err := json.Unmarshal(r.Data, &g); err != nil {
		return epicvibe.Game{}, fmt.Errorf("decoding game %s: %w", r.ID, err)
	}
	return g, nil
}

// GormStore keeps games in Postgres through gorm.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&gameRecord{}); err != nil {
		return nil, fmt.Errorf("migrating games table: %w", err)
	}
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *GormStore) List(ctx context.Context, opts ListOptions) ([]epicvibe.Game, int, error) {
	var records []gameRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	games := make([]epicvibe.Game, 0, len(records))
	for _, r := range records {
		g, err := r.game()
		if err != nil {
			return nil, 0, err
		}
		games = append(games, g)
	}
	page, total := query(games, opts.normalize())
	return page, total, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (epicvibe.Game, error) {
	var r gameRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return epicvibe.Game{}, notFound(id)
	}
	if err != nil {
		return epicvibe.Game{}, err
	}
	return r.game()
}

func (s *GormStore) Insert(ctx context.Context, g epicvibe.Game) (string, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The real id depends on the generated seq, so reserve the row first.
		r := gameRecord{
			ID:        "pending_" + uuid.NewString(),
			CreatorID: g.Creator.ID,
			Data:      datatypes.JSON("{}"),
		}
		if err := tx.Create(&r).Error; err != nil {
			return fmt.Errorf("reserving game row: %w", err)
		}

		g.ID = gameID(r.Seq)
		data, err := json.Marshal(g)
		if err != nil {
			return err
		}
		return tx.Model(&r).Updates(map[string]any{"id": g.ID, "data": datatypes.JSON(data)}).Error
	})
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

func (s *GormStore) Update(ctx context.Context, id string, patch Patch, actingUserID string) (epicvibe.Game, error) {
	now := s.now()
	return s.Modify(ctx, id, func(g *epicvibe.Game) error {
		return applyPatch(g, patch, actingUserID, now)
	})
}

func (s *GormStore) Remove(ctx context.Context, id, actingUserID string) (epicvibe.Game, error) {
	var removed epicvibe.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRecord(tx, id)
		if err != nil {
			return err
		}
		g, err := r.game()
		if err != nil {
			return err
		}
		if err := checkOwner(g, actingUserID); err != nil {
			return err
		}
		removed = g
		return tx.Delete(&r).Error
	})
	return removed, err
}

// Modify locks the row with SELECT ... FOR UPDATE so concurrent writers to
// the same game serialize.
func (s *GormStore) Modify(ctx context.Context, id string, fn func(*epicvibe.Game) error) (epicvibe.Game, error) {
	var out epicvibe.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := lockRecord(tx, id)
		if err != nil {
			return err
		}
		g, err := r.game()
		if err != nil {
			return err
		}
		if err := fn(&g); err != nil {
			return err
		}
		g.ID = id

		data, err := json.Marshal(g)
		if err != nil {
			return err
		}
		out = g
		return tx.Model(&r).Updates(map[string]any{
			"creator_id": g.Creator.ID,
			"data":       datatypes.JSON(data),
		}).Error
	})
	return out, err
}

func (s *GormStore) Count(ctx context.Context) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&gameRecord{}).Count(&n).Error
	return int(n), err
}

func lockRecord(tx *gorm.DB, id string) (gameRecord, error) {
	var r gameRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return gameRecord{}, notFound(id)
	}
	return r, err
}
