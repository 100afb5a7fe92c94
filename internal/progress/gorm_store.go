package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Upsert(ctx context.Context, owner string, noteID uint64, completionPercent, lastViewedPage int) (Progress, error) {
	if err := check(owner, completionPercent, lastViewedPage); err != nil {
		return Progress{}, err
	}

	p := Progress{
		Owner:             owner,
		NoteID:            noteID,
		CompletionPercent: completionPercent,
		LastViewedPage:    lastViewedPage,
		UpdatedAt:         time.Now(),
	}
	err := s.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "owner"}, {Name: "note_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"completion_percent": gorm.Expr("GREATEST(progress.completion_percent, excluded.completion_percent)"),
				"last_viewed_page":   gorm.Expr("excluded.last_viewed_page"),
				"updated_at":         gorm.Expr("excluded.updated_at"),
			}),
		},
		clause.Returning{},
	).Create(&p).Error
	if err != nil {
		return Progress{}, errors.Wrap(err, "upsert progress")
	}
	return p, nil
}

func (s *GormStore) ListForViewer(ctx context.Context, owner string) ([]Progress, error) {
	var rows []Progress
	if err := s.DB.WithContext(ctx).Where("owner = ?", owner).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list progress")
	}
	return rows, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]Progress, error) {
	var rows []Progress
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list all progress")
	}
	return rows, nil
}
