package catalog

import (
	"context"
	"strings"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/validate"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists notes in Postgres. Ids come from the table's sequence,
// which never hands out a deleted id again.
type GormStore struct {
	DB *gorm.DB
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *GormStore) List(ctx context.Context) ([]Note, error) {
	var rows []Note
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list notes")
	}
	return rows, nil
}

func (s *GormStore) GetByID(ctx context.Context, id uint64) (Note, error) {
	var n Note
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return Note{}, notFound(err, "get note")
	}
	return n, nil
}

func (s *GormStore) ListBySubject(ctx context.Context, subject string) ([]Note, error) {
	var rows []Note
	if err := s.DB.WithContext(ctx).Where("subject = ?", subject).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list notes by subject")
	}
	return rows, nil
}

func (s *GormStore) Search(ctx context.Context, query string) ([]Note, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.NewValidation("q", "q is required")
	}
	pattern := "%" + likeEscaper.Replace(query) + "%"

	var rows []Note
	if err := s.DB.WithContext(ctx).
		Where("title ILIKE ? OR description ILIKE ? OR subject ILIKE ?", pattern, pattern, pattern).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "search notes")
	}
	return rows, nil
}

func (s *GormStore) Create(ctx context.Context, d NoteDraft) (Note, error) {
	if err := validate.Struct(d); err != nil {
		return Note{}, err
	}
	now := time.Now()
	n := Note{CreatedAt: now, UpdatedAt: now}
	d.assign(&n)
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return Note{}, errors.Wrap(err, "create note")
	}
	return n, nil
}

func (s *GormStore) Update(ctx context.Context, id uint64, p NotePatch) (Note, error) {
	var n Note
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&n).Error; err != nil {
			return notFound(err, "lock note")
		}

		d := p.apply(n.draft())
		if err := validate.Struct(d); err != nil {
			return err
		}
		d.assign(&n)
		n.UpdatedAt = time.Now()
		return errors.Wrap(tx.Save(&n).Error, "save note")
	})
	return n, err
}

func (s *GormStore) Delete(ctx context.Context, id uint64) (Note, error) {
	var n Note
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&n).Error; err != nil {
			return notFound(err, "lock note")
		}
		return errors.Wrap(tx.Delete(&Note{}, id).Error, "delete note")
	})
	return n, err
}

func (s *GormStore) IncrementViews(ctx context.Context, id uint64, n int64) error {
	res := s.DB.WithContext(ctx).Model(&Note{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n))
	if res.Error != nil {
		return errors.Wrap(res.Error, "increment views")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(apperr.ErrNotFound, "note %d", id)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(apperr.ErrNotFound, op)
	}
	return errors.Wrap(err, op)
}
