package bookmark

import (
	"context"
	"time"

	"mednotes/internal/apperr"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore relies on uq_bookmarks_viewer_note so concurrent upserts for the
// same pair collapse into one row.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) ListForViewer(ctx context.Context, viewerID uint64) ([]Bookmark, error) {
	var rows []Bookmark
	if err := s.DB.WithContext(ctx).Where("viewer_id = ?", viewerID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list bookmarks for viewer")
	}
	return rows, nil
}

func (s *GormStore) ListForNote(ctx context.Context, noteID uint64) ([]Bookmark, error) {
	var rows []Bookmark
	if err := s.DB.WithContext(ctx).Where("note_id = ?", noteID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list bookmarks for note")
	}
	return rows, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]Bookmark, error) {
	var rows []Bookmark
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "list bookmarks")
	}
	return rows, nil
}

func (s *GormStore) Upsert(ctx context.Context, viewerID, noteID uint64, page int) (Bookmark, error) {
	if page < 1 {
		return Bookmark{}, apperr.NewValidation("pageNumber", "pageNumber must be 1 or greater")
	}
	b := Bookmark{ViewerID: viewerID, NoteID: noteID, PageNumber: page, Timestamp: time.Now()}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "note_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"page_number", "timestamp"}),
	}).Create(&b).Error
	if err != nil {
		return Bookmark{}, errors.Wrap(err, "upsert bookmark")
	}
	return b, nil
}

func (s *GormStore) Get(ctx context.Context, id uint64) (Bookmark, error) {
	var b Bookmark
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Bookmark{}, errors.Wrapf(apperr.ErrNotFound, "bookmark %d", id)
		}
		return Bookmark{}, errors.Wrap(err, "get bookmark")
	}
	return b, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint64) (Bookmark, error) {
	var b Bookmark
	res := s.DB.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&b)
	if res.Error != nil {
		return Bookmark{}, errors.Wrap(res.Error, "delete bookmark")
	}
	if res.RowsAffected == 0 {
		return Bookmark{}, errors.Wrapf(apperr.ErrNotFound, "bookmark %d", id)
	}
	return b, nil
}
