package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"mednotes/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return &GormStore{DB: gdb}, mock
}

var progressColumns = []string{"id", "owner", "note_id", "completion_percent", "last_viewed_page", "updated_at"}

func TestGormStore_Upsert(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	upsert := `INSERT INTO "progress" .* ON CONFLICT \("owner","note_id"\) DO UPDATE SET ` +
		`"completion_percent"=GREATEST\(progress\.completion_percent, excluded\.completion_percent\),` +
		`"last_viewed_page"=excluded\.last_viewed_page,"updated_at"=excluded\.updated_at RETURNING`

	tests := []struct {
		name        string
		owner       string
		percent     int
		page        int
		setupMock   func(mock sqlmock.Sqlmock)
		wantPercent int
		wantErr     error
	}{
		{
			name:    "first visit",
			owner:   "viewer:3",
			percent: 40,
			page:    4,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(upsert).WillReturnRows(sqlmock.NewRows(progressColumns).AddRow(1, "viewer:3", 7, 40, 4, at))
				mock.ExpectCommit()
			},
			wantPercent: 40,
		},
		{
			name:    "going back keeps the higher completion",
			owner:   "viewer:3",
			percent: 10,
			page:    1,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(upsert).WillReturnRows(sqlmock.NewRows(progressColumns).AddRow(1, "viewer:3", 7, 80, 1, at))
				mock.ExpectCommit()
			},
			wantPercent: 80,
		},
		{
			name:      "missing owner",
			percent:   10,
			page:      1,
			setupMock: func(sqlmock.Sqlmock) {},
			wantErr:   apperr.ErrValidation,
		},
		{
			name:      "percent out of range",
			owner:     "session:abc",
			percent:   101,
			page:      1,
			setupMock: func(sqlmock.Sqlmock) {},
			wantErr:   apperr.ErrValidation,
		},
		{
			name:    "db error",
			owner:   "session:abc",
			percent: 10,
			page:    1,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(upsert).WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.setupMock(mock)

			got, err := s.Upsert(context.Background(), tt.owner, 7, tt.percent, tt.page)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint64(1), got.ID)
				assert.Equal(t, tt.wantPercent, got.CompletionPercent)
				assert.Equal(t, tt.page, got.LastViewedPage)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_ListForViewer(t *testing.T) {
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "progress" WHERE owner = \$1 ORDER BY id asc`).
		WithArgs("session:abc").
		WillReturnRows(sqlmock.NewRows(progressColumns).AddRow(2, "session:abc", 7, 25, 5, at))
	mock.ExpectQuery(`SELECT \* FROM "progress" ORDER BY id asc`).
		WillReturnError(assert.AnError)

	rows, err := s.ListForViewer(context.Background(), "session:abc")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 25, rows[0].CompletionPercent)

	_, err = s.ListAll(context.Background())
	assert.True(t, errors.Is(err, assert.AnError))
	assert.NoError(t, mock.ExpectationsWereMet())
}
