// Package analytics aggregates reading activity for the admin dashboard.
package analytics

import (
	"context"
	"math"
	"slices"
	"time"

	"mednotes/internal/catalog"
	"mednotes/internal/fixtures"
	"mednotes/internal/progress"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const titleLimit = 30

const (
	AccountPremium = "premium"
	AccountFree    = "free"
)

type NoteReaders struct {
	NoteID          uint64 `json:"noteId"`
	Title           string `json:"title"`
	Subject         string `json:"subject"`
	Readers         int    `json:"readers"`
	TotalPages      int    `json:"totalPages"`
	AverageProgress int    `json:"averageProgress"`
}

type Usage struct {
	Users               int `json:"users"`
	TotalViews          int `json:"totalViews"`
	AverageViewsPerUser int `json:"averageViewsPerUser"`
}

type PremiumVsFree struct {
	Premium        Usage `json:"premium"`
	Free           Usage `json:"free"`
	ConversionRate int   `json:"conversionRate"`
}

type Engagement struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type ActiveStudents struct {
	Total            int        `json:"total"`
	ActiveThisWeek   int        `json:"activeThisWeek"`
	ActiveThisMonth  int        `json:"activeThisMonth"`
	EngagementLevels Engagement `json:"engagementLevels"`
	RetentionRate    int        `json:"retentionRate"`
}

type SubjectStats struct {
	Subject         string `json:"subject"`
	Views           int    `json:"views"`
	Notes           int    `json:"notes"`
	AverageProgress int    `json:"averageProgress"`
}

type Dashboard struct {
	ReadersPerNote    []NoteReaders               `json:"readersPerNote"`
	PremiumVsFree     PremiumVsFree               `json:"premiumVsFree"`
	ActiveStudents    ActiveStudents              `json:"activeStudents"`
	SubjectPopularity []SubjectStats              `json:"subjectPopularity"`
	EngagementTrends  []fixtures.WeeklyEngagement `json:"engagementTrends"`
}

// Service reads the catalog and progress stores. Account activity and the
// weekly trend come from a fixed usage sample.
type Service struct {
	Catalog  catalog.Store
	Progress progress.Store
	Activity []fixtures.Activity
	Trend    []fixtures.WeeklyEngagement
	Now      func() time.Time
}

func NewService(notes catalog.Store, prog progress.Store, activity []fixtures.Activity, trend []fixtures.WeeklyEngagement) *Service {
	return &Service{
		Catalog:  notes,
		Progress: prog,
		Activity: activity,
		Trend:    trend,
		Now:      time.Now,
	}
}

func ratio(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(d)))
}

func percentOf(n, d int) int {
	return ratio(n*100, d)
}

func shorten(title string) string {
	r := []rune(title)
	if len(r) <= titleLimit {
		return title
	}
	return string(r[:titleLimit]) + "..."
}

func (s *Service) ReadersPerNote(ctx context.Context) ([]NoteReaders, error) {
	notes, err := s.Catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list notes")
	}
	rows, err := s.Progress.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list progress")
	}

	readers := map[uint64]int{}
	total := map[uint64]int{}
	for _, p := range rows {
		readers[p.NoteID]++
		total[p.NoteID] += p.CompletionPercent
	}

	out := make([]NoteReaders, 0, len(notes))
	for _, n := range notes {
		out = append(out, NoteReaders{
			NoteID:          n.ID,
			Title:           shorten(n.Title),
			Subject:         n.Subject,
			Readers:         readers[n.ID],
			TotalPages:      n.PageCount,
			AverageProgress: ratio(total[n.ID], readers[n.ID]),
		})
	}
	slices.SortStableFunc(out, func(a, b NoteReaders) int { return b.Readers - a.Readers })
	return out, nil
}

func (s *Service) PremiumVsFree(_ context.Context) PremiumVsFree {
	var premium, free Usage
	for _, a := range s.Activity {
		u := &free
		if a.Type == AccountPremium {
			u = &premium
		}
		u.Users++
		u.TotalViews += a.NoteViews
	}
	premium.AverageViewsPerUser = ratio(premium.TotalViews, premium.Users)
	free.AverageViewsPerUser = ratio(free.TotalViews, free.Users)

	return PremiumVsFree{
		Premium:        premium,
		Free:           free,
		ConversionRate: percentOf(premium.Users, len(s.Activity)),
	}
}

// ActiveStudents counts accounts seen in the last 7 and 30 days and buckets
// them by note views: high above 50, medium 20 to 50, low below 20.
func (s *Service) ActiveStudents(_ context.Context) ActiveStudents {
	now := s.Now()
	week := now.Add(-7 * 24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	out := ActiveStudents{Total: len(s.Activity)}
	for _, a := range s.Activity {
		if !a.LastActive.Before(week) {
			out.ActiveThisWeek++
		}
		if !a.LastActive.Before(month) {
			out.ActiveThisMonth++
		}
		switch {
		case a.NoteViews > 50:
			out.EngagementLevels.High++
		case a.NoteViews >= 20:
			out.EngagementLevels.Medium++
		default:
			out.EngagementLevels.Low++
		}
	}
	out.RetentionRate = percentOf(out.ActiveThisMonth, out.Total)
	return out
}

// SubjectPopularity counts one view per progress record. Subjects nobody
// has opened are left out.
func (s *Service) SubjectPopularity(ctx context.Context) ([]SubjectStats, error) {
	notes, err := s.Catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list notes")
	}
	rows, err := s.Progress.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list progress")
	}

	subjectOf := make(map[uint64]string, len(notes))
	for _, n := range notes {
		subjectOf[n.ID] = n.Subject
	}

	type acc struct{ views, notes, progress int }
	stats := map[string]*acc{}
	var order []string
	for _, p := range rows {
		subj, ok := subjectOf[p.NoteID]
		if !ok {
			continue
		}
		a, ok := stats[subj]
		if !ok {
			a = &acc{}
			stats[subj] = a
			order = append(order, subj)
		}
		a.views++
		a.progress += p.CompletionPercent
	}
	for _, n := range notes {
		if a, ok := stats[n.Subject]; ok {
			a.notes++
		}
	}

	out := make([]SubjectStats, 0, len(order))
	for _, subj := range order {
		a := stats[subj]
		out = append(out, SubjectStats{
			Subject:         subj,
			Views:           a.views,
			Notes:           a.notes,
			AverageProgress: ratio(a.progress, a.views),
		})
	}
	slices.SortStableFunc(out, func(a, b SubjectStats) int { return b.Views - a.Views })
	return out, nil
}

func (s *Service) EngagementTrends(_ context.Context) []fixtures.WeeklyEngagement {
	return slices.Clone(s.Trend)
}

// Dashboard runs every aggregate concurrently and fails if any store read fails.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.ReadersPerNote, err = s.ReadersPerNote(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.SubjectPopularity, err = s.SubjectPopularity(gctx)
		return err
	})
	g.Go(func() error {
		d.PremiumVsFree = s.PremiumVsFree(gctx)
		return nil
	})
	g.Go(func() error {
		d.ActiveStudents = s.ActiveStudents(gctx)
		return nil
	})
	g.Go(func() error {
		d.EngagementTrends = s.EngagementTrends(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
