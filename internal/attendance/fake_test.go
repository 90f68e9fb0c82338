package attendance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"attendance-service/internal/daterange"
)

// memRepository mimics the postgres repository closely enough for service
// and handler tests: unique (student_id, date), ordered reads.
type memRepository struct {
	mu     sync.Mutex
	rows   []Attendance
	nextID int64
	err    error
}

func newMemRepository(seed ...Attendance) *memRepository {
	r := &memRepository{}
	for _, a := range seed {
		r.nextID++
		a.ID = r.nextID
		r.rows = append(r.rows, a)
	}
	return r
}

func (r *memRepository) InsertSkipDuplicates(_ context.Context, records []Attendance) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}

	var inserted int64
	for _, rec := range records {
		if r.exists(rec.StudentID, rec.Date) {
			continue
		}
		r.nextID++
		rec.ID = r.nextID
		r.rows = append(r.rows, rec)
		inserted++
	}
	return inserted, nil
}

func (r *memRepository) exists(studentID int64, date time.Time) bool {
	for _, row := range r.rows {
		if row.StudentID == studentID && row.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (r *memRepository) Find(_ context.Context, filter Filter) ([]Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	ids := make(map[int64]bool, len(filter.StudentIDs))
	for _, id := range filter.StudentIDs {
		ids[id] = true
	}

	out := make([]Attendance, 0)
	for _, row := range r.rows {
		if !ids[row.StudentID] || !inRange(filter.Range, row.Date) {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// inRange mirrors the repository's inclusive date bounds.
func inRange(rng daterange.Range, t time.Time) bool {
	d := daterange.Day(t)
	return !d.Before(rng.Start) && !d.After(rng.End)
}

func (r *memRepository) UpdateReason(_ context.Context, id int64, reason *string) (*Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Reason = reason
			row := r.rows[i]
			return &row, nil
		}
	}
	return nil, ErrAttendanceNotFound
}

func (r *memRepository) GetByID(_ context.Context, id int64) (*Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, row := range r.rows {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, ErrAttendanceNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

var errStorageDown = errors.New("connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }
