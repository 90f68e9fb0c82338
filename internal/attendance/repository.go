package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-service/common/metrics"
	"attendance-service/internal/daterange"

	"github.com/uptrace/bun"
)

const table = "attendances"

// Filter selects rows for a set of students inside an inclusive day range.
// An empty Status matches every status.
type Filter struct {
	StudentIDs []int64
	Range      daterange.Range
	Status     string
}

type Repository interface {
	// InsertSkipDuplicates writes all records in one statement. Rows that
	// collide on (student_id, date) are skipped; the count of rows actually
	// written is returned.
	InsertSkipDuplicates(ctx context.Context, records []Attendance) (int64, error)
	// Find returns matching rows ordered by date, then id.
	Find(ctx context.Context, filter Filter) ([]Attendance, error)
	UpdateReason(ctx context.Context, id int64, reason *string) (*Attendance, error)
	GetByID(ctx context.Context, id int64) (*Attendance, error)
}

type repository struct {
	db      bun.IDB
	metrics *metrics.Metrics
}

func NewRepository(db bun.IDB, m *metrics.Metrics) Repository {
	if m == nil {
		m = metrics.NewMock()
	}
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) InsertSkipDuplicates(ctx context.Context, records []Attendance) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	start := time.Now()
	res, err := r.db.NewInsert().
		Model(&records).
		On("CONFLICT (student_id, date) DO NOTHING").
		Returning("NULL").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return 0, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.metrics.Database.RecordRowsAffected(ctx, "insert", table, inserted)
	return inserted, nil
}

func (r *repository) Find(ctx context.Context, filter Filter) ([]Attendance, error) {
	rows := make([]Attendance, 0)
	if len(filter.StudentIDs) == 0 {
		return rows, nil
	}

	start := time.Now()
	q := r.db.NewSelect().
		Model(&rows).
		Where("a.student_id IN (?)", bun.In(filter.StudentIDs)).
		Where("a.date >= ?", filter.Range.Start).
		Where("a.date <= ?", filter.Range.End)
	if filter.Status != "" {
		q = q.Where("a.status = ?", filter.Status)
	}
	err := q.OrderExpr("a.date ASC, a.id ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateReason(ctx context.Context, id int64, reason *string) (*Attendance, error) {
	start := time.Now()
	record := &Attendance{ID: id, Reason: reason}
	res, err := r.db.NewUpdate().
		Model(record).
		Column("reason").
		WherePK().
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrAttendanceNotFound
	}
	r.metrics.Database.RecordRowsAffected(ctx, "update", table, rowsAffected)
	return record, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Attendance, error) {
	start := time.Now()
	record := new(Attendance)
	err := r.db.NewSelect().Model(record).Where("a.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}
	return record, nil
}
