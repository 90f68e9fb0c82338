package holiday

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"attendance-service/common/metrics"
	"attendance-service/internal/daterange"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const table = "holidays"

const uniqueViolation = "23505"

type Repository interface {
	Create(ctx context.Context, h *Holiday) (*Holiday, error)
	// List returns holidays ordered by date. A nil bound leaves that side open.
	List(ctx context.Context, start, end *time.Time) ([]Holiday, error)
	GetByID(ctx context.Context, id int64) (*Holiday, error)
	Update(ctx context.Context, h *Holiday) (*Holiday, error)
	Delete(ctx context.Context, id int64) error
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

func (r *repository) Create(ctx context.Context, h *Holiday) (*Holiday, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(h).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", table, time.Since(start), err)

	if err != nil {
		return nil, mapError(err)
	}
	return h, nil
}

func (r *repository) List(ctx context.Context, from, to *time.Time) ([]Holiday, error) {
	start := time.Now()
	holidays := make([]Holiday, 0)
	q := r.db.NewSelect().Model(&holidays)
	if from != nil {
		q = q.Where("h.date >= ?", daterange.Day(*from))
	}
	if to != nil {
		q = q.Where("h.date <= ?", daterange.Day(*to))
	}
	err := q.OrderExpr("h.date ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return holidays, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Holiday, error) {
	start := time.Now()
	h := new(Holiday)
	err := r.db.NewSelect().Model(h).Where("h.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", table, time.Since(start), err)

	if err != nil {
		return nil, mapError(err)
	}
	return h, nil
}

func (r *repository) Update(ctx context.Context, h *Holiday) (*Holiday, error) {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model(h).
		Column("date", "reason").
		WherePK().
		Returning("*").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", table, time.Since(start), err)

	if err != nil {
		return nil, mapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrHolidayNotFound
	}
	return h, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model(&Holiday{ID: id}).WherePK().Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", table, time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrHolidayNotFound
	}
	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrHolidayNotFound
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return ErrHolidayExists
	}
	return err
}
