package holiday

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"attendance-service/internal/daterange"
	svcmetrics "attendance-service/internal/metrics"
)

var (
	ErrHolidayNotFound = errors.New("holiday not found")
	ErrHolidayExists   = errors.New("holiday already exists for date")
	ErrInvalidInput    = errors.New("invalid input")
)

type HolidayCommand struct {
	Date   string
	Reason string
}

type ListQuery struct {
	Start string
	End   string
}

type Service interface {
	CreateHoliday(ctx context.Context, cmd HolidayCommand) (*Holiday, error)
	ListHolidays(ctx context.Context, q ListQuery) ([]Holiday, error)
	GetHoliday(ctx context.Context, id int64) (*Holiday, error)
	UpdateHoliday(ctx context.Context, id int64, cmd HolidayCommand) (*Holiday, error)
	DeleteHoliday(ctx context.Context, id int64) error
}

type service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *svcmetrics.Metrics
}

func NewService(repo Repository, logger *slog.Logger, m *svcmetrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:    repo,
		logger:  logger,
		metrics: m,
	}
}

func (s *service) CreateHoliday(ctx context.Context, cmd HolidayCommand) (*Holiday, error) {
	h, err := fromCommand(cmd)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, h)
	if err != nil {
		return nil, err
	}
	created.Date = created.Date.UTC()

	s.metrics.RecordHolidayChange(ctx, "create")
	s.logger.InfoContext(ctx, "holiday created", "holiday_id", created.ID, "date", created.Date.Format(time.DateOnly))
	return created, nil
}

func (s *service) ListHolidays(ctx context.Context, q ListQuery) ([]Holiday, error) {
	from, err := optionalDay(q.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	to, err := optionalDay(q.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	holidays, err := s.repo.List(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i := range holidays {
		holidays[i].Date = holidays[i].Date.UTC()
	}
	return holidays, nil
}

func (s *service) GetHoliday(ctx context.Context, id int64) (*Holiday, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	h.Date = h.Date.UTC()
	return h, nil
}

func (s *service) UpdateHoliday(ctx context.Context, id int64, cmd HolidayCommand) (*Holiday, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	h, err := fromCommand(cmd)
	if err != nil {
		return nil, err
	}
	h.ID = id

	updated, err := s.repo.Update(ctx, h)
	if err != nil {
		return nil, err
	}
	updated.Date = updated.Date.UTC()

	s.metrics.RecordHolidayChange(ctx, "update")
	s.logger.InfoContext(ctx, "holiday updated", "holiday_id", id)
	return updated, nil
}

func (s *service) DeleteHoliday(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.RecordHolidayChange(ctx, "delete")
	s.logger.InfoContext(ctx, "holiday deleted", "holiday_id", id)
	return nil
}

func fromCommand(cmd HolidayCommand) (*Holiday, error) {
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	date, err := daterange.ParseDay(cmd.Date)
	if err != nil {
		return nil, err
	}
	return &Holiday{Date: date, Reason: reason}, nil
}

func optionalDay(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := daterange.ParseDay(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
