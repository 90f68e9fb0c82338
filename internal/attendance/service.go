package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"attendance-service/internal/daterange"
	svcmetrics "attendance-service/internal/metrics"
)

var (
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrNoValidRecords     = errors.New("no valid attendance records")
	ErrInvalidInput       = errors.New("invalid input")
)

// Publisher delivers attendance events to a broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

type MarkAttendanceCommand struct {
	Date    string
	Entries []RawEntry
}

type FindAttendanceCommand struct {
	StudentIDs []int64
	Month      int
	Year       int
}

type AbsenceQueryCommand struct {
	Start      string
	End        string
	StudentIDs []int64
}

type RangeQueryCommand struct {
	Start      string
	End        string
	StudentIDs []int64
	Status     string
}

type UpdateReasonCommand struct {
	AttendanceID int64
	Reason       *string
}

type Service interface {
	MarkAttendance(ctx context.Context, cmd MarkAttendanceCommand) (*MarkResult, error)
	FindAttendance(ctx context.Context, cmd FindAttendanceCommand) ([]Summary, error)
	GetAbsentStudents(ctx context.Context, cmd AbsenceQueryCommand) ([]Absence, error)
	FindRange(ctx context.Context, cmd RangeQueryCommand) ([]Attendance, error)
	UpdateReason(ctx context.Context, cmd UpdateReasonCommand) (*Attendance, error)
	GetAttendance(ctx context.Context, id int64) (*Attendance, error)
}

type service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	metrics   *svcmetrics.Metrics
}

// NewService wires the attendance operations. publisher may be nil, in which
// case no events are emitted.
func NewService(repo Repository, publisher Publisher, logger *slog.Logger, m *svcmetrics.Metrics) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

func (s *service) MarkAttendance(ctx context.Context, cmd MarkAttendanceCommand) (*MarkResult, error) {
	day, err := daterange.ParseDay(cmd.Date)
	if err != nil {
		return nil, err
	}

	records := make([]Attendance, 0, len(cmd.Entries))
	for _, entry := range cmd.Entries {
		studentID, status, ok := entry.coerce()
		if !ok {
			continue
		}
		records = append(records, Attendance{StudentID: studentID, Date: day, Status: status})
	}

	dropped := len(cmd.Entries) - len(records)
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped invalid attendance entries", "dropped", dropped, "received", len(cmd.Entries))
		s.metrics.RecordEntriesDropped(ctx, dropped)
	}
	if len(records) == 0 {
		return nil, ErrNoValidRecords
	}

	inserted, err := s.repo.InsertSkipDuplicates(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("insert attendance: %w", err)
	}

	result := &MarkResult{Inserted: inserted, Attempted: len(records), Dropped: dropped}
	s.metrics.RecordAttendanceMarked(ctx, inserted, int64(len(records))-inserted)
	s.logger.InfoContext(ctx, "attendance marked",
		"date", day.Format("2006-01-02"),
		"inserted", result.Inserted,
		"attempted", result.Attempted,
	)

	if inserted > 0 {
		s.publishMarked(ctx, day.Format("2006-01-02"), MarkedEvent{
			Date:       day,
			Inserted:   inserted,
			Attempted:  len(records),
			StudentIDs: studentIDs(records),
		})
	}

	return result, nil
}

// publishMarked never fails the write that triggered it.
func (s *service) publishMarked(ctx context.Context, key string, event MarkedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish attendance event", "error", err, "date", key)
		return
	}
	s.metrics.RecordEventPublished(ctx)
}

func (s *service) FindAttendance(ctx context.Context, cmd FindAttendanceCommand) ([]Summary, error) {
	rng := daterange.Month(cmd.Year, cmd.Month)

	rows, err := s.repo.Find(ctx, Filter{StudentIDs: cmd.StudentIDs, Range: rng})
	if err != nil {
		return nil, fmt.Errorf("find attendance %s: %w", rng, err)
	}

	out := make([]Summary, len(rows))
	for i, row := range rows {
		out[i] = row.Summary()
	}
	return out, nil
}

func (s *service) GetAbsentStudents(ctx context.Context, cmd AbsenceQueryCommand) ([]Absence, error) {
	rng, err := daterange.Explicit(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Find(ctx, Filter{StudentIDs: cmd.StudentIDs, Range: rng, Status: StatusAbsent})
	if err != nil {
		return nil, fmt.Errorf("find absences %s: %w", rng, err)
	}
	s.metrics.RecordAbsenceQuery(ctx, len(rows))

	out := make([]Absence, len(rows))
	for i, row := range rows {
		out[i] = row.Absence()
	}
	return out, nil
}

func (s *service) FindRange(ctx context.Context, cmd RangeQueryCommand) ([]Attendance, error) {
	rng, err := daterange.Explicit(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Find(ctx, Filter{StudentIDs: cmd.StudentIDs, Range: rng, Status: cmd.Status})
	if err != nil {
		return nil, fmt.Errorf("find attendance %s: %w", rng, err)
	}
	for i := range rows {
		rows[i].Date = rows[i].Date.UTC()
	}
	return rows, nil
}

// UpdateReason sets the reason whatever the record's status is.
func (s *service) UpdateReason(ctx context.Context, cmd UpdateReasonCommand) (*Attendance, error) {
	if cmd.AttendanceID <= 0 {
		return nil, ErrInvalidInput
	}

	record, err := s.repo.UpdateReason(ctx, cmd.AttendanceID, cmd.Reason)
	if err != nil {
		return nil, err
	}
	record.Date = record.Date.UTC()

	s.metrics.RecordReasonUpdated(ctx)
	s.logger.InfoContext(ctx, "attendance reason updated", "attendance_id", cmd.AttendanceID)
	return record, nil
}

func (s *service) GetAttendance(ctx context.Context, id int64) (*Attendance, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Date = record.Date.UTC()
	return record, nil
}

func studentIDs(records []Attendance) []int64 {
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.StudentID
	}
	return ids
}
