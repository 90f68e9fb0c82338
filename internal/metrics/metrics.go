package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the domain counters of the attendance service. A nil
// *Metrics or a zero value ignores every Record call.
type Metrics struct {
	attendanceInserted metric.Int64Counter
	duplicatesSkipped  metric.Int64Counter
	entriesDropped     metric.Int64Counter
	absenceQueries     metric.Int64Counter
	absencesReturned   metric.Int64Histogram
	reasonsUpdated     metric.Int64Counter
	eventsPublished    metric.Int64Counter
	holidayChanges     metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.attendanceInserted, "attendance_service.records.inserted", "Attendance rows written by bulk marks", "{record}"},
		{&m.duplicatesSkipped, "attendance_service.records.duplicates_skipped", "Bulk entries skipped because the student already had a row for the day", "{record}"},
		{&m.entriesDropped, "attendance_service.entries.dropped", "Bulk entries dropped for a non-numeric id or blank status", "{entry}"},
		{&m.absenceQueries, "attendance_service.absences.queries", "Absentee queries served", "{query}"},
		{&m.reasonsUpdated, "attendance_service.reasons.updated", "Absence reasons written", "{update}"},
		{&m.eventsPublished, "attendance_service.events.published", "Attendance events handed to the broker", "{event}"},
		{&m.holidayChanges, "attendance_service.holidays.changes", "Holiday calendar writes", "{change}"},
	}

	var err error
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
	}

	m.absencesReturned, err = meter.Int64Histogram(
		"attendance_service.absences.returned",
		metric.WithDescription("Rows returned per absentee query"),
		metric.WithUnit("{record}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordAttendanceMarked(ctx context.Context, inserted, skipped int64) {
	if m == nil || m.attendanceInserted == nil {
		return
	}
	m.attendanceInserted.Add(ctx, inserted)
	if skipped > 0 {
		m.duplicatesSkipped.Add(ctx, skipped)
	}
}

func (m *Metrics) RecordEntriesDropped(ctx context.Context, n int) {
	if m != nil && m.entriesDropped != nil {
		m.entriesDropped.Add(ctx, int64(n))
	}
}

func (m *Metrics) RecordAbsenceQuery(ctx context.Context, returned int) {
	if m == nil || m.absenceQueries == nil {
		return
	}
	m.absenceQueries.Add(ctx, 1)
	m.absencesReturned.Record(ctx, int64(returned))
}

func (m *Metrics) RecordReasonUpdated(ctx context.Context) {
	if m != nil && m.reasonsUpdated != nil {
		m.reasonsUpdated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordEventPublished(ctx context.Context) {
	if m != nil && m.eventsPublished != nil {
		m.eventsPublished.Add(ctx, 1)
	}
}

// RecordHolidayChange counts a holiday write; op is create, update or delete.
func (m *Metrics) RecordHolidayChange(ctx context.Context, op string) {
	if m != nil && m.holidayChanges != nil {
		m.holidayChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}

// NewMock creates a no-op Metrics instance for testing
func NewMock() *Metrics {
	return &Metrics{}
}
