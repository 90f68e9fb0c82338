package attendance

import (
	"time"

	"github.com/uptrace/bun"
)

// StatusAbsent is the only status the absence queries match on. Matching is
// exact and case-sensitive.
const StatusAbsent = "A"

// Attendance is one student's status for one calendar day. (student_id, date)
// is unique; Date is always UTC midnight.
type Attendance struct {
	bun.BaseModel `bun:"table:attendances,alias:a"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	StudentID int64     `bun:"student_id,notnull,unique:attendances_student_date" json:"studentId"`
	Date      time.Time `bun:"date,notnull,unique:attendances_student_date" json:"date"`
	Status    string    `bun:"status,notnull" json:"status"`
	Reason    *string   `bun:"reason" json:"reason"`
}

// Summary is the row shape of month queries; reason is left out.
type Summary struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// Absence is the row shape of absentee queries.
type Absence struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	Reason    *string   `json:"reason"`
}

func (a Attendance) Summary() Summary {
	return Summary{ID: a.ID, StudentID: a.StudentID, Date: a.Date.UTC(), Status: a.Status}
}

func (a Attendance) Absence() Absence {
	return Absence{ID: a.ID, StudentID: a.StudentID, Date: a.Date.UTC(), Status: a.Status, Reason: a.Reason}
}

// MarkResult reports a bulk write. Attempted counts entries that survived
// coercion; Inserted excludes rows skipped as duplicates.
type MarkResult struct {
	Inserted  int64 `json:"inserted"`
	Attempted int   `json:"attempted"`
	Dropped   int   `json:"-"`
}

// MarkedEvent is published after a bulk write inserted at least one row.
type MarkedEvent struct {
	Date       time.Time `json:"date"`
	Inserted   int64     `json:"inserted"`
	Attempted  int       `json:"attempted"`
	StudentIDs []int64   `json:"studentIds"`
}
