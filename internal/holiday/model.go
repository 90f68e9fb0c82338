package holiday

import (
	"time"

	"github.com/uptrace/bun"
)

// Holiday marks a calendar day on which no attendance is expected. Dates are
// unique and stored as UTC midnight.
type Holiday struct {
	bun.BaseModel `bun:"table:holidays,alias:h"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Date      time.Time `bun:"date,notnull,unique" json:"date"`
	Reason    string    `bun:"reason,notnull" json:"reason"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
