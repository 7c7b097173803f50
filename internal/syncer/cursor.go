package syncer

import (
	"strconv"
	"time"

	"github.com/Martian-dev/crm-sync-infra/internal/hubspot"
)

const (
	// pageSize is the maximum batch size the search API accepts.
	pageSize = 100

	// offsetCeiling is where pagination rebases: the remote API refuses
	// offsets at or beyond its 10,000-record ceiling regardless of how many
	// records match the filter.
	offsetCeiling = 9900
)

// Cursor tracks the offset and time-window baseline for one entity's
// traversal. The window is [baseline-or-checkpoint, runStart]; rebasing
// narrows it so the offset can restart from zero.
type Cursor struct {
	checkpoint time.Time
	runStart   time.Time
	offset     int
	baseline   time.Time
}

// NewCursor creates a cursor for a traversal covering everything modified
// between checkpoint and runStart. A zero checkpoint means a full backfill
// with no window filter.
func NewCursor(checkpoint, runStart time.Time) *Cursor {
	return &Cursor{checkpoint: checkpoint, runStart: runStart}
}

// NextRequest builds the search request for the current page: the date
// window filter, ascending sort on the filter property so the oldest
// changes land first, and the current offset.
func (c *Cursor) NextRequest(properties []string, dateProperty string) hubspot.SearchRequest {
	req := hubspot.SearchRequest{
		Sorts: []hubspot.Sort{
			{PropertyName: dateProperty, Direction: hubspot.DirectionAscending},
		},
		Properties: properties,
		Limit:      pageSize,
	}

	windowStart := c.checkpoint
	if !c.baseline.IsZero() {
		windowStart = c.baseline
	}
	if !windowStart.IsZero() {
		req.FilterGroups = []hubspot.FilterGroup{{
			Filters: []hubspot.Filter{
				{PropertyName: dateProperty, Operator: hubspot.OperatorGTE, Value: millis(windowStart)},
				{PropertyName: dateProperty, Operator: hubspot.OperatorLTE, Value: millis(c.runStart)},
			},
		}}
	}

	if c.offset > 0 {
		req.After = strconv.Itoa(c.offset)
	}

	return req
}

// Advance consumes the response paging of the page just fetched and
// reports whether another page should be requested. Reaching the offset
// ceiling rebases the traversal: offset resets and the window baseline
// moves to the last record's modification instant.
func (c *Cursor) Advance(paging *hubspot.Paging, last *hubspot.Record) bool {
	if paging == nil || paging.Next == nil || paging.Next.After == "" {
		return false
	}

	next, err := strconv.Atoi(paging.Next.After)
	if err != nil {
		return false
	}

	c.offset = next
	if c.offset >= offsetCeiling {
		c.offset = 0
		if last != nil {
			c.baseline = last.UpdatedAt
		}
	}

	return true
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
