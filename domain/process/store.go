package process

import (
	"context"
	"sort"
	"time"
)

// Store defines process persistence.
// Implementations may be in-memory, SQL, key-value or document backed.
type Store interface {
	// Save persists a new process.
	Save(ctx context.Context, p *Process) error

	// Get retrieves a process by ID.
	Get(ctx context.Context, id string) (*Process, error)

	// Update replaces an existing process.
	Update(ctx context.Context, p *Process) error

	// Delete removes a process by ID.
	Delete(ctx context.Context, id string) error

	// List returns processes matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Process, error)

	// Count returns the number of processes matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

// ListFilter specifies criteria for listing processes.
type ListFilter struct {
	// Status filters by status (empty means all).
	Status []Status

	// Goal filters by exact goal name.
	Goal string

	// FromTime filters processes created at or after this time.
	FromTime time.Time

	// ToTime filters processes created before this time.
	ToTime time.Time

	// Limit is the maximum number of processes to return (0 = no limit).
	Limit int

	// Offset is the number of processes to skip.
	Offset int

	// OrderBy specifies the sort order.
	OrderBy OrderBy

	// Descending reverses the sort order.
	Descending bool
}

// OrderBy specifies how to sort processes.
type OrderBy string

const (
	OrderByCreatedAt OrderBy = "created_at"
	OrderByEndTime   OrderBy = "end_time"
	OrderByID        OrderBy = "id"
	OrderByStatus    OrderBy = "status"
)

// Matches reports whether p satisfies the filter's predicates.
// Limit, offset and ordering are not considered.
func (f ListFilter) Matches(p *Process) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Goal != "" && p.Goal != f.Goal {
		return false
	}
	if !f.FromTime.IsZero() && p.CreatedAt.Before(f.FromTime) {
		return false
	}
	if !f.ToTime.IsZero() && !p.CreatedAt.Before(f.ToTime) {
		return false
	}
	return true
}

// Apply sorts ps in place by the filter's ordering and returns the page
// selected by Offset and Limit. Ties keep ID order so results are stable.
func (f ListFilter) Apply(ps []*Process) []*Process {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if f.Descending {
			a, b = b, a
		}
		switch f.OrderBy {
		case OrderByEndTime:
			if !a.EndTime.Equal(b.EndTime) {
				return a.EndTime.Before(b.EndTime)
			}
		case OrderByID:
		case OrderByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(ps) {
			return []*Process{}
		}
		ps = ps[f.Offset:]
	}
	if f.Limit > 0 && len(ps) > f.Limit {
		ps = ps[:f.Limit]
	}
	return ps
}
