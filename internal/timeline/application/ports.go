// Package application wires the timeline engine's use cases (branching,
// lineage walks, reference resolution, breakpoint management) to the
// persistence collaborator behind the Repository port.
package application

import (
	"time"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

// Summary is a lightweight listing row for a persisted timeline, used
// where loading full step data would be wasteful.
type Summary struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	StepCount   int
	FailedCount int
	ParentID    string
	BranchPoint *int
}

// IsBranch reports whether the summarized timeline was forked.
func (s Summary) IsBranch() bool { return s.ParentID != "" }

// Repository is the persistence port consumed by the engine. It must
// durably preserve step field types exactly and keep steps ordered by
// index. Implementations own any cross-process concurrency behavior;
// the engine assumes at most one active recorder per timeline.
type Repository interface {
	// Save persists the timeline, its steps, and its breakpoints.
	Save(t *domain.Timeline) error
	// FindByID loads a timeline by its unique id. Returns NotFoundError
	// when absent.
	FindByID(id string) (*domain.Timeline, error)
	// FindByName loads the most recently created timeline with the given
	// name. Returns NotFoundError when absent.
	FindByName(name string) (*domain.Timeline, error)
	// List returns summaries ordered by creation time descending. A
	// non-positive limit means no limit.
	List(limit int) ([]Summary, error)
	// ListByParent returns summaries of timelines branched from the
	// given parent id.
	ListByParent(parentID string) ([]Summary, error)
	// Delete removes a timeline and everything attached to it,
	// reporting whether a row was removed.
	Delete(id string) (bool, error)
}
