package application

import (
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/devrewind/rewind/internal/log"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

// Service exposes the timeline engine's mutating and lookup use cases
// over a Repository. It is single-threaded: one caller, one operation at
// a time, matching the interactive front-end that drives it.
type Service struct {
	repo  Repository
	cache *gocache.Cache
}

// NewService creates a Service. Loaded timelines are cached briefly so
// operations that resolve the same timeline repeatedly within one
// command (diff endpoints, lineage walks) hit the store once.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Branch forks parent at fromStep into a new timeline.
//
// The new timeline's steps are a deep copy of parent.steps[0..fromStep]
// inclusive: appends to either timeline afterwards never affect the
// other. The parent is read-only during the operation and guaranteed
// unchanged afterwards. The branch is persisted before it is returned;
// a failed save surfaces as PersistenceError and leaves the parent
// valid and unaffected.
//
// newName defaults to "{parent.name}-branch-{fromStep}".
func (s *Service) Branch(parent *domain.Timeline, fromStep int, newName string) (*domain.Timeline, error) {
	if fromStep < 0 || fromStep >= parent.Len() {
		return nil, &domain.InvalidBranchPointError{Index: fromStep, Steps: parent.Len()}
	}

	if newName == "" {
		newName = fmt.Sprintf("%s-branch-%d", parent.Name(), fromStep)
	}

	branch := domain.NewBranch(newName, parent.ID(), fromStep)
	for _, step := range parent.CopyPrefix(fromStep) {
		if err := branch.Append(step); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(branch); err != nil {
		return nil, &domain.PersistenceError{Op: "save", Err: err}
	}

	log.Info(log.CatEngine, "Branch created",
		"id", branch.ID(), "name", branch.Name(),
		"parent", parent.ID(), "branch_point", fromStep)
	s.cache.SetDefault(branch.ID(), branch)
	return branch, nil
}

// Resolve loads a timeline by id, falling back to lookup by name. This
// is the shared front-end path: operators mostly type names, scripts
// pass ids.
func (s *Service) Resolve(ref string) (*domain.Timeline, error) {
	if cached, ok := s.cache.Get(ref); ok {
		return cached.(*domain.Timeline), nil
	}

	t, err := s.repo.FindByID(ref)
	if err != nil {
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
		t, err = s.repo.FindByName(ref)
		if err != nil {
			return nil, err
		}
	}

	s.cache.SetDefault(ref, t)
	s.cache.SetDefault(t.ID(), t)
	return t, nil
}

// Lineage returns the chain of timelines from the root ancestor down to
// t, resolving parent links through the repository. A broken or cyclic
// parent chain terminates the walk rather than failing it; lineage is
// diagnostic data.
func (s *Service) Lineage(t *domain.Timeline) ([]*domain.Timeline, error) {
	chain := []*domain.Timeline{t}
	seen := map[string]bool{t.ID(): true}

	current := t
	for current.IsBranch() {
		parentID := current.ParentID()
		if seen[parentID] {
			log.Warn(log.CatEngine, "Cycle in timeline lineage", "id", parentID)
			break
		}
		parent, err := s.Resolve(parentID)
		if err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				break
			}
			return chain, err
		}
		chain = append([]*domain.Timeline{parent}, chain...)
		seen[parentID] = true
		current = parent
	}
	return chain, nil
}

// AddBreakpoint adds bp to the timeline's breakpoint set and persists
// the change. Adding an equivalent breakpoint twice has the same effect
// as adding it once; the duplicate add skips the save entirely.
func (s *Service) AddBreakpoint(t *domain.Timeline, bp domain.Breakpoint) error {
	if !t.AddBreakpoint(bp) {
		return nil
	}
	if err := s.repo.Save(t); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// RemoveBreakpoint removes bp from the timeline's breakpoint set,
// persisting when something actually changed.
func (s *Service) RemoveBreakpoint(t *domain.Timeline, bp domain.Breakpoint) (bool, error) {
	if !t.RemoveBreakpoint(bp) {
		return false, nil
	}
	if err := s.repo.Save(t); err != nil {
		return false, &domain.PersistenceError{Op: "save", Err: err}
	}
	return true, nil
}

// Save persists the timeline and refreshes the cache entry.
func (s *Service) Save(t *domain.Timeline) error {
	if err := s.repo.Save(t); err != nil {
		return &domain.PersistenceError{Op: "save", Err: err}
	}
	s.cache.SetDefault(t.ID(), t)
	return nil
}

// List returns timeline summaries, newest first.
func (s *Service) List(limit int) ([]Summary, error) {
	return s.repo.List(limit)
}

// ListBranches returns summaries of the direct branches of a timeline.
func (s *Service) ListBranches(parentID string) ([]Summary, error) {
	return s.repo.ListByParent(parentID)
}

// Delete removes a timeline from the store. That a timeline can be
// deleted at all is a store-level convenience; the engine itself never
// destroys recorded history.
func (s *Service) Delete(id string) (bool, error) {
	deleted, err := s.repo.Delete(id)
	if err != nil {
		return false, &domain.PersistenceError{Op: "delete", Err: err}
	}
	s.cache.Delete(id)
	return deleted, nil
}
