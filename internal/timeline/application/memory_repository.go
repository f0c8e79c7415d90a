package application

import (
	"sort"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

// MemoryRepository is an in-memory Repository. It clones timelines on
// the way in and out, so it has the same value semantics as a durable
// store: callers never share mutable state with the repository. Used in
// tests and anywhere a throwaway store is handy.
type MemoryRepository struct {
	timelines map[string]*domain.Timeline
	order     []string // insertion order, newest last
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{timelines: make(map[string]*domain.Timeline)}
}

// Ensure MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// Save stores a deep copy of the timeline.
func (r *MemoryRepository) Save(t *domain.Timeline) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := r.timelines[t.ID()]; !exists {
		r.order = append(r.order, t.ID())
	}
	r.timelines[t.ID()] = t.Clone()
	return nil
}

// FindByID returns a deep copy of the stored timeline.
func (r *MemoryRepository) FindByID(id string) (*domain.Timeline, error) {
	t, ok := r.timelines[id]
	if !ok {
		return nil, &domain.NotFoundError{Ref: id}
	}
	return t.Clone(), nil
}

// FindByName returns the most recently created timeline with the name.
func (r *MemoryRepository) FindByName(name string) (*domain.Timeline, error) {
	var match *domain.Timeline
	for _, t := range r.timelines {
		if t.Name() != name {
			continue
		}
		if match == nil || t.CreatedAt().After(match.CreatedAt()) {
			match = t
		}
	}
	if match == nil {
		return nil, &domain.NotFoundError{Ref: name}
	}
	return match.Clone(), nil
}

// List returns summaries newest first.
func (r *MemoryRepository) List(limit int) ([]Summary, error) {
	out := make([]Summary, 0, len(r.timelines))
	for _, t := range r.timelines {
		out = append(out, summarize(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByParent returns summaries of direct branches, oldest first.
func (r *MemoryRepository) ListByParent(parentID string) ([]Summary, error) {
	var out []Summary
	for _, id := range r.order {
		t := r.timelines[id]
		if t.ParentID() == parentID {
			out = append(out, summarize(t))
		}
	}
	return out, nil
}

// Delete removes a timeline, reporting whether it existed.
func (r *MemoryRepository) Delete(id string) (bool, error) {
	if _, ok := r.timelines[id]; !ok {
		return false, nil
	}
	delete(r.timelines, id)
	for i, stored := range r.order {
		if stored == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func summarize(t *domain.Timeline) Summary {
	s := Summary{
		ID:          t.ID(),
		Name:        t.Name(),
		CreatedAt:   t.CreatedAt(),
		StepCount:   t.Len(),
		FailedCount: len(t.FailedSteps()),
		ParentID:    t.ParentID(),
	}
	if bp := t.BranchPoint(); bp != nil {
		val := *bp
		s.BranchPoint = &val
	}
	return s
}
