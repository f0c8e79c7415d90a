package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

func step(index int, command string, exitCode int) domain.Step {
	return domain.Step{
		Index:      index,
		Command:    command,
		ExitCode:   exitCode,
		WorkingDir: "/srv/app",
		Timestamp:  time.Date(2026, 3, 14, 9, 0, index, 0, time.UTC),
		EnvSnapshot: map[string]string{
			"PATH": "/usr/bin",
			"USER": "deploy",
		},
	}
}

func deployTimeline(t *testing.T) *domain.Timeline {
	t.Helper()
	tl := domain.NewTimeline("deploy")
	require.NoError(t, tl.Append(step(0, "git pull", 0)))
	require.NoError(t, tl.Append(step(1, "make build", 0)))
	require.NoError(t, tl.Append(step(2, "make deploy", 1)))
	return tl
}

func newService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo), repo
}

// ===========================================================================
// Branch
// ===========================================================================

func TestBranch(t *testing.T) {
	t.Run("copies the prefix up to and including the branch point", func(t *testing.T) {
		svc, _ := newService(t)
		parent := deployTimeline(t)
		require.NoError(t, svc.Save(parent))

		branch, err := svc.Branch(parent, 1, "")
		require.NoError(t, err)

		require.Equal(t, 2, branch.Len())
		require.Equal(t, "git pull", branch.Steps()[0].Command)
		require.Equal(t, "make build", branch.Steps()[1].Command)
		require.Equal(t, parent.ID(), branch.ParentID())
		require.NotNil(t, branch.BranchPoint())
		require.Equal(t, 1, *branch.BranchPoint())
		require.NotEqual(t, parent.ID(), branch.ID())
	})

	t.Run("default name encodes parent and branch point", func(t *testing.T) {
		svc, _ := newService(t)
		parent := deployTimeline(t)

		branch, err := svc.Branch(parent, 2, "")
		require.NoError(t, err)
		require.Equal(t, "deploy-branch-2", branch.Name())
	})

	t.Run("explicit name wins", func(t *testing.T) {
		svc, _ := newService(t)
		parent := deployTimeline(t)

		branch, err := svc.Branch(parent, 0, "retry-with-staging")
		require.NoError(t, err)
		require.Equal(t, "retry-with-staging", branch.Name())
	})

	t.Run("branch is persisted before it is returned", func(t *testing.T) {
		svc, repo := newService(t)
		parent := deployTimeline(t)

		branch, err := svc.Branch(parent, 1, "")
		require.NoError(t, err)

		stored, err := repo.FindByID(branch.ID())
		require.NoError(t, err)
		require.Equal(t, 2, stored.Len())
	})

	t.Run("appending to the branch leaves the parent untouched", func(t *testing.T) {
		svc, _ := newService(t)
		parent := deployTimeline(t)

		branch, err := svc.Branch(parent, 1, "")
		require.NoError(t, err)

		require.NoError(t, branch.Append(step(2, "make deploy --env=staging", 0)))
		require.Equal(t, 3, parent.Len())
		require.Equal(t, "make deploy", parent.Steps()[2].Command)
	})

	t.Run("copied steps share no state with the parent", func(t *testing.T) {
		svc, _ := newService(t)
		parent := deployTimeline(t)

		branch, err := svc.Branch(parent, 1, "")
		require.NoError(t, err)

		branch.Steps()[0].EnvSnapshot["PATH"] = "/tampered"
		require.Equal(t, "/usr/bin", parent.Steps()[0].EnvSnapshot["PATH"])
	})
}

func TestBranch_InvalidBranchPoint(t *testing.T) {
	svc, _ := newService(t)
	parent := deployTimeline(t)
	var invalid *domain.InvalidBranchPointError

	_, err := svc.Branch(parent, -1, "")
	require.ErrorAs(t, err, &invalid)

	_, err = svc.Branch(parent, 3, "")
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, 3, invalid.Index)
	require.Equal(t, 3, invalid.Steps)
}

// failingRepo wraps another Repository and fails every Save.
type failingRepo struct {
	Repository
}

func (r *failingRepo) Save(*domain.Timeline) error {
	return errors.New("disk full")
}

func TestBranch_SaveFailure(t *testing.T) {
	svc := NewService(&failingRepo{NewMemoryRepository()})
	parent := deployTimeline(t)

	_, err := svc.Branch(parent, 1, "")
	var pe *domain.PersistenceError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "save", pe.Op)

	// The parent is unaffected by the failed fork.
	require.Equal(t, 3, parent.Len())
	require.NoError(t, parent.Validate())
}

// ===========================================================================
// Resolve
// ===========================================================================

func TestResolve(t *testing.T) {
	t.Run("by id", func(t *testing.T) {
		svc, _ := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))

		got, err := svc.Resolve(tl.ID())
		require.NoError(t, err)
		require.Equal(t, tl.ID(), got.ID())
	})

	t.Run("falls back to name", func(t *testing.T) {
		svc, _ := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))

		got, err := svc.Resolve("deploy")
		require.NoError(t, err)
		require.Equal(t, tl.ID(), got.ID())
	})

	t.Run("unknown ref", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.Resolve("no-such-timeline")
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("name collision resolves to the newest", func(t *testing.T) {
		svc, repo := newService(t)

		older := domain.Reconstitute("id-old", "deploy",
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, "", nil, nil)
		newer := domain.Reconstitute("id-new", "deploy",
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), nil, "", nil, nil)
		require.NoError(t, repo.Save(older))
		require.NoError(t, repo.Save(newer))

		got, err := svc.Resolve("deploy")
		require.NoError(t, err)
		require.Equal(t, "id-new", got.ID())
	})
}

// ===========================================================================
// Lineage
// ===========================================================================

func TestLineage(t *testing.T) {
	t.Run("root timeline is its own lineage", func(t *testing.T) {
		svc, _ := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))

		chain, err := svc.Lineage(tl)
		require.NoError(t, err)
		require.Len(t, chain, 1)
		require.Equal(t, tl.ID(), chain[0].ID())
	})

	t.Run("walks root to leaf", func(t *testing.T) {
		svc, _ := newService(t)
		root := deployTimeline(t)
		require.NoError(t, svc.Save(root))

		mid, err := svc.Branch(root, 1, "mid")
		require.NoError(t, err)
		leaf, err := svc.Branch(mid, 0, "leaf")
		require.NoError(t, err)

		chain, err := svc.Lineage(leaf)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		require.Equal(t, root.ID(), chain[0].ID())
		require.Equal(t, mid.ID(), chain[1].ID())
		require.Equal(t, leaf.ID(), chain[2].ID())
	})

	t.Run("missing parent terminates the walk", func(t *testing.T) {
		svc, _ := newService(t)
		bp := 0
		orphan := domain.Reconstitute("orphan", "orphan",
			time.Now().UTC(), []domain.Step{step(0, "ls", 0)}, "gone", &bp, nil)

		chain, err := svc.Lineage(orphan)
		require.NoError(t, err)
		require.Len(t, chain, 1)
	})

	t.Run("cyclic parent chain terminates the walk", func(t *testing.T) {
		svc, repo := newService(t)
		bp := 0
		a := domain.Reconstitute("cycle-a", "a",
			time.Now().UTC(), []domain.Step{step(0, "ls", 0)}, "cycle-b", &bp, nil)
		b := domain.Reconstitute("cycle-b", "b",
			time.Now().UTC(), []domain.Step{step(0, "ls", 0)}, "cycle-a", &bp, nil)
		require.NoError(t, repo.Save(a))
		require.NoError(t, repo.Save(b))

		chain, err := svc.Lineage(a)
		require.NoError(t, err)
		require.Len(t, chain, 2)
	})
}

// ===========================================================================
// Breakpoints
// ===========================================================================

func TestServiceBreakpoints(t *testing.T) {
	t.Run("add persists", func(t *testing.T) {
		svc, repo := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))

		require.NoError(t, svc.AddBreakpoint(tl, domain.StepBreakpoint(1)))

		stored, err := repo.FindByID(tl.ID())
		require.NoError(t, err)
		require.Len(t, stored.Breakpoints(), 1)
	})

	t.Run("duplicate add is a no-op, even against a failing store", func(t *testing.T) {
		svc, _ := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))
		require.NoError(t, svc.AddBreakpoint(tl, domain.ErrorBreakpoint()))

		// The second add must not touch the repository at all.
		failing := NewService(&failingRepo{NewMemoryRepository()})
		require.NoError(t, failing.AddBreakpoint(tl, domain.ErrorBreakpoint()))
		require.Len(t, tl.Breakpoints(), 1)
	})

	t.Run("remove persists and reports", func(t *testing.T) {
		svc, repo := newService(t)
		tl := deployTimeline(t)
		require.NoError(t, svc.Save(tl))
		require.NoError(t, svc.AddBreakpoint(tl, domain.StepBreakpoint(1)))

		removed, err := svc.RemoveBreakpoint(tl, domain.StepBreakpoint(1))
		require.NoError(t, err)
		require.True(t, removed)

		removed, err = svc.RemoveBreakpoint(tl, domain.StepBreakpoint(1))
		require.NoError(t, err)
		require.False(t, removed)

		stored, err := repo.FindByID(tl.ID())
		require.NoError(t, err)
		require.Empty(t, stored.Breakpoints())
	})
}

// ===========================================================================
// Listing and deletion
// ===========================================================================

func TestListAndDelete(t *testing.T) {
	svc, _ := newService(t)
	root := deployTimeline(t)
	require.NoError(t, svc.Save(root))
	branch, err := svc.Branch(root, 1, "")
	require.NoError(t, err)

	summaries, err := svc.List(0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	branches, err := svc.ListBranches(root.ID())
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.Equal(t, branch.ID(), branches[0].ID)
	require.True(t, branches[0].IsBranch())

	deleted, err := svc.Delete(branch.ID())
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = svc.Delete(branch.ID())
	require.NoError(t, err)
	require.False(t, deleted)
}

// ===========================================================================
// Properties
// ===========================================================================

// TestProperty_BranchPrefixEquality checks that for any recorded
// timeline and any valid branch point, the branch's steps equal the
// parent's prefix step for step.
func TestProperty_BranchPrefixEquality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc := NewService(NewMemoryRepository())

		n := rapid.IntRange(1, 10).Draw(t, "steps")
		parent := domain.NewTimeline("prop")
		for i := 0; i < n; i++ {
			s := step(i,
				rapid.StringMatching(`[a-z ]{1,10}`).Draw(t, "command"),
				rapid.IntRange(0, 1).Draw(t, "exit"))
			if err := parent.Append(s); err != nil {
				t.Fatalf("append: %v", err)
			}
		}

		from := rapid.IntRange(0, n-1).Draw(t, "from")
		branch, err := svc.Branch(parent, from, "")
		if err != nil {
			t.Fatalf("branch: %v", err)
		}

		if branch.Len() != from+1 {
			t.Fatalf("branch has %d steps, want %d", branch.Len(), from+1)
		}
		for i := 0; i <= from; i++ {
			ps, _ := parent.StepAt(i)
			bs, _ := branch.StepAt(i)
			if !ps.Equal(bs) {
				t.Fatalf("step %d differs between parent and branch", i)
			}
		}
	})
}
