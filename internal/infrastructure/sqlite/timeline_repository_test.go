package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devrewind/rewind/internal/timeline/application"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "rewind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testStep(index int, command string, exitCode int) domain.Step {
	return domain.Step{
		Index:      index,
		Command:    command,
		Stdout:     "stdout of " + command + "\n",
		Stderr:     "",
		ExitCode:   exitCode,
		WorkingDir: "/srv/app",
		Timestamp:  time.Date(2026, 3, 14, 9, 0, index, 123456789, time.UTC),
		EnvSnapshot: map[string]string{
			"PATH": "/usr/local/bin:/usr/bin",
			"USER": "deploy",
			"PWD":  "/srv/app",
		},
	}
}

func deployTimeline(t *testing.T) *domain.Timeline {
	t.Helper()
	tl := domain.NewTimeline("deploy")
	require.NoError(t, tl.Append(testStep(0, "git pull", 0)))
	require.NoError(t, tl.Append(testStep(1, "make build", 0)))
	require.NoError(t, tl.Append(testStep(2, "make deploy", 1)))
	return tl
}

// ===========================================================================
// Save / Find round trips
// ===========================================================================

func TestSaveAndFindByID(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	tl := deployTimeline(t)
	require.NoError(t, repo.Save(tl))

	loaded, err := repo.FindByID(tl.ID())
	require.NoError(t, err)

	require.Equal(t, tl.ID(), loaded.ID())
	require.Equal(t, tl.Name(), loaded.Name())
	require.True(t, tl.CreatedAt().Equal(loaded.CreatedAt()), "creation time should round-trip exactly")
	require.Equal(t, tl.Len(), loaded.Len())

	// Every step field round-trips exactly, including nanosecond
	// timestamps and the env snapshot.
	for i := 0; i < tl.Len(); i++ {
		want, _ := tl.StepAt(i)
		got, _ := loaded.StepAt(i)
		require.True(t, want.Equal(got), "step %d should round-trip", i)
		require.True(t, want.Timestamp.Equal(got.Timestamp), "step %d timestamp should round-trip", i)
		require.Equal(t, want.EnvSnapshot, got.EnvSnapshot, "step %d env should round-trip", i)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	tl := deployTimeline(t)
	require.NoError(t, repo.Save(tl))

	require.NoError(t, tl.Append(testStep(3, "make verify", 0)))
	require.NoError(t, repo.Save(tl))

	loaded, err := repo.FindByID(tl.ID())
	require.NoError(t, err)
	require.Equal(t, 4, loaded.Len())

	// Only one row exists for the timeline.
	var count int
	err = db.Connection().QueryRow(`SELECT COUNT(*) FROM timelines WHERE id = ?`, tl.ID()).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestSaveBranchFields(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	parent := deployTimeline(t)
	require.NoError(t, repo.Save(parent))

	branch := domain.NewBranch("deploy-branch-1", parent.ID(), 1)
	for _, s := range parent.CopyPrefix(1) {
		require.NoError(t, branch.Append(s))
	}
	require.NoError(t, repo.Save(branch))

	loaded, err := repo.FindByID(branch.ID())
	require.NoError(t, err)
	require.Equal(t, parent.ID(), loaded.ParentID())
	require.NotNil(t, loaded.BranchPoint())
	require.Equal(t, 1, *loaded.BranchPoint())
	require.True(t, loaded.IsBranch())
}

func TestSaveBreakpoints(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	tl := deployTimeline(t)
	pattern, err := domain.PatternBreakpoint(`^make`)
	require.NoError(t, err)
	tl.AddBreakpoint(domain.StepBreakpoint(1))
	tl.AddBreakpoint(pattern)
	tl.AddBreakpoint(domain.ErrorBreakpoint())
	require.NoError(t, repo.Save(tl))

	loaded, err := repo.FindByID(tl.ID())
	require.NoError(t, err)

	bps := loaded.Breakpoints()
	require.Len(t, bps, 3)
	kinds := make(map[domain.BreakpointKind]domain.Breakpoint)
	for _, bp := range bps {
		kinds[bp.Kind] = bp
	}
	require.Equal(t, 1, kinds[domain.BreakAtStep].StepIndex)
	require.Equal(t, "^make", kinds[domain.BreakOnPattern].Pattern)
	require.Contains(t, kinds, domain.BreakOnError)
}

func TestFindByName(t *testing.T) {
	t.Run("most recent wins on name collision", func(t *testing.T) {
		db := testDB(t)
		repo := db.TimelineRepository()

		older := domain.Reconstitute("id-old", "deploy",
			time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), nil, "", nil, nil)
		newer := domain.Reconstitute("id-new", "deploy",
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), nil, "", nil, nil)
		require.NoError(t, repo.Save(older))
		require.NoError(t, repo.Save(newer))

		loaded, err := repo.FindByName("deploy")
		require.NoError(t, err)
		require.Equal(t, "id-new", loaded.ID())
	})

	t.Run("absent name", func(t *testing.T) {
		db := testDB(t)
		repo := db.TimelineRepository()

		_, err := repo.FindByName("no-such-name")
		var nf *domain.NotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "no-such-name", nf.Ref)
	})
}

func TestFindByID_NotFound(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	_, err := repo.FindByID("missing")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

// ===========================================================================
// Listing
// ===========================================================================

func TestList(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	first := domain.Reconstitute("id-1", "first",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		[]domain.Step{testStep(0, "git pull", 0), testStep(1, "make build", 1)},
		"", nil, nil)
	second := domain.Reconstitute("id-2", "second",
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		[]domain.Step{testStep(0, "ls", 0)},
		"", nil, nil)
	require.NoError(t, repo.Save(first))
	require.NoError(t, repo.Save(second))

	summaries, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Newest first.
	require.Equal(t, "id-2", summaries[0].ID)
	require.Equal(t, "id-1", summaries[1].ID)

	require.Equal(t, 1, summaries[0].StepCount)
	require.Equal(t, 0, summaries[0].FailedCount)
	require.Equal(t, 2, summaries[1].StepCount)
	require.Equal(t, 1, summaries[1].FailedCount)

	limited, err := repo.List(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, "id-2", limited[0].ID)
}

func TestList_EmptyTimelineHasZeroCounts(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	tl := domain.NewTimeline("fresh")
	require.NoError(t, repo.Save(tl))

	summaries, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 0, summaries[0].StepCount)
	require.Equal(t, 0, summaries[0].FailedCount)
}

func TestListByParent(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	parent := deployTimeline(t)
	require.NoError(t, repo.Save(parent))

	for i, created := range []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	} {
		bp := i
		branch := domain.Reconstitute("branch-"+string(rune('a'+i)), "branch",
			created, []domain.Step{testStep(0, "ls", 0)}, parent.ID(), &bp, nil)
		require.NoError(t, repo.Save(branch))
	}

	branches, err := repo.ListByParent(parent.ID())
	require.NoError(t, err)
	require.Len(t, branches, 2)

	// Oldest first.
	require.Equal(t, "branch-a", branches[0].ID)
	require.Equal(t, "branch-b", branches[1].ID)
	require.Equal(t, parent.ID(), branches[0].ParentID)
	require.NotNil(t, branches[1].BranchPoint)
	require.Equal(t, 1, *branches[1].BranchPoint)

	none, err := repo.ListByParent("no-such-parent")
	require.NoError(t, err)
	require.Empty(t, none)
}

// ===========================================================================
// Delete
// ===========================================================================

func TestDelete(t *testing.T) {
	db := testDB(t)
	repo := db.TimelineRepository()

	tl := deployTimeline(t)
	tl.AddBreakpoint(domain.ErrorBreakpoint())
	require.NoError(t, repo.Save(tl))

	deleted, err := repo.Delete(tl.ID())
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = repo.FindByID(tl.ID())
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	// Steps and breakpoints cascade with the timeline row.
	var stepCount, bpCount int
	require.NoError(t, db.Connection().QueryRow(
		`SELECT COUNT(*) FROM steps WHERE timeline_id = ?`, tl.ID()).Scan(&stepCount))
	require.NoError(t, db.Connection().QueryRow(
		`SELECT COUNT(*) FROM breakpoints WHERE timeline_id = ?`, tl.ID()).Scan(&bpCount))
	require.Equal(t, 0, stepCount)
	require.Equal(t, 0, bpCount)

	deleted, err = repo.Delete(tl.ID())
	require.NoError(t, err)
	require.False(t, deleted, "deleting an absent timeline reports false")
}

// ===========================================================================
// Service integration
// ===========================================================================

// TestServiceOverSQLite exercises the branch and resolve use cases over
// the real store instead of the in-memory repository.
func TestServiceOverSQLite(t *testing.T) {
	db := testDB(t)
	svc := application.NewService(db.TimelineRepository())

	parent := deployTimeline(t)
	require.NoError(t, svc.Save(parent))

	branch, err := svc.Branch(parent, 1, "")
	require.NoError(t, err)
	require.Equal(t, "deploy-branch-1", branch.Name())

	resolved, err := svc.Resolve("deploy-branch-1")
	require.NoError(t, err)
	require.Equal(t, branch.ID(), resolved.ID())
	require.Equal(t, 2, resolved.Len())

	chain, err := svc.Lineage(resolved)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, parent.ID(), chain[0].ID())
}
