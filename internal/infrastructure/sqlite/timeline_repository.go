package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/devrewind/rewind/internal/timeline/application"
	"github.com/devrewind/rewind/internal/timeline/domain"
)

// timelineRepository implements application.Repository using SQLite.
type timelineRepository struct {
	db *sql.DB
}

func newTimelineRepository(db *sql.DB) *timelineRepository {
	return &timelineRepository{db: db}
}

// Ensure timelineRepository implements application.Repository.
var _ application.Repository = (*timelineRepository)(nil)

// Save persists a timeline with its steps and breakpoints in one
// transaction. Steps and breakpoints are rewritten wholesale: the step
// sequence is append-only in the domain, so delete-and-reinsert is a
// simple upsert that cannot reorder anything.
func (r *timelineRepository) Save(t *domain.Timeline) (err error) {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if errRollback := tx.Rollback(); errRollback != nil && !errors.Is(errRollback, sql.ErrTxDone) {
				err = errors.Join(err, errRollback)
			}
		}
	}()

	m := toTimelineModel(t)
	_, err = tx.Exec(
		`INSERT INTO timelines (id, name, created_at, parent_id, branch_point)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		m.ID, m.Name, m.CreatedAt, m.ParentID, m.BranchPoint,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert timeline: %w", err)
	}

	if _, err = tx.Exec(`DELETE FROM steps WHERE timeline_id = ?`, m.ID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}
	for _, step := range t.Steps() {
		sm, merr := toStepModel(m.ID, step)
		if merr != nil {
			err = fmt.Errorf("failed to encode step %d: %w", step.Index, merr)
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO steps (timeline_id, step_index, command, stdout, stderr, exit_code, working_dir, timestamp, env_snapshot)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sm.TimelineID, sm.StepIndex, sm.Command, sm.Stdout, sm.Stderr, sm.ExitCode, sm.WorkingDir, sm.Timestamp, sm.EnvSnapshot,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.Index, err)
		}
	}

	if _, err = tx.Exec(`DELETE FROM breakpoints WHERE timeline_id = ?`, m.ID); err != nil {
		return fmt.Errorf("failed to clear breakpoints: %w", err)
	}
	for _, bp := range t.Breakpoints() {
		bm := toBreakpointModel(m.ID, bp)
		_, err = tx.Exec(
			`INSERT INTO breakpoints (timeline_id, kind, step_index, pattern) VALUES (?, ?, ?, ?)`,
			bm.TimelineID, bm.Kind, bm.StepIndex, bm.Pattern,
		)
		if err != nil {
			return fmt.Errorf("failed to insert breakpoint: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// FindByID loads a timeline by id, including steps and breakpoints.
func (r *timelineRepository) FindByID(id string) (*domain.Timeline, error) {
	row := r.db.QueryRow(
		`SELECT id, name, created_at, parent_id, branch_point FROM timelines WHERE id = ?`, id)
	return r.scanTimeline(row, id)
}

// FindByName loads the most recently created timeline with the given
// name.
func (r *timelineRepository) FindByName(name string) (*domain.Timeline, error) {
	row := r.db.QueryRow(
		`SELECT id, name, created_at, parent_id, branch_point
		 FROM timelines WHERE name = ? ORDER BY created_at DESC LIMIT 1`, name)
	return r.scanTimeline(row, name)
}

func (r *timelineRepository) scanTimeline(row *sql.Row, ref string) (*domain.Timeline, error) {
	var m timelineModel
	err := row.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.ParentID, &m.BranchPoint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Ref: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	steps, err := r.loadSteps(m.ID)
	if err != nil {
		return nil, err
	}
	bps, err := r.loadBreakpoints(m.ID)
	if err != nil {
		return nil, err
	}
	return m.toDomain(steps, bps), nil
}

func (r *timelineRepository) loadSteps(timelineID string) (_ []domain.Step, err error) {
	rows, err := r.db.Query(
		`SELECT timeline_id, step_index, command, stdout, stderr, exit_code, working_dir, timestamp, env_snapshot
		 FROM steps WHERE timeline_id = ? ORDER BY step_index`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil && err == nil {
			err = errClose
		}
	}()

	var steps []domain.Step
	for rows.Next() {
		var m stepModel
		if err := rows.Scan(&m.TimelineID, &m.StepIndex, &m.Command, &m.Stdout, &m.Stderr, &m.ExitCode, &m.WorkingDir, &m.Timestamp, &m.EnvSnapshot); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode step %d: %w", m.StepIndex, err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func (r *timelineRepository) loadBreakpoints(timelineID string) (_ []domain.Breakpoint, err error) {
	rows, err := r.db.Query(
		`SELECT timeline_id, kind, step_index, pattern FROM breakpoints WHERE timeline_id = ?`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load breakpoints: %w", err)
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil && err == nil {
			err = errClose
		}
	}()

	var bps []domain.Breakpoint
	for rows.Next() {
		var m breakpointModel
		if err := rows.Scan(&m.TimelineID, &m.Kind, &m.StepIndex, &m.Pattern); err != nil {
			return nil, fmt.Errorf("failed to scan breakpoint: %w", err)
		}
		bps = append(bps, m.toDomain())
	}
	return bps, rows.Err()
}

// List returns timeline summaries ordered by creation time descending.
func (r *timelineRepository) List(limit int) ([]application.Summary, error) {
	query := `SELECT t.id, t.name, t.created_at, t.parent_id, t.branch_point,
	                 COUNT(s.step_index), COALESCE(SUM(s.exit_code != 0), 0)
	          FROM timelines t
	          LEFT JOIN steps s ON s.timeline_id = t.id
	          GROUP BY t.id
	          ORDER BY t.created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.querySummaries(query, args...)
}

// ListByParent returns summaries of the direct branches of a parent
// timeline, oldest first.
func (r *timelineRepository) ListByParent(parentID string) ([]application.Summary, error) {
	query := `SELECT t.id, t.name, t.created_at, t.parent_id, t.branch_point,
	                 COUNT(s.step_index), COALESCE(SUM(s.exit_code != 0), 0)
	          FROM timelines t
	          LEFT JOIN steps s ON s.timeline_id = t.id
	          WHERE t.parent_id = ?
	          GROUP BY t.id
	          ORDER BY t.created_at ASC`
	return r.querySummaries(query, parentID)
}

func (r *timelineRepository) querySummaries(query string, args ...any) (_ []application.Summary, err error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timelines: %w", err)
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil && err == nil {
			err = errClose
		}
	}()

	var out []application.Summary
	for rows.Next() {
		var m timelineModel
		var stepCount, failedCount int
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt, &m.ParentID, &m.BranchPoint, &stepCount, &failedCount); err != nil {
			return nil, fmt.Errorf("failed to scan timeline summary: %w", err)
		}
		summary := application.Summary{
			ID:          m.ID,
			Name:        m.Name,
			CreatedAt:   timeFromNanos(m.CreatedAt),
			StepCount:   stepCount,
			FailedCount: failedCount,
		}
		if m.ParentID != nil {
			summary.ParentID = *m.ParentID
		}
		if m.BranchPoint != nil {
			bp := int(*m.BranchPoint)
			summary.BranchPoint = &bp
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Delete removes a timeline; steps and breakpoints cascade.
func (r *timelineRepository) Delete(id string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM timelines WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete timeline: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}
