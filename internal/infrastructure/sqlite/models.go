package sqlite

import (
	"encoding/json"
	"time"

	"github.com/devrewind/rewind/internal/timeline/domain"
)

// timelineModel is the database row shape for the timelines table.
// Timestamps are stored as Unix nanoseconds so a loaded step compares
// equal, field for field, to the step that was saved.
type timelineModel struct {
	ID          string
	Name        string
	CreatedAt   int64
	ParentID    *string
	BranchPoint *int64
}

// stepModel is the database row shape for the steps table.
type stepModel struct {
	TimelineID  string
	StepIndex   int64
	Command     string
	Stdout      string
	Stderr      string
	ExitCode    int64
	WorkingDir  string
	Timestamp   int64
	EnvSnapshot string // JSON object
}

// breakpointModel is the database row shape for the breakpoints table.
type breakpointModel struct {
	TimelineID string
	Kind       string
	StepIndex  int64
	Pattern    string
}

func timeFromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func toTimelineModel(t *domain.Timeline) timelineModel {
	m := timelineModel{
		ID:        t.ID(),
		Name:      t.Name(),
		CreatedAt: t.CreatedAt().UnixNano(),
	}
	if t.IsBranch() {
		parentID := t.ParentID()
		m.ParentID = &parentID
		bp := int64(*t.BranchPoint())
		m.BranchPoint = &bp
	}
	return m
}

func toStepModel(timelineID string, s domain.Step) (stepModel, error) {
	env := "{}"
	if len(s.EnvSnapshot) > 0 {
		raw, err := json.Marshal(s.EnvSnapshot)
		if err != nil {
			return stepModel{}, err
		}
		env = string(raw)
	}
	return stepModel{
		TimelineID:  timelineID,
		StepIndex:   int64(s.Index),
		Command:     s.Command,
		Stdout:      s.Stdout,
		Stderr:      s.Stderr,
		ExitCode:    int64(s.ExitCode),
		WorkingDir:  s.WorkingDir,
		Timestamp:   s.Timestamp.UnixNano(),
		EnvSnapshot: env,
	}, nil
}

func (m stepModel) toDomain() (domain.Step, error) {
	var env map[string]string
	if m.EnvSnapshot != "" && m.EnvSnapshot != "{}" {
		if err := json.Unmarshal([]byte(m.EnvSnapshot), &env); err != nil {
			return domain.Step{}, err
		}
	}
	return domain.Step{
		Index:       int(m.StepIndex),
		Command:     m.Command,
		Stdout:      m.Stdout,
		Stderr:      m.Stderr,
		ExitCode:    int(m.ExitCode),
		WorkingDir:  m.WorkingDir,
		Timestamp:   timeFromNanos(m.Timestamp),
		EnvSnapshot: env,
	}, nil
}

func toBreakpointModel(timelineID string, bp domain.Breakpoint) breakpointModel {
	return breakpointModel{
		TimelineID: timelineID,
		Kind:       string(bp.Kind),
		StepIndex:  int64(bp.StepIndex),
		Pattern:    bp.Pattern,
	}
}

func (m breakpointModel) toDomain() domain.Breakpoint {
	return domain.Breakpoint{
		Kind:      domain.BreakpointKind(m.Kind),
		StepIndex: int(m.StepIndex),
		Pattern:   m.Pattern,
	}
}

func (m timelineModel) toDomain(steps []domain.Step, bps []domain.Breakpoint) *domain.Timeline {
	var parentID string
	var branchPoint *int
	if m.ParentID != nil {
		parentID = *m.ParentID
	}
	if m.BranchPoint != nil {
		bp := int(*m.BranchPoint)
		branchPoint = &bp
	}
	return domain.Reconstitute(
		m.ID,
		m.Name,
		timeFromNanos(m.CreatedAt),
		steps,
		parentID,
		branchPoint,
		bps,
	)
}
