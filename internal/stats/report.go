package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/neurlyn/internal/assessment"
	"github.com/verte-zerg/neurlyn/internal/model"
)

// SessionLister lists stored sessions.
type SessionLister interface {
	ListSessions(ctx context.Context, filter model.ListFilter) ([]model.SessionAggregate, error)
}

// Snapshotter recomputes the result of a stored session.
type Snapshotter interface {
	Snapshot(ctx context.Context, id string) (assessment.Snapshot, error)
}

// Report contains precomputed data for result rendering.
type Report struct {
	Sessions []model.SessionAggregate
	Snapshot *assessment.Snapshot
}

// BuildReport loads the session listing and the snapshot of sessionID. An
// empty sessionID selects the most recently started session in the listing.
func BuildReport(ctx context.Context, lister SessionLister, snap Snapshotter, filter model.ListFilter, sessionID string) (Report, error) {
	sessions, err := lister.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	if filter.Last > 0 && len(sessions) > filter.Last {
		sessions = sessions[len(sessions)-filter.Last:]
	}

	if sessionID == "" {
		if len(sessions) == 0 {
			return Report{Sessions: sessions}, nil
		}
		sessionID = sessions[len(sessions)-1].SessionID
	}
	s, err := snap.Snapshot(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return Report{Sessions: sessions, Snapshot: &s}, nil
}

// RenderOptions size the report plots.
type RenderOptions struct {
	Width       int
	Height      int
	CurveWindow int
	Color       bool
}

// Render writes the full report.
func (r Report) Render(w io.Writer, opts RenderOptions) error {
	if r.Snapshot == nil {
		return RenderSessionList(w, r.Sessions)
	}
	s := r.Snapshot
	if _, err := fmt.Fprintf(w, "Session %s (%s)\n\n", s.SessionID, s.Tier); err != nil {
		return err
	}
	if err := RenderSummary(w, s.Result, len(s.Responses)); err != nil {
		return err
	}
	if err := RenderTraitTable(w, s.Result.Scores, s.Responses); err != nil {
		return err
	}
	return RenderCurvesWithSize(w, s.Responses, opts.CurveWindow, opts.Width, opts.Height, opts.Color)
}
