package engine

import (
	"context"
	"fmt"
	"time"

	"orchboard/internal/domain"
)

// RunView is a running run annotated with its elapsed time.
type RunView struct {
	domain.RunningRun
	DurationSeconds int64  `json:"duration_seconds"`
	DurationDisplay string `json:"duration_display"`
}

type RunningStatus struct {
	Running        []RunView `json:"running"`
	PendingCount   int       `json:"pending_count"`
	MaxConcurrent  int       `json:"max_concurrent"`
	AvailableSlots int       `json:"available_slots"`
	CanStart       bool      `json:"can_start"`
}

// RunningStatus reports the load on execution capacity. It never blocks a
// start; a scheduler must itself refuse to start runs once CanStart is false.
// Any read failure aborts the whole computation.
func (e Engine) RunningStatus(ctx context.Context) (RunningStatus, error) {
	runs, err := e.Store.ListRunningRuns(ctx)
	if err != nil {
		return RunningStatus{}, readErr("list running runs", err)
	}
	pending, err := e.Store.CountTasksWithStatus(ctx, domain.TaskPending)
	if err != nil {
		return RunningStatus{}, readErr("count pending tasks", err)
	}
	now := e.now()
	views := make([]RunView, 0, len(runs))
	for _, r := range runs {
		started, err := time.Parse(time.RFC3339, r.StartedAt)
		if err != nil {
			return RunningStatus{}, readErr("parse run started_at", fmt.Errorf("run %d: %w", r.ID, err))
		}
		secs := elapsedSeconds(started, now)
		views = append(views, RunView{
			RunningRun:      r,
			DurationSeconds: secs,
			DurationDisplay: FormatDuration(secs),
		})
	}
	ceiling := e.maxConcurrent()
	available := ceiling - len(views)
	if available < 0 {
		available = 0
	}
	e.Metrics.ObserveCapacity(len(views), pending, ceiling)
	return RunningStatus{
		Running:        views,
		PendingCount:   pending,
		MaxConcurrent:  ceiling,
		AvailableSlots: available,
		CanStart:       len(views) < ceiling,
	}, nil
}

// elapsedSeconds is whole seconds from start to now, clamped at zero when the
// start lies in the future.
func elapsedSeconds(start, now time.Time) int64 {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// FormatDuration renders seconds as "Mm Ns", or "Ns" under a minute.
func FormatDuration(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	m, s := secs/60, secs%60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
