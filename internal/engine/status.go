package engine

import (
	"context"
	"errors"

	"orchboard/internal/domain"
	"orchboard/internal/repo"
)

const statusRecentTasks = 50

type StatusOverview struct {
	Timestamp   string              `json:"timestamp" format:"date-time"`
	UserProfile *domain.UserProfile `json:"user_profile"`
	Projects    []domain.Project    `json:"projects"`
	RecentTasks []domain.Task       `json:"recent_tasks"`
	Degraded    []string            `json:"degraded"`
}

// Status gathers the dashboard overview. Each section is read on its own; a
// failed section is logged, left empty and named in Degraded.
func (e Engine) Status(ctx context.Context) StatusOverview {
	out := StatusOverview{
		Timestamp:   e.timestamp(),
		Projects:    []domain.Project{},
		RecentTasks: []domain.Task{},
		Degraded:    []string{},
	}
	degrade := func(section string, err error) {
		e.warnf("status section %s degraded: %v", section, err)
		out.Degraded = append(out.Degraded, section)
	}
	if p, err := e.Store.GetUserProfile(ctx); err == nil {
		out.UserProfile = &p
	} else if !errors.Is(err, repo.ErrNotFound) {
		degrade("user_profile", err)
	}
	if projects, err := e.Store.ListProjects(ctx); err != nil {
		degrade("projects", err)
	} else if projects != nil {
		out.Projects = projects
	}
	if tasks, err := e.Store.ListTasks(ctx, repo.TaskFilters{Limit: statusRecentTasks}); err != nil {
		degrade("recent_tasks", err)
	} else if tasks != nil {
		out.RecentTasks = tasks
	}
	return out
}
