package engine

import (
	"context"
	"errors"
	"strings"

	"orchboard/internal/domain"
	"orchboard/internal/events"
	"orchboard/internal/repo"
)

const defaultProjectPriority = 5

type ProjectCreateOptions struct {
	ID            string  `json:"id" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	Purpose       string  `json:"purpose"`
	ForWhom       string  `json:"for_whom"`
	Status        string  `json:"status" validate:"omitempty,oneof=active planning paused completed archived"`
	Priority      *int    `json:"priority" validate:"omitempty,gte=0"`
	RepositoryURL *string `json:"repository_url" validate:"omitempty,url"`
	DeployURL     *string `json:"deploy_url" validate:"omitempty,url"`
	ActorID       string  `json:"-"`
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	opts.ID = strings.TrimSpace(opts.ID)
	opts.Name = strings.TrimSpace(opts.Name)
	if err := e.check(opts); err != nil {
		return domain.Project{}, err
	}
	if _, err := e.Store.GetProject(ctx, opts.ID); err == nil {
		return domain.Project{}, repo.ErrConflict
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Project{}, readErr("get project", err)
	}
	now := e.timestamp()
	p := domain.Project{
		ID:            opts.ID,
		Name:          opts.Name,
		Description:   opts.Description,
		Purpose:       opts.Purpose,
		ForWhom:       opts.ForWhom,
		Status:        opts.Status,
		Priority:      defaultProjectPriority,
		RepositoryURL: opts.RepositoryURL,
		DeployURL:     opts.DeployURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if opts.Priority != nil {
		p.Priority = *opts.Priority
	}
	if err := e.Store.InsertProject(ctx, p); err != nil {
		return domain.Project{}, writeErr("insert project", err)
	}
	e.appendEvent(ctx, events.TypeProjectCreated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{"name": p.Name, "status": p.Status})
	return p, nil
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects, err := e.Store.ListProjects(ctx)
	if err != nil {
		return nil, readErr("list projects", err)
	}
	return projects, nil
}

type ProjectDetail struct {
	Project    domain.Project `json:"project"`
	Tasks      []domain.Task  `json:"tasks"`
	TaskCounts map[string]int `json:"task_counts"`
}

// ProjectDetail returns a project with its tasks, newest first.
func (e Engine) ProjectDetail(ctx context.Context, id string) (ProjectDetail, error) {
	p, err := e.Store.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, notFoundOrRead("get project", err)
	}
	tasks, err := e.Store.ListTasks(ctx, repo.TaskFilters{ProjectID: id})
	if err != nil {
		return ProjectDetail{}, readErr("list project tasks", err)
	}
	counts, err := e.Store.CountTasksByStatus(ctx, id)
	if err != nil {
		return ProjectDetail{}, readErr("count project tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return ProjectDetail{Project: p, Tasks: tasks, TaskCounts: counts}, nil
}

type ProjectUpdateOptions struct {
	ID            string  `json:"id" validate:"required"`
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Description   *string `json:"description"`
	Purpose       *string `json:"purpose"`
	ForWhom       *string `json:"for_whom"`
	Status        *string `json:"status" validate:"omitempty,oneof=active planning paused completed archived"`
	Priority      *int    `json:"priority" validate:"omitempty,gte=0"`
	RepositoryURL *string `json:"repository_url"`
	DeployURL     *string `json:"deploy_url"`
	ActorID       string  `json:"-"`
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	if err := e.check(opts); err != nil {
		return domain.Project{}, err
	}
	err := e.Store.UpdateProject(ctx, opts.ID, repo.ProjectUpdate{
		Name:          opts.Name,
		Description:   opts.Description,
		Purpose:       opts.Purpose,
		ForWhom:       opts.ForWhom,
		Status:        opts.Status,
		Priority:      opts.Priority,
		RepositoryURL: opts.RepositoryURL,
		DeployURL:     opts.DeployURL,
		UpdatedAt:     e.timestamp(),
	})
	if err != nil {
		return domain.Project{}, notFoundOrWrite("update project", err)
	}
	p, err := e.Store.GetProject(ctx, opts.ID)
	if err != nil {
		return domain.Project{}, notFoundOrRead("get project", err)
	}
	e.appendEvent(ctx, events.TypeProjectUpdated, p.ID, "project", p.ID, opts.ActorID, nil)
	return p, nil
}

type InstructionOptions struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Instruction string `json:"instruction" validate:"required"`
	ActorID     string `json:"-"`
}

// SubmitInstruction queues an operator instruction as a pending task.
func (e Engine) SubmitInstruction(ctx context.Context, opts InstructionOptions) (domain.Task, error) {
	opts.Instruction = strings.TrimSpace(opts.Instruction)
	if err := e.check(opts); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Store.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Task{}, notFoundOrRead("get project", err)
	}
	created, err := e.Store.InsertTasks(ctx, []domain.Task{{
		ProjectID: opts.ProjectID,
		Title:     opts.Instruction,
		Status:    domain.TaskPending,
		Priority:  domain.DefaultTaskPriority,
		CreatedAt: e.timestamp(),
	}})
	if err != nil {
		return domain.Task{}, writeErr("insert task", err)
	}
	t := created[0]
	e.appendEvent(ctx, events.TypeTaskCreated, t.ProjectID, "task", idString(t.ID), opts.ActorID, events.EventPayload{"source": "instruction"})
	return t, nil
}

// OpenTasks lists pending and in-progress tasks, newest first.
func (e Engine) OpenTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	return e.ListTasks(ctx, repo.TaskFilters{
		ProjectID: projectID,
		Statuses:  []string{domain.TaskPending, domain.TaskInProgress},
	})
}

func (e Engine) ListTasks(ctx context.Context, f repo.TaskFilters) ([]domain.Task, error) {
	tasks, err := e.Store.ListTasks(ctx, f)
	if err != nil {
		return nil, readErr("list tasks", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (e Engine) DeleteTask(ctx context.Context, id int64, actorID string) error {
	t, err := e.Store.GetTask(ctx, id)
	if err != nil {
		return notFoundOrRead("get task", err)
	}
	if err := e.Store.DeleteTask(ctx, id); err != nil {
		return notFoundOrWrite("delete task", err)
	}
	e.appendEvent(ctx, events.TypeTaskDeleted, t.ProjectID, "task", idString(id), actorID, events.EventPayload{"title": t.Title})
	return nil
}

func notFoundOrRead(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return repo.ErrNotFound
	}
	return readErr(op, err)
}

func notFoundOrWrite(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return repo.ErrNotFound
	}
	return writeErr(op, err)
}
