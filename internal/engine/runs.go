package engine

import (
	"context"
	"strconv"

	"orchboard/internal/domain"
	"orchboard/internal/events"
	"orchboard/internal/repo"
)

const defaultListLimit = 50

type RunStartOptions struct {
	ProjectID   string `json:"project_id" validate:"required"`
	TaskID      *int64 `json:"task_id"`
	Instruction string `json:"instruction"`
	ActorID     string `json:"-"`
}

// StartRun records that the agent runtime began executing. A run bound to a
// task moves that task to in_progress. Admission against the concurrency
// ceiling is the runtime's decision; starting beyond it is logged.
func (e Engine) StartRun(ctx context.Context, opts RunStartOptions) (domain.Run, error) {
	if err := e.check(opts); err != nil {
		return domain.Run{}, err
	}
	if _, err := e.Store.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Run{}, notFoundOrRead("get project", err)
	}
	instruction := opts.Instruction
	if opts.TaskID != nil {
		t, err := e.Store.GetTask(ctx, *opts.TaskID)
		if err != nil {
			return domain.Run{}, notFoundOrRead("get task", err)
		}
		if t.ProjectID != opts.ProjectID {
			return domain.Run{}, invalid("task_id", "task belongs to project "+t.ProjectID)
		}
		if instruction == "" {
			instruction = t.Title
		}
	}
	if running, err := e.Store.ListRunningRuns(ctx); err == nil && len(running) >= e.maxConcurrent() {
		e.warnf("run started with %d runs already active (ceiling %d)", len(running), e.maxConcurrent())
	}
	run, err := e.Store.InsertRun(ctx, domain.Run{
		TaskID:      opts.TaskID,
		ProjectID:   opts.ProjectID,
		Instruction: instruction,
		Status:      domain.RunRunning,
		StartedAt:   e.timestamp(),
	})
	if err != nil {
		return domain.Run{}, writeErr("insert run", err)
	}
	if run.TaskID != nil {
		if err := e.Store.UpdateTaskStatus(ctx, *run.TaskID, domain.TaskInProgress, nil, nil); err != nil {
			return domain.Run{}, notFoundOrWrite("update task status", err)
		}
	}
	e.appendEvent(ctx, events.TypeRunStarted, run.ProjectID, "run", idString(run.ID), opts.ActorID, nil)
	return run, nil
}

type RunFinishOptions struct {
	ID       int64  `json:"id" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=completed failed"`
	Progress string `json:"progress"`
	Note     string `json:"note"`
	ActorID  string `json:"-"`
}

// FinishRun closes a running run and settles its task (done or failed).
func (e Engine) FinishRun(ctx context.Context, opts RunFinishOptions) (domain.Run, error) {
	if err := e.check(opts); err != nil {
		return domain.Run{}, err
	}
	run, err := e.Store.GetRun(ctx, opts.ID)
	if err != nil {
		return domain.Run{}, notFoundOrRead("get run", err)
	}
	if run.Status != domain.RunRunning {
		return domain.Run{}, invalid("status", "run already "+run.Status)
	}
	now := e.timestamp()
	run.Status = opts.Status
	run.FinishedAt = &now
	if opts.Progress != "" {
		run.CurrentProgress = &opts.Progress
	}
	if err := e.Store.UpdateRun(ctx, run); err != nil {
		return domain.Run{}, notFoundOrWrite("update run", err)
	}
	if run.TaskID != nil {
		taskStatus := domain.TaskDone
		if run.Status == domain.RunFailed {
			taskStatus = domain.TaskFailed
		}
		var note *string
		if opts.Note != "" {
			note = &opts.Note
		}
		if err := e.Store.UpdateTaskStatus(ctx, *run.TaskID, taskStatus, &now, note); err != nil {
			e.warnf("run %d finished but task %d status not updated: %v", run.ID, *run.TaskID, err)
		}
	}
	e.appendEvent(ctx, events.TypeRunFinished, run.ProjectID, "run", idString(run.ID), opts.ActorID, events.EventPayload{"status": run.Status})
	return run, nil
}

type EvaluationOptions struct {
	RunID           int64   `json:"run_id" validate:"required"`
	OverallScore    float64 `json:"overall_score" validate:"gte=0"`
	FailureCategory string  `json:"failure_category"`
	Summary         string  `json:"summary"`
	ActorID         string  `json:"-"`
}

func (e Engine) RecordEvaluation(ctx context.Context, opts EvaluationOptions) (domain.Evaluation, error) {
	if err := e.check(opts); err != nil {
		return domain.Evaluation{}, err
	}
	run, err := e.Store.GetRun(ctx, opts.RunID)
	if err != nil {
		return domain.Evaluation{}, notFoundOrRead("get run", err)
	}
	if run.Status == domain.RunRunning {
		e.warnf("evaluation recorded for run %d which is still running", run.ID)
	}
	ev := domain.Evaluation{
		RunID:        opts.RunID,
		OverallScore: opts.OverallScore,
		EvaluatedAt:  e.timestamp(),
	}
	if opts.FailureCategory != "" {
		ev.FailureCategory = &opts.FailureCategory
	}
	if opts.Summary != "" {
		ev.Summary = &opts.Summary
	}
	ev, err = e.Store.InsertEvaluation(ctx, ev)
	if err != nil {
		return domain.Evaluation{}, writeErr("insert evaluation", err)
	}
	e.appendEvent(ctx, events.TypeRunEvaluated, run.ProjectID, "run", idString(run.ID), opts.ActorID, events.EventPayload{"overall_score": ev.OverallScore})
	return ev, nil
}

type ToolCallOptions struct {
	RunID    int64  `json:"run_id" validate:"required"`
	ToolName string `json:"tool_name" validate:"required"`
	Category string `json:"category"`
	Success  bool   `json:"success"`
}

func (e Engine) RecordToolCall(ctx context.Context, opts ToolCallOptions) (domain.ToolCall, error) {
	if err := e.check(opts); err != nil {
		return domain.ToolCall{}, err
	}
	if _, err := e.Store.GetRun(ctx, opts.RunID); err != nil {
		return domain.ToolCall{}, notFoundOrRead("get run", err)
	}
	tc := domain.ToolCall{
		RunID:     opts.RunID,
		ToolName:  opts.ToolName,
		Success:   opts.Success,
		CreatedAt: e.timestamp(),
	}
	if opts.Category != "" {
		tc.Category = &opts.Category
	}
	tc, err := e.Store.InsertToolCall(ctx, tc)
	if err != nil {
		return domain.ToolCall{}, writeErr("insert tool call", err)
	}
	return tc, nil
}

func (e Engine) ListEvaluations(ctx context.Context, f repo.EvaluationFilters) ([]domain.EvaluationWithRun, error) {
	if f.Limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}
	if f.Limit == 0 {
		f.Limit = defaultListLimit
	}
	list, err := e.Store.ListEvaluations(ctx, f)
	if err != nil {
		return nil, readErr("list evaluations", err)
	}
	if list == nil {
		list = []domain.EvaluationWithRun{}
	}
	return list, nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
