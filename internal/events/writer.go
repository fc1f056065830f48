package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	TypeProjectCreated      = "project.created"
	TypeProjectUpdated      = "project.updated"
	TypeTaskCreated         = "task.created"
	TypeTaskDeleted         = "task.deleted"
	TypeSuggestionCreated   = "suggestion.created"
	TypeSuggestionDeleted   = "suggestion.deleted"
	TypeSuggestionsPromoted = "suggestions.promoted"
	TypeRunStarted          = "run.started"
	TypeRunFinished         = "run.finished"
	TypeRunEvaluated        = "run.evaluated"
	TypeImprovementApplied  = "improvement.applied"
	TypeProfileUpdated      = "profile.updated"
)

type Writer struct {
	DB  Execer
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one event. When ex is nil the writer's DB is used.
func (w Writer) Append(ctx context.Context, ex Execer, evtType, projectID, entityKind, entityID, actorID string, payload EventPayload) error {
	if ex == nil {
		ex = w.DB
	}
	if ex == nil {
		return fmt.Errorf("events: no database")
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO events(ts,type,project_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339), evtType, nullable(projectID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
