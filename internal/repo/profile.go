package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"orchboard/internal/domain"
)

// GetUserProfile returns the most recently written profile.
func (r Repo) GetUserProfile(ctx context.Context) (domain.UserProfile, error) {
	var p domain.UserProfile
	var challenges, goals string
	err := r.DB.QueryRowContext(ctx, `SELECT id,current_situation,current_challenges_json,current_goals_json,updated_at FROM user_profile ORDER BY updated_at DESC, id DESC LIMIT 1`).
		Scan(&p.ID, &p.CurrentSituation, &challenges, &goals, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(challenges), &p.CurrentChallenges); err != nil {
		return p, fmt.Errorf("decode current_challenges: %w", err)
	}
	if err := json.Unmarshal([]byte(goals), &p.CurrentGoals); err != nil {
		return p, fmt.Errorf("decode current_goals: %w", err)
	}
	return p, nil
}

// SaveUserProfile updates the latest profile row, inserting one if none exists.
func (r Repo) SaveUserProfile(ctx context.Context, p domain.UserProfile) (domain.UserProfile, error) {
	if p.CurrentChallenges == nil {
		p.CurrentChallenges = []string{}
	}
	if p.CurrentGoals == nil {
		p.CurrentGoals = []string{}
	}
	challenges, err := json.Marshal(p.CurrentChallenges)
	if err != nil {
		return p, err
	}
	goals, err := json.Marshal(p.CurrentGoals)
	if err != nil {
		return p, err
	}
	existing, err := r.GetUserProfile(ctx)
	switch {
	case err == ErrNotFound:
		res, err := r.DB.ExecContext(ctx, `INSERT INTO user_profile(current_situation,current_challenges_json,current_goals_json,updated_at) VALUES (?,?,?,?)`,
			p.CurrentSituation, string(challenges), string(goals), p.UpdatedAt)
		if err != nil {
			return p, err
		}
		p.ID, err = res.LastInsertId()
		return p, err
	case err != nil:
		return p, err
	}
	p.ID = existing.ID
	_, err = r.DB.ExecContext(ctx, `UPDATE user_profile SET current_situation=?, current_challenges_json=?, current_goals_json=?, updated_at=? WHERE id=?`,
		p.CurrentSituation, string(challenges), string(goals), p.UpdatedAt, p.ID)
	return p, err
}
