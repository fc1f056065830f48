package engine

import (
	"context"
	"strings"

	"orchboard/internal/domain"
	"orchboard/internal/events"
)

// UserProfile returns the operator profile, or ErrNotFound before one is saved.
func (e Engine) UserProfile(ctx context.Context) (domain.UserProfile, error) {
	p, err := e.Store.GetUserProfile(ctx)
	if err != nil {
		return domain.UserProfile{}, notFoundOrRead("get user profile", err)
	}
	return p, nil
}

type ProfileOptions struct {
	CurrentSituation  string   `json:"current_situation" validate:"required"`
	CurrentChallenges []string `json:"current_challenges" validate:"dive,required"`
	CurrentGoals      []string `json:"current_goals" validate:"dive,required"`
	ActorID           string   `json:"-"`
}

func (e Engine) SaveUserProfile(ctx context.Context, opts ProfileOptions) (domain.UserProfile, error) {
	opts.CurrentSituation = strings.TrimSpace(opts.CurrentSituation)
	if err := e.check(opts); err != nil {
		return domain.UserProfile{}, err
	}
	p, err := e.Store.SaveUserProfile(ctx, domain.UserProfile{
		CurrentSituation:  opts.CurrentSituation,
		CurrentChallenges: opts.CurrentChallenges,
		CurrentGoals:      opts.CurrentGoals,
		UpdatedAt:         e.timestamp(),
	})
	if err != nil {
		return domain.UserProfile{}, writeErr("save user profile", err)
	}
	e.appendEvent(ctx, events.TypeProfileUpdated, "", "user_profile", idString(p.ID), opts.ActorID, nil)
	return p, nil
}
