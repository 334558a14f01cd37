package app

import (
	"context"
	"errors"
	"fmt"

	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

// UpdateProfile replaces the user's gaming profile and availability.
func (a *App) UpdateProfile(ctx context.Context, user domain.User, profile domain.GamingProfile, schedule domain.AvailabilitySchedule) (domain.User, error) {
	if profile.Games == nil {
		profile.Games = []string{}
	}
	if schedule == nil {
		schedule = domain.AvailabilitySchedule{}
	}
	if err := a.store.UpdateProfile(ctx, user.ID, profile, schedule); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	updated, ok, err := a.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return updated, nil
}
