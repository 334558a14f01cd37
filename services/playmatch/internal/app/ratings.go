package app

import (
	"context"
	"fmt"

	"playmatch/pkg/compat"
	"playmatch/pkg/domain"
	"playmatch/pkg/store"
)

// SubmitRating records rater's scores for ratedID. Self ratings and repeat
// ratings are accepted.
func (a *App) SubmitRating(ctx context.Context, rater domain.User, ratedID string, communication, respect, teamwork int) (domain.Rating, error) {
	for _, v := range []int{communication, respect, teamwork} {
		if !domain.ValidRatingScore(v) {
			return domain.Rating{}, ErrInvalidRating
		}
	}
	if _, ok, err := a.store.GetUserByID(ctx, ratedID); err != nil {
		return domain.Rating{}, fmt.Errorf("get user: %w", err)
	} else if !ok {
		return domain.Rating{}, ErrUserNotFound
	}
	r := domain.Rating{
		ID:            store.NewID(store.PrefixRating),
		RaterID:       rater.ID,
		RatedUserID:   ratedID,
		Communication: communication,
		Respect:       respect,
		Teamwork:      teamwork,
		CreatedAt:     a.clock(),
	}
	if err := a.store.SaveRating(ctx, r); err != nil {
		return domain.Rating{}, fmt.Errorf("save rating: %w", err)
	}
	return r, nil
}

// RatingSummary averages every rating userID received. No ratings yields a
// zero summary.
func (a *App) RatingSummary(ctx context.Context, userID string) (domain.RatingSummary, error) {
	totals, err := a.store.RatingTotals(ctx, userID)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("rating totals: %w", err)
	}
	summary := domain.RatingSummary{UserID: userID, TotalRatings: totals.Count}
	if totals.Count == 0 {
		return summary, nil
	}
	n := float64(totals.Count)
	summary.AvgCommunication = compat.Round1(float64(totals.Communication) / n)
	summary.AvgRespect = compat.Round1(float64(totals.Respect) / n)
	summary.AvgTeamwork = compat.Round1(float64(totals.Teamwork) / n)
	return summary, nil
}
