package app

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
	"playmatch/pkg/compat"
	"playmatch/pkg/domain"
)

const (
	DefaultRankLimit = 20
	MaxRankLimit     = 100
)

// RankCandidates scores up to limit profiled users against user and returns
// them best first. Pairs with any accepted or rejected match are left out;
// otherwise the oldest pending match surfaces its id.
func (a *App) RankCandidates(ctx context.Context, user domain.User, limit int) ([]domain.Candidate, error) {
	if !user.HasProfile() {
		return []domain.Candidate{}, nil
	}
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	limit = min(limit, MaxRankLimit)

	pool, err := a.store.ListCandidates(ctx, user.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	slots := make([]*domain.Candidate, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.rankWorkers)
	for i, other := range pool {
		g.Go(func() error {
			matches, err := a.store.MatchesBetween(gctx, user.ID, other.ID)
			if err != nil {
				return fmt.Errorf("find match with %s: %w", other.ID, err)
			}
			// Any decided match removes the pair; otherwise the oldest
			// pending match is the one surfaced.
			var matchID *string
			for _, m := range matches {
				if m.Status != domain.MatchPending {
					return nil
				}
				if matchID == nil {
					id := m.ID
					matchID = &id
				}
			}
			score, reasons := compat.Score(user, other)
			slots[i] = &domain.Candidate{User: other, Score: score, Reasons: reasons, MatchID: matchID}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
