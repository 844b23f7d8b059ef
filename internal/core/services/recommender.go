package services

import (
	"context"
	"fmt"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

// Recommender ranks this session's analyzed profiles against one of them.
type Recommender struct {
	history ports.ProfileHistory
}

// NewRecommender constructs a Recommender.
func NewRecommender(history ports.ProfileHistory) *Recommender {
	return &Recommender{history: history}
}

// History lists the profiles analyzed so far.
func (r *Recommender) History(ctx context.Context) ([]domain.TrackProfile, error) {
	profiles, err := r.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list history: %w", err)
	}
	return profiles, nil
}

// Recommend returns up to five profiles that mix well with profileID.
func (r *Recommender) Recommend(ctx context.Context, profileID string, strict bool) ([]domain.Recommendation, error) {
	seed, err := r.history.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load profile: %w", err)
	}
	pool, err := r.history.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list history: %w", err)
	}
	return domain.Recommend(seed, pool, strict), nil
}
