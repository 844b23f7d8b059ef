package ports

import (
	"context"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
)

// ProfileHistory stores the profiles analyzed during the current session.
type ProfileHistory interface {
	Save(ctx context.Context, p domain.TrackProfile) error
	GetByID(ctx context.Context, id string) (domain.TrackProfile, error)
	List(ctx context.Context) ([]domain.TrackProfile, error)
}

// ProfileRecorder accepts finished profiles without blocking the caller.
type ProfileRecorder interface {
	Record(p domain.TrackProfile)
}
