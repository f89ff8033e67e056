package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/vibeshare/feedservice/internal/app/domain/profile"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

// loadIdentity fetches the owner's profile and recent signals concurrently.
// A missing profile is not an error; the owner is treated as a fresh account
// with no interests. Any other store failure aborts the request.
func (s *Service) loadIdentity(ctx context.Context, ownerID string) (profile.Profile, []profile.Signal, error) {
	var (
		wg      sync.WaitGroup
		prof    profile.Profile
		profErr error
		signals []profile.Signal
		sigErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		prof, profErr = s.stores.Profiles.GetProfile(ctx, ownerID)
	}()
	go func() {
		defer wg.Done()
		signals, sigErr = s.stores.Signals.ListRecentSignals(ctx, ownerID, s.cfg.RecentSignalCount)
	}()
	wg.Wait()

	if profErr != nil {
		if !errors.Is(profErr, storage.ErrNotFound) {
			return profile.Profile{}, nil, profErr
		}
		prof = profile.Profile{OwnerID: ownerID}
	}
	if sigErr != nil {
		return profile.Profile{}, nil, sigErr
	}
	return prof, signals, nil
}
