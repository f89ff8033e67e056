// Package storage declares the persistence interfaces the feed pipeline
// reads and writes through. Implementations live in the memory, postgres and
// redisstore subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PostFilter narrows candidate queries. A zero PostType matches all types.
type PostFilter struct {
	PostType string
	Limit    int
}

// ProfileStore persists identity profiles.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	GetProfile(ctx context.Context, ownerID string) (profile.Profile, error)
}

// SignalStore persists behavioral signals.
type SignalStore interface {
	RecordSignal(ctx context.Context, sig profile.Signal) (profile.Signal, error)
	// ListRecentSignals returns up to limit signals for the owner, newest first.
	ListRecentSignals(ctx context.Context, ownerID string, limit int) ([]profile.Signal, error)
}

// FollowStore persists the follow graph.
type FollowStore interface {
	Follow(ctx context.Context, followerID, creatorID string) error
	Unfollow(ctx context.Context, followerID, creatorID string) error
	CountFollows(ctx context.Context, followerID string) (int, error)
	ListFollowedCreators(ctx context.Context, followerID string) ([]string, error)
}

// PostStore persists posts and answers the pool-specific candidate queries.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)

	// ListPostsByCreators returns posts by the given creators, newest first.
	ListPostsByCreators(ctx context.Context, creatorIDs []string, f PostFilter) ([]post.Post, error)
	// ListPostsByInterests returns posts tagged with any of the interests,
	// newest first.
	ListPostsByInterests(ctx context.Context, interests []string, f PostFilter) ([]post.Post, error)
	// ListTrendingPosts returns posts at or above the engagement cutoff,
	// engagement descending then recency descending.
	ListTrendingPosts(ctx context.Context, minEngagement int, f PostFilter) ([]post.Post, error)
	// ListRecentPosts returns posts newest first regardless of engagement.
	ListRecentPosts(ctx context.Context, f PostFilter) ([]post.Post, error)
	// ListViralPosts returns posts no older than maxAge at or above the
	// engagement cutoff, engagement descending.
	ListViralPosts(ctx context.Context, minEngagement int, maxAge time.Duration, f PostFilter) ([]post.Post, error)
	// SamplePosts returns posts carrying none of the excluded tags, for
	// exploration outside the identity's interest graph.
	SamplePosts(ctx context.Context, excludeTags []string, f PostFilter) ([]post.Post, error)
}

// AdStore persists the sponsored inventory.
type AdStore interface {
	CreateAd(ctx context.Context, a ad.Candidate) (ad.Candidate, error)
	ListActiveAds(ctx context.Context) ([]ad.Candidate, error)
}

// SeenStore persists which content ids were shown to an identity.
type SeenStore interface {
	RecordSeen(ctx context.Context, records []feed.SeenRecord) error
	// ListSeenPostIDs returns ids shown to (owner, session) within the window.
	ListSeenPostIDs(ctx context.Context, ownerID, sessionID string, window time.Duration) (map[string]struct{}, error)
	// DeleteExpiredSeen removes records older than the window and reports how
	// many were removed.
	DeleteExpiredSeen(ctx context.Context, window time.Duration) (int, error)
}
