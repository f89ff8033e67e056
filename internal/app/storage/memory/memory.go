// Package memory is an in-memory implementation of the storage interfaces.
// It is safe for concurrent use and is primarily intended for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

// Store holds all collections behind a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	rand     *rand.Rand
	profiles map[string]profile.Profile
	signals  map[string][]profile.Signal // owner -> newest first
	follows  map[string]map[string]time.Time
	posts    map[string]post.Post
	ads      map[string]ad.Candidate
	seen     map[string][]feed.SeenRecord // owner|session -> records
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.SignalStore = (*Store)(nil)
var _ storage.FollowStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.AdStore = (*Store)(nil)
var _ storage.SeenStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:   1,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		profiles: make(map[string]profile.Profile),
		signals:  make(map[string][]profile.Signal),
		follows:  make(map[string]map[string]time.Time),
		posts:    make(map[string]post.Post),
		ads:      make(map[string]ad.Candidate),
		seen:     make(map[string][]feed.SeenRecord),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func seenKey(ownerID, sessionID string) string {
	return ownerID + "|" + sessionID
}

// ProfileStore implementation -------------------------------------------------

func (s *Store) UpsertProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	if p.OwnerID == "" {
		return profile.Profile{}, fmt.Errorf("owner id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.profiles[p.OwnerID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Interests = append([]string(nil), p.Interests...)

	s.profiles[p.OwnerID] = p
	return cloneProfile(p), nil
}

func (s *Store) GetProfile(_ context.Context, ownerID string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[ownerID]
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", ownerID, storage.ErrNotFound)
	}
	return cloneProfile(p), nil
}

// SignalStore implementation --------------------------------------------------

func (s *Store) RecordSignal(_ context.Context, sig profile.Signal) (profile.Signal, error) {
	if sig.OwnerID == "" {
		return profile.Signal{}, fmt.Errorf("owner id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sig.ID == "" {
		sig.ID = s.nextIDLocked()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	// Keep newest first.
	s.signals[sig.OwnerID] = append([]profile.Signal{sig}, s.signals[sig.OwnerID]...)
	return sig, nil
}

func (s *Store) ListRecentSignals(_ context.Context, ownerID string, limit int) ([]profile.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.signals[ownerID]
	sorted := append([]profile.Signal(nil), list...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// FollowStore implementation --------------------------------------------------

func (s *Store) Follow(_ context.Context, followerID, creatorID string) error {
	if followerID == "" || creatorID == "" {
		return fmt.Errorf("follower and creator ids are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.follows[followerID] == nil {
		s.follows[followerID] = make(map[string]time.Time)
	}
	s.follows[followerID][creatorID] = time.Now().UTC()
	return nil
}

func (s *Store) Unfollow(_ context.Context, followerID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.follows[followerID][creatorID]; !ok {
		return fmt.Errorf("follow %s -> %s: %w", followerID, creatorID, storage.ErrNotFound)
	}
	delete(s.follows[followerID], creatorID)
	return nil
}

func (s *Store) CountFollows(_ context.Context, followerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.follows[followerID]), nil
}

func (s *Store) ListFollowedCreators(_ context.Context, followerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creators := make([]string, 0, len(s.follows[followerID]))
	for creator := range s.follows[followerID] {
		creators = append(creators, creator)
	}
	sort.Strings(creators)
	return creators, nil
}

// PostStore implementation ----------------------------------------------------

func (s *Store) CreatePost(_ context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.posts[p.ID]; exists {
		return post.Post{}, fmt.Errorf("post %s already exists", p.ID)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Tags = append([]string(nil), p.Tags...)

	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPost(_ context.Context, id string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return post.Post{}, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *Store) ListPostsByCreators(_ context.Context, creatorIDs []string, f storage.PostFilter) ([]post.Post, error) {
	wanted := make(map[string]struct{}, len(creatorIDs))
	for _, id := range creatorIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []post.Post
	for _, p := range s.posts {
		if _, ok := wanted[p.CreatorID]; !ok {
			continue
		}
		if !matchesType(p, f) {
			continue
		}
		result = append(result, clonePost(p))
	}
	sortNewestFirst(result)
	return capped(result, f.Limit), nil
}

func (s *Store) ListPostsByInterests(_ context.Context, interests []string, f storage.PostFilter) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []post.Post
	for _, p := range s.posts {
		if !matchesType(p, f) {
			continue
		}
		if !tagsOverlap(p.Tags, interests) {
			continue
		}
		result = append(result, clonePost(p))
	}
	sortNewestFirst(result)
	return capped(result, f.Limit), nil
}

func (s *Store) ListTrendingPosts(_ context.Context, minEngagement int, f storage.PostFilter) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []post.Post
	for _, p := range s.posts {
		if !matchesType(p, f) {
			continue
		}
		if p.EngagementScore() < minEngagement {
			continue
		}
		result = append(result, clonePost(p))
	}
	sort.SliceStable(result, func(i, j int) bool {
		si, sj := result[i].EngagementScore(), result[j].EngagementScore()
		if si != sj {
			return si > sj
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return capped(result, f.Limit), nil
}

func (s *Store) ListRecentPosts(_ context.Context, f storage.PostFilter) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []post.Post
	for _, p := range s.posts {
		if !matchesType(p, f) {
			continue
		}
		result = append(result, clonePost(p))
	}
	sortNewestFirst(result)
	return capped(result, f.Limit), nil
}

func (s *Store) ListViralPosts(_ context.Context, minEngagement int, maxAge time.Duration, f storage.PostFilter) ([]post.Post, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []post.Post
	for _, p := range s.posts {
		if !matchesType(p, f) {
			continue
		}
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		if p.EngagementScore() < minEngagement {
			continue
		}
		result = append(result, clonePost(p))
	}
	sort.SliceStable(result, func(i, j int) bool {
		si, sj := result[i].EngagementScore(), result[j].EngagementScore()
		if si != sj {
			return si > sj
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return capped(result, f.Limit), nil
}

func (s *Store) SamplePosts(_ context.Context, excludeTags []string, f storage.PostFilter) ([]post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []post.Post
	for _, p := range s.posts {
		if !matchesType(p, f) {
			continue
		}
		if tagsOverlap(p.Tags, excludeTags) {
			continue
		}
		result = append(result, clonePost(p))
	}
	// Stable base order before shuffling so the shuffle is the only source
	// of variation.
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	s.rand.Shuffle(len(result), func(i, j int) {
		result[i], result[j] = result[j], result[i]
	})
	return capped(result, f.Limit), nil
}

// AdStore implementation ------------------------------------------------------

func (s *Store) CreateAd(_ context.Context, a ad.Candidate) (ad.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.ads[a.ID]; exists {
		return ad.Candidate{}, fmt.Errorf("ad %s already exists", a.ID)
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.InterestTags = append([]string(nil), a.InterestTags...)

	s.ads[a.ID] = a
	return a, nil
}

func (s *Store) ListActiveAds(_ context.Context) ([]ad.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ad.Candidate
	for _, a := range s.ads {
		if !a.Active {
			continue
		}
		clone := a
		clone.InterestTags = append([]string(nil), a.InterestTags...)
		result = append(result, clone)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SeenStore implementation ----------------------------------------------------

func (s *Store) RecordSeen(_ context.Context, records []feed.SeenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec.OwnerID == "" || rec.PostID == "" {
			return fmt.Errorf("seen record requires owner and post ids")
		}
		if rec.ID == "" {
			rec.ID = s.nextIDLocked()
		}
		if rec.SeenAt.IsZero() {
			rec.SeenAt = time.Now().UTC()
		}
		key := seenKey(rec.OwnerID, rec.SessionID)
		s.seen[key] = append(s.seen[key], rec)
	}
	return nil
}

func (s *Store) ListSeenPostIDs(_ context.Context, ownerID, sessionID string, window time.Duration) (map[string]struct{}, error) {
	cutoff := time.Now().UTC().Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{})
	for _, rec := range s.seen[seenKey(ownerID, sessionID)] {
		if rec.SeenAt.Before(cutoff) {
			continue
		}
		ids[rec.PostID] = struct{}{}
	}
	return ids, nil
}

func (s *Store) DeleteExpiredSeen(_ context.Context, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, records := range s.seen {
		kept := records[:0]
		for _, rec := range records {
			if rec.SeenAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(s.seen, key)
		} else {
			s.seen[key] = kept
		}
	}
	return removed, nil
}

// Helpers ---------------------------------------------------------------------

func matchesType(p post.Post, f storage.PostFilter) bool {
	if f.PostType == "" || strings.EqualFold(f.PostType, "all") {
		return true
	}
	return strings.EqualFold(p.PostType, f.PostType)
}

func tagsOverlap(tags, other []string) bool {
	for _, tag := range tags {
		for _, o := range other {
			if strings.EqualFold(tag, o) {
				return true
			}
		}
	}
	return false
}

func sortNewestFirst(posts []post.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

func capped(posts []post.Post, limit int) []post.Post {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

func cloneProfile(p profile.Profile) profile.Profile {
	p.Interests = append([]string(nil), p.Interests...)
	return p
}

func clonePost(p post.Post) post.Post {
	p.Tags = append([]string(nil), p.Tags...)
	return p
}
