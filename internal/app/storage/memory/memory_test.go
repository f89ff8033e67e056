package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

func TestProfileUpsertAndGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.GetProfile(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	p, err := store.UpsertProfile(ctx, profile.Profile{OwnerID: "u1", Interests: []string{"music"}})
	if err != nil {
		t.Fatalf("upsert profile: %v", err)
	}
	created := p.CreatedAt

	p.Interests = append(p.Interests, "travel")
	updated, err := store.UpsertProfile(ctx, p)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Fatalf("upsert must preserve CreatedAt")
	}
	if len(updated.Interests) != 2 {
		t.Fatalf("interests not updated: %v", updated.Interests)
	}
}

func TestListRecentSignalsNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_, err := store.RecordSignal(ctx, profile.Signal{
			OwnerID:   "u1",
			Kind:      profile.SignalView,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record signal: %v", err)
		}
	}

	signals, err := store.ListRecentSignals(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("list signals: %v", err)
	}
	if len(signals) != 3 {
		t.Fatalf("expected 3 signals, got %d", len(signals))
	}
	for i := 1; i < len(signals); i++ {
		if signals[i].CreatedAt.After(signals[i-1].CreatedAt) {
			t.Fatalf("signals not newest first: %v", signals)
		}
	}
}

func TestTrendingOrderAndThreshold(t *testing.T) {
	store := New()
	ctx := context.Background()

	posts := []post.Post{
		{ID: "low", CreatorID: "c1", PostType: "image", Likes: 5},
		{ID: "mid", CreatorID: "c2", PostType: "image", Likes: 30, Comments: 25},
		{ID: "high", CreatorID: "c3", PostType: "image", Likes: 50, Shares: 40},
	}
	for _, p := range posts {
		if _, err := store.CreatePost(ctx, p); err != nil {
			t.Fatalf("create post %s: %v", p.ID, err)
		}
	}

	trending, err := store.ListTrendingPosts(ctx, 50, storage.PostFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list trending: %v", err)
	}
	if len(trending) != 2 {
		t.Fatalf("expected 2 trending posts, got %d", len(trending))
	}
	if trending[0].ID != "high" || trending[1].ID != "mid" {
		t.Fatalf("trending not engagement-ordered: %v", trending)
	}
}

func TestViralRequiresRecency(t *testing.T) {
	store := New()
	ctx := context.Background()

	old := post.Post{ID: "old", CreatorID: "c1", Likes: 500, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := post.Post{ID: "recent", CreatorID: "c2", Likes: 500, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	for _, p := range []post.Post{old, recent} {
		if _, err := store.CreatePost(ctx, p); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}

	viral, err := store.ListViralPosts(ctx, 200, 6*time.Hour, storage.PostFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list viral: %v", err)
	}
	if len(viral) != 1 || viral[0].ID != "recent" {
		t.Fatalf("viral window not applied: %v", viral)
	}
}

func TestSampleExcludesInterestTags(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreatePost(ctx, post.Post{ID: "music", Tags: []string{"music"}}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := store.CreatePost(ctx, post.Post{ID: "cooking", Tags: []string{"cooking"}}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	sample, err := store.SamplePosts(ctx, []string{"music"}, storage.PostFilter{Limit: 10})
	if err != nil {
		t.Fatalf("sample posts: %v", err)
	}
	if len(sample) != 1 || sample[0].ID != "cooking" {
		t.Fatalf("exclusion not applied: %v", sample)
	}
}

func TestPostTypeFilter(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreatePost(ctx, post.Post{ID: "v", PostType: "video"}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := store.CreatePost(ctx, post.Post{ID: "i", PostType: "image"}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	videos, err := store.ListRecentPosts(ctx, storage.PostFilter{PostType: "video", Limit: 10})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != "v" {
		t.Fatalf("post type filter not applied: %v", videos)
	}

	all, err := store.ListRecentPosts(ctx, storage.PostFilter{PostType: "all", Limit: 10})
	if err != nil {
		t.Fatalf("list recent all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("'all' should match every type, got %d", len(all))
	}
}

func TestPostTypeFilterIgnoresCase(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreatePost(ctx, post.Post{ID: "v", PostType: "video"}); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := store.CreatePost(ctx, post.Post{ID: "i", PostType: "image"}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	images, err := store.ListRecentPosts(ctx, storage.PostFilter{PostType: "Image", Limit: 10})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(images) != 1 || images[0].ID != "i" {
		t.Fatalf("mixed-case filter must match lowercase type: %v", images)
	}
}

func TestSeenWindowAndPrune(t *testing.T) {
	store := New()
	ctx := context.Background()

	records := []feed.SeenRecord{
		{OwnerID: "u1", SessionID: "s1", PostID: "p1", SeenAt: time.Now().UTC().Add(-2 * time.Hour)},
		{OwnerID: "u1", SessionID: "s1", PostID: "p2", SeenAt: time.Now().UTC()},
	}
	if err := store.RecordSeen(ctx, records); err != nil {
		t.Fatalf("record seen: %v", err)
	}

	ids, err := store.ListSeenPostIDs(ctx, "u1", "s1", time.Hour)
	if err != nil {
		t.Fatalf("list seen: %v", err)
	}
	if _, ok := ids["p1"]; ok {
		t.Fatalf("p1 outside window should be excluded")
	}
	if _, ok := ids["p2"]; !ok {
		t.Fatalf("p2 inside window missing")
	}

	removed, err := store.DeleteExpiredSeen(ctx, time.Hour)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned record, got %d", removed)
	}
}

func TestFollowGraph(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, creator := range []string{"c1", "c2", "c3"} {
		if err := store.Follow(ctx, "u1", creator); err != nil {
			t.Fatalf("follow %s: %v", creator, err)
		}
	}
	count, err := store.CountFollows(ctx, "u1")
	if err != nil {
		t.Fatalf("count follows: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 follows, got %d", count)
	}

	if err := store.Unfollow(ctx, "u1", "c2"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	creators, err := store.ListFollowedCreators(ctx, "u1")
	if err != nil {
		t.Fatalf("list creators: %v", err)
	}
	if len(creators) != 2 {
		t.Fatalf("expected 2 creators, got %v", creators)
	}
	if err := store.Unfollow(ctx, "u1", "c2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double unfollow, got %v", err)
	}
}
