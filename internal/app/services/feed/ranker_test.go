package feed

import (
	"testing"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/storage/memory"
)

func candidateAt(id, creator string, likes int, age time.Duration, now time.Time, tags ...string) feed.Candidate {
	return feed.NewCandidate(post.Post{
		ID:        id,
		CreatorID: creator,
		Likes:     likes,
		Tags:      tags,
		CreatedAt: now.Add(-age),
	}, feed.PoolFresh)
}

func emptySession() *feed.SessionContext {
	return &feed.SessionContext{CreatorCounts: make(map[string]int)}
}

func TestRankIsPermutationOfInput(t *testing.T) {
	svc := newTestService(t, memory.New())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	candidates := []feed.Candidate{
		candidateAt("p1", "c1", 10, time.Hour, now),
		candidateAt("p2", "c2", 500, 2*time.Hour, now),
		candidateAt("p3", "c3", 0, 10*time.Minute, now),
	}

	ranked := svc.rank(candidates, emptySession())
	if len(ranked) != len(candidates) {
		t.Fatalf("expected %d ranked items, got %d", len(candidates), len(ranked))
	}
	ids := make(map[string]int)
	for _, item := range ranked {
		ids[item.Post.ID]++
	}
	for _, cand := range candidates {
		if ids[cand.Post.ID] != 1 {
			t.Fatalf("candidate %s appears %d times in output", cand.Post.ID, ids[cand.Post.ID])
		}
	}
}

func TestRankPrefersEngagementRecencyAndInterest(t *testing.T) {
	svc := newTestService(t, memory.New())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ranked := svc.rank([]feed.Candidate{
		candidateAt("cold", "c1", 0, 48*time.Hour, now),
		candidateAt("hot", "c2", 1000, 48*time.Hour, now),
	}, emptySession())
	if ranked[0].Post.ID != "hot" {
		t.Fatalf("expected high-engagement post first, got %s", ranked[0].Post.ID)
	}

	ranked = svc.rank([]feed.Candidate{
		candidateAt("old", "c1", 10, 72*time.Hour, now),
		candidateAt("fresh", "c2", 10, 5*time.Minute, now),
	}, emptySession())
	if ranked[0].Post.ID != "fresh" {
		t.Fatalf("expected fresh post first, got %s", ranked[0].Post.ID)
	}

	sess := emptySession()
	sess.Interests = []string{"music"}
	ranked = svc.rank([]feed.Candidate{
		candidateAt("plain", "c1", 10, time.Hour, now),
		candidateAt("matched", "c2", 10, time.Hour, now, "Music"),
	}, sess)
	if ranked[0].Post.ID != "matched" {
		t.Fatalf("expected interest-matched post first, got %s", ranked[0].Post.ID)
	}
	if ranked[0].Factors.Interest == 0 {
		t.Fatal("expected non-zero interest factor for matched post")
	}
}

func TestRankDiversitySuppressesRepeatCreators(t *testing.T) {
	svc := newTestService(t, memory.New())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Creator c1 has three near-identical strong posts; c2 has one slightly
	// weaker post. The penalty must pull c2 ahead of c1's third post.
	ranked := svc.rank([]feed.Candidate{
		candidateAt("c1-a", "c1", 100, time.Hour, now),
		candidateAt("c1-b", "c1", 99, time.Hour, now),
		candidateAt("c1-c", "c1", 98, time.Hour, now),
		candidateAt("c2-a", "c2", 90, time.Hour, now),
	}, emptySession())

	order := make([]string, len(ranked))
	for i, item := range ranked {
		order[i] = item.Post.ID
	}
	if order[2] != "c2-a" {
		t.Fatalf("expected c2-a promoted to third place, got order %v", order)
	}
	if ranked[3].Factors.Diversity == 0 {
		t.Fatal("expected diversity penalty recorded on the suppressed item")
	}
}

func TestRankDropsUnscorableCandidates(t *testing.T) {
	svc := newTestService(t, memory.New())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	broken := feed.NewCandidate(post.Post{ID: "no-time", CreatorID: "c1"}, feed.PoolFresh)
	ranked := svc.rank([]feed.Candidate{
		broken,
		candidateAt("ok", "c1", 10, time.Hour, now),
	}, emptySession())

	if len(ranked) != 1 || ranked[0].Post.ID != "ok" {
		t.Fatalf("expected only the valid candidate, got %d items", len(ranked))
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	svc := newTestService(t, memory.New())
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	candidates := []feed.Candidate{
		candidateAt("b", "c2", 10, time.Hour, now),
		candidateAt("a", "c1", 10, time.Hour, now),
	}

	for i := 0; i < 5; i++ {
		ranked := svc.rank(candidates, emptySession())
		if ranked[0].Post.ID != "a" {
			t.Fatalf("run %d: expected id tie-break to pick a first, got %s", i, ranked[0].Post.ID)
		}
	}
}
