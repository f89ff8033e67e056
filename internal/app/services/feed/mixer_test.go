package feed

import (
	"testing"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/storage/memory"
)

func rankedPost(id, creator, group string) feed.RankedItem {
	return feed.RankedItem{
		Candidate: feed.NewCandidate(post.Post{
			ID:        id,
			CreatorID: creator,
			GroupID:   group,
			CreatedAt: time.Now().UTC(),
		}, feed.PoolFresh),
	}
}

func rankedPosts(n int) []feed.RankedItem {
	items := make([]feed.RankedItem, n)
	for i := range items {
		items[i] = rankedPost(string(rune('a'+i)), "creator", "")
	}
	return items
}

func normalSession() *feed.SessionContext {
	return &feed.SessionContext{
		State:         feed.StateCasual,
		AdAggression:  feed.AggressionNormal,
		CreatorCounts: make(map[string]int),
	}
}

func TestMixFiltersSeenAndDuplicates(t *testing.T) {
	svc := newTestService(t, memory.New())

	ranked := []feed.RankedItem{
		rankedPost("p1", "c1", ""),
		rankedPost("p2", "c2", ""),
		rankedPost("p2", "c2", ""), // same post surfaced by two pools
		rankedPost("p3", "c3", ""),
	}
	seen := map[string]struct{}{"p1": {}}

	mixed := svc.mix(ranked, nil, normalSession(), seen)
	if len(mixed) != 2 {
		t.Fatalf("expected 2 items after seen and duplicate filtering, got %d", len(mixed))
	}
	if mixed[0].Post.Post.ID != "p2" || mixed[1].Post.Post.ID != "p3" {
		t.Fatalf("unexpected order: %s, %s", mixed[0].Post.Post.ID, mixed[1].Post.Post.ID)
	}
}

func TestMixCollapsesGroupsIntoCarousels(t *testing.T) {
	svc := newTestService(t, memory.New())

	ranked := []feed.RankedItem{
		rankedPost("p1", "c1", ""),
		rankedPost("g1-a", "c2", "g1"),
		rankedPost("p2", "c3", ""),
		rankedPost("g1-b", "c2", "g1"),
		rankedPost("g1-c", "c2", "g1"),
	}

	mixed := svc.mix(ranked, nil, normalSession(), nil)
	if len(mixed) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(mixed))
	}
	if mixed[1].Kind != feed.KindCarousel {
		t.Fatalf("expected carousel at best member's position, got %s", mixed[1].Kind)
	}
	if len(mixed[1].Carousel) != 3 {
		t.Fatalf("expected 3 carousel members, got %d", len(mixed[1].Carousel))
	}
	if mixed[1].Carousel[0].Post.ID != "g1-a" {
		t.Fatalf("expected best-ranked member first, got %s", mixed[1].Carousel[0].Post.ID)
	}
}

func TestMixSingleMemberGroupStaysPost(t *testing.T) {
	svc := newTestService(t, memory.New())

	mixed := svc.mix([]feed.RankedItem{rankedPost("g1-a", "c1", "g1")}, nil, normalSession(), nil)
	if len(mixed) != 1 || mixed[0].Kind != feed.KindPost {
		t.Fatalf("expected single group member rendered as a plain post, got %+v", mixed[0])
	}
}

func TestMixAdCadenceByAggression(t *testing.T) {
	svc := newTestService(t, memory.New())
	slate := []ad.AuctionResult{
		{Ad: ad.Candidate{ID: "ad-1", Bid: 5}},
		{Ad: ad.Candidate{ID: "ad-2", Bid: 4}},
	}

	tests := []struct {
		aggression feed.AdAggression
		wantFirst  int // index of the first ad, -1 for none
	}{
		{feed.AggressionHigh, 3},
		{feed.AggressionNormal, 5},
		{feed.AggressionLow, 8},
		{feed.AggressionNone, -1},
	}

	for _, tc := range tests {
		sess := normalSession()
		sess.AdAggression = tc.aggression
		mixed := svc.mix(rankedPosts(12), slate, sess, nil)

		firstAd := -1
		for i, item := range mixed {
			if item.Kind == feed.KindAd {
				firstAd = i
				break
			}
		}
		if firstAd != tc.wantFirst {
			t.Fatalf("aggression %s: first ad at %d, want %d", tc.aggression, firstAd, tc.wantFirst)
		}
	}
}

func TestMixAdFatigueSuppressesAds(t *testing.T) {
	svc := newTestService(t, memory.New())
	sess := normalSession()
	sess.AdFatigue = true

	slate := []ad.AuctionResult{{Ad: ad.Candidate{ID: "ad-1", Bid: 5}}}
	mixed := svc.mix(rankedPosts(12), slate, sess, nil)
	for _, item := range mixed {
		if item.Kind == feed.KindAd {
			t.Fatal("fatigued session must suppress the slate")
		}
	}
}

func TestMixFiltersSeenAds(t *testing.T) {
	svc := newTestService(t, memory.New())
	slate := []ad.AuctionResult{
		{Ad: ad.Candidate{ID: "ad-1", Bid: 5}},
		{Ad: ad.Candidate{ID: "ad-2", Bid: 4}},
	}
	seen := map[string]struct{}{"ad-1": {}}

	mixed := svc.mix(rankedPosts(12), slate, normalSession(), seen)
	for _, item := range mixed {
		if item.Kind == feed.KindAd && item.Ad.Ad.ID == "ad-1" {
			t.Fatal("seen ad must not be re-served")
		}
	}
}

func TestMixPreservesOrganicOrder(t *testing.T) {
	svc := newTestService(t, memory.New())
	ranked := rankedPosts(10)

	mixed := svc.mix(ranked, []ad.AuctionResult{{Ad: ad.Candidate{ID: "ad-1"}}}, normalSession(), nil)

	var organic []string
	for _, item := range mixed {
		if item.Kind == feed.KindPost {
			organic = append(organic, item.Post.Post.ID)
		}
	}
	if len(organic) != len(ranked) {
		t.Fatalf("expected all %d organic items, got %d", len(ranked), len(organic))
	}
	for i, item := range ranked {
		if organic[i] != item.Post.ID {
			t.Fatalf("organic order changed at %d: %s != %s", i, organic[i], item.Post.ID)
		}
	}
}
