// Package feed defines the request-scoped feed pipeline models: candidate
// provenance, session context, ranked and mixed items, and seen records.
package feed

import (
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
)

// Pool tags a candidate with the retrieval strategy that produced it.
type Pool string

const (
	PoolFollowed    Pool = "followed"
	PoolInterest    Pool = "interest"
	PoolTrending    Pool = "trending"
	PoolFresh       Pool = "fresh"
	PoolViral       Pool = "viral"
	PoolExploration Pool = "exploration"
)

// Pools lists every pool in assembly order.
var Pools = []Pool{PoolFollowed, PoolInterest, PoolTrending, PoolFresh, PoolViral, PoolExploration}

// Candidate is a post stamped with provenance and a frozen engagement score.
// The score is computed once at generation time so later counter changes do
// not reorder an in-flight request.
type Candidate struct {
	Post       post.Post `json:"post"`
	SourcePool Pool      `json:"sourcePool"`
	Kind       string    `json:"type"`
	Engagement int       `json:"engagementScore"`
}

// NewCandidate stamps a post for the given pool.
func NewCandidate(p post.Post, pool Pool) Candidate {
	return Candidate{
		Post:       p,
		SourcePool: pool,
		Kind:       "post",
		Engagement: p.EngagementScore(),
	}
}

// SessionState classifies the identity's browsing patience for this request.
type SessionState string

const (
	StateNew      SessionState = "new"
	StateCasual   SessionState = "casual"
	StateEngaged  SessionState = "engaged"
	StateFatigued SessionState = "fatigued"
)

// AdAggression tiers how densely ads are interposed.
type AdAggression string

const (
	AggressionNone   AdAggression = "none"
	AggressionLow    AdAggression = "low"
	AggressionNormal AdAggression = "normal"
	AggressionHigh   AdAggression = "high"
)

// SessionContext is the ephemeral per-request state. It is built fresh from
// the profile and recent signals and discarded once the response is written.
type SessionContext struct {
	State         SessionState
	AdAggression  AdAggression
	AdFatigue     bool
	ColdStart     bool
	FollowCount   int
	Interests     []string
	CreatorCounts map[string]int
}

// RankFactors records the contributions that produced a rank score.
type RankFactors struct {
	Engagement float64 `json:"engagement"`
	Recency    float64 `json:"recency"`
	Interest   float64 `json:"interest"`
	Diversity  float64 `json:"diversity"`
}

// RankedItem is a candidate with its final score and factor breakdown.
type RankedItem struct {
	Candidate
	Score   float64     `json:"score"`
	Factors RankFactors `json:"factors"`
}

// ItemKind discriminates mixed feed entries.
type ItemKind string

const (
	KindPost     ItemKind = "post"
	KindAd       ItemKind = "ad"
	KindCarousel ItemKind = "carousel"
)

// MixedItem is one entry of the final feed: an organic post, a sponsored
// item, or a carousel group emitted as a single placement unit.
type MixedItem struct {
	Kind     ItemKind          `json:"kind"`
	Post     *RankedItem       `json:"post,omitempty"`
	Ad       *ad.AuctionResult `json:"ad,omitempty"`
	Carousel []RankedItem      `json:"carousel,omitempty"`
}

// ContentIDs returns every underlying content id carried by the item. Used
// for seen-record writes.
func (m MixedItem) ContentIDs() []string {
	switch m.Kind {
	case KindPost:
		if m.Post != nil {
			return []string{m.Post.Post.ID}
		}
	case KindAd:
		if m.Ad != nil {
			return []string{m.Ad.Ad.ID}
		}
	case KindCarousel:
		ids := make([]string, 0, len(m.Carousel))
		for _, item := range m.Carousel {
			ids = append(ids, item.Post.ID)
		}
		return ids
	}
	return nil
}

// Page is one paginated slice of the mixed feed.
type Page struct {
	Items   []MixedItem `json:"items"`
	HasMore bool        `json:"hasMore"`
}

// SeenRecord marks a content id as shown to an identity within a session.
type SeenRecord struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	SessionID string    `json:"sessionId"`
	PostID    string    `json:"postId"`
	SeenAt    time.Time `json:"seenAt"`
}
