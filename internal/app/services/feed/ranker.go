package feed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
)

// rank scores every candidate and selects them greedily under a diversity
// penalty: each pick raises the penalty for the picked creator's remaining
// candidates, so one prolific creator cannot dominate the head of the feed.
// Candidates that fail scoring are dropped, not propagated as errors.
func (s *Service) rank(candidates []feed.Candidate, sess *feed.SessionContext) []feed.RankedItem {
	type scored struct {
		item feed.RankedItem
		base float64
	}

	now := s.now().UTC()
	pool := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		base, factors, err := s.scoreCandidate(cand, sess, now)
		if err != nil {
			s.log.WithError(err).
				WithField("post_id", cand.Post.ID).
				Warn("scoring failed; dropping candidate")
			continue
		}
		pool = append(pool, scored{
			item: feed.RankedItem{Candidate: cand, Factors: factors},
			base: base,
		})
	}

	counts := sess.CreatorCounts
	for _, sc := range pool {
		if _, ok := counts[sc.item.Post.CreatorID]; !ok {
			counts[sc.item.Post.CreatorID] = 0
		}
	}

	picked := make([]feed.RankedItem, 0, len(pool))
	for len(pool) > 0 {
		best := -1
		var bestScore float64
		for i, sc := range pool {
			eff := sc.base - s.diversityPenalty(counts[sc.item.Post.CreatorID])
			switch {
			case best == -1, eff > bestScore:
				best = i
				bestScore = eff
			case eff == bestScore && sc.item.Post.ID < pool[best].item.Post.ID:
				best = i
			}
		}

		sc := pool[best]
		sc.item.Score = bestScore
		sc.item.Factors.Diversity = s.diversityPenalty(counts[sc.item.Post.CreatorID])
		counts[sc.item.Post.CreatorID]++
		picked = append(picked, sc.item)
		pool = append(pool[:best], pool[best+1:]...)
	}
	return picked
}

// scoreCandidate computes the diversity-independent part of the score:
// log-dampened engagement, exponentially decayed recency and a flat interest
// boost when the post shares a tag with the identity's interests.
func (s *Service) scoreCandidate(cand feed.Candidate, sess *feed.SessionContext, now time.Time) (float64, feed.RankFactors, error) {
	if cand.Post.ID == "" {
		return 0, feed.RankFactors{}, fmt.Errorf("candidate missing id")
	}
	if cand.Post.CreatedAt.IsZero() {
		return 0, feed.RankFactors{}, fmt.Errorf("candidate %s missing creation time", cand.Post.ID)
	}

	engagement := s.cfg.WeightEngagement * math.Log1p(float64(cand.Engagement))

	age := now.Sub(cand.Post.CreatedAt)
	if age < 0 {
		age = 0
	}
	recency := s.cfg.WeightRecency * math.Exp(-age.Hours()/s.cfg.RecencyTau.Hours())

	var interest float64
	if tagsOverlap(cand.Post.Tags, sess.Interests) {
		interest = s.cfg.WeightInterest
	}

	factors := feed.RankFactors{
		Engagement: engagement,
		Recency:    recency,
		Interest:   interest,
	}
	return engagement + recency + interest, factors, nil
}

// diversityPenalty grows linearly once a creator exceeds their free repeats.
func (s *Service) diversityPenalty(placed int) float64 {
	over := placed - s.cfg.FreeRepeatsPerCreator
	if over < 0 {
		over = 0
	}
	return s.cfg.DiversityPenalty * float64(over)
}

func tagsOverlap(tags, interests []string) bool {
	for _, tag := range tags {
		for _, interest := range interests {
			if strings.EqualFold(tag, interest) {
				return true
			}
		}
	}
	return false
}
