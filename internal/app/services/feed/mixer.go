package feed

import (
	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
)

// mix assembles the final feed: seen and duplicate ids are filtered from
// both streams, grouped posts collapse into carousels at their best member's
// position, and ads are interposed at the cadence the session allows. The
// relative order of organic items is preserved.
func (s *Service) mix(ranked []feed.RankedItem, slate []ad.AuctionResult, sess *feed.SessionContext, seen map[string]struct{}) []feed.MixedItem {
	emitted := make(map[string]struct{})
	groupIndex := make(map[string]int)

	var placements []feed.MixedItem
	for _, item := range ranked {
		id := item.Post.ID
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := emitted[id]; ok {
			continue
		}
		emitted[id] = struct{}{}

		if gid := item.Post.GroupID; gid != "" {
			if idx, ok := groupIndex[gid]; ok {
				placements[idx].Carousel = append(placements[idx].Carousel, item)
				continue
			}
			groupIndex[gid] = len(placements)
			placements = append(placements, feed.MixedItem{
				Kind:     feed.KindCarousel,
				Carousel: []feed.RankedItem{item},
			})
			continue
		}

		entry := item
		placements = append(placements, feed.MixedItem{Kind: feed.KindPost, Post: &entry})
	}

	// A group with a single surviving member renders as a plain post.
	for i := range placements {
		if placements[i].Kind == feed.KindCarousel && len(placements[i].Carousel) == 1 {
			only := placements[i].Carousel[0]
			placements[i] = feed.MixedItem{Kind: feed.KindPost, Post: &only}
		}
	}

	ads := make([]ad.AuctionResult, 0, len(slate))
	for _, result := range slate {
		if _, ok := seen[result.Ad.ID]; ok {
			continue
		}
		ads = append(ads, result)
	}

	interval := s.adInterval(sess.AdAggression)
	if sess.AdFatigue || interval <= 0 || len(ads) == 0 {
		return placements
	}

	mixed := make([]feed.MixedItem, 0, len(placements)+len(ads))
	adIdx := 0
	for i, placement := range placements {
		mixed = append(mixed, placement)
		if (i+1)%interval == 0 && adIdx < len(ads) {
			next := ads[adIdx]
			adIdx++
			mixed = append(mixed, feed.MixedItem{Kind: feed.KindAd, Ad: &next})
		}
	}
	return mixed
}

func (s *Service) adInterval(aggression feed.AdAggression) int {
	switch aggression {
	case feed.AggressionLow:
		return s.cfg.AdIntervalLow
	case feed.AggressionNormal:
		return s.cfg.AdIntervalNormal
	case feed.AggressionHigh:
		return s.cfg.AdIntervalHigh
	default:
		return 0
	}
}
