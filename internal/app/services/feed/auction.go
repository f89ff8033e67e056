package feed

import (
	"context"
	"sort"
	"strings"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/metrics"
)

// runAuction scores the active inventory against the identity's interests
// and returns the top slate. Ad availability never blocks the feed: a store
// failure yields an empty slate and a warning.
func (s *Service) runAuction(ctx context.Context, interests []string, slateSize int) []ad.AuctionResult {
	if slateSize <= 0 {
		return nil
	}

	inventory, err := s.stores.Ads.ListActiveAds(ctx)
	if err != nil {
		s.log.WithError(err).Warn("ad auction failed; serving without ads")
		return nil
	}

	results := make([]ad.AuctionResult, 0, len(inventory))
	for _, candidate := range inventory {
		matches := countTagMatches(candidate.InterestTags, interests)
		results = append(results, ad.AuctionResult{
			Ad:    candidate,
			Score: candidate.Bid * float64(1+matches),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ad.ID < results[j].Ad.ID
	})
	if len(results) > slateSize {
		results = results[:slateSize]
	}
	metrics.RecordAdsAuctioned(len(results))
	return results
}

func countTagMatches(tags, interests []string) int {
	matches := 0
	for _, tag := range tags {
		for _, interest := range interests {
			if strings.EqualFold(tag, interest) {
				matches++
				break
			}
		}
	}
	return matches
}
