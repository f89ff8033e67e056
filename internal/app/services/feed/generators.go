package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/metrics"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

type poolSpec struct {
	pool  feed.Pool
	size  int
	fetch func(ctx context.Context, f storage.PostFilter) ([]post.Post, error)
}

// poolSpecs assembles the candidate pools for this session. Cold-start
// sessions skip the followed pool entirely and widen the discovery pools.
func (s *Service) poolSpecs(ownerID string, sess *feed.SessionContext) []poolSpec {
	interestSize := s.cfg.InterestPoolSize
	trendingSize := s.cfg.TrendingPoolSize
	explorationSize := s.cfg.ExplorationPoolSize
	if sess.ColdStart {
		interestSize = s.cfg.InterestPoolColdSize
		trendingSize = s.cfg.TrendingPoolColdSize
		explorationSize = s.cfg.ExplorationPoolColdSize
	}

	specs := make([]poolSpec, 0, len(feed.Pools))
	if !sess.ColdStart {
		specs = append(specs, poolSpec{
			pool: feed.PoolFollowed,
			size: s.cfg.FollowedPoolSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				creators, err := s.stores.Follows.ListFollowedCreators(ctx, ownerID)
				if err != nil {
					return nil, err
				}
				if len(creators) == 0 {
					return nil, nil
				}
				return s.stores.Posts.ListPostsByCreators(ctx, creators, f)
			},
		})
	}
	specs = append(specs,
		poolSpec{
			pool: feed.PoolInterest,
			size: interestSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				if len(sess.Interests) == 0 {
					return nil, nil
				}
				return s.stores.Posts.ListPostsByInterests(ctx, sess.Interests, f)
			},
		},
		poolSpec{
			pool: feed.PoolTrending,
			size: trendingSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				return s.stores.Posts.ListTrendingPosts(ctx, s.cfg.TrendingMinEngagement, f)
			},
		},
		poolSpec{
			pool: feed.PoolFresh,
			size: s.cfg.FreshPoolSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				return s.stores.Posts.ListRecentPosts(ctx, f)
			},
		},
		poolSpec{
			pool: feed.PoolViral,
			size: s.cfg.ViralPoolSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				return s.stores.Posts.ListViralPosts(ctx, s.cfg.ViralMinEngagement, s.cfg.ViralMaxAge, f)
			},
		},
		poolSpec{
			pool: feed.PoolExploration,
			size: explorationSize,
			fetch: func(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
				return s.stores.Posts.SamplePosts(ctx, sess.Interests, f)
			},
		},
	)
	return specs
}

// generateCandidates fans the pool queries out concurrently and joins the
// results in pool order. A failing or panicking pool contributes an empty
// list; the remaining pools are unaffected.
func (s *Service) generateCandidates(ctx context.Context, ownerID, postType string, sess *feed.SessionContext) []feed.Candidate {
	specs := s.poolSpecs(ownerID, sess)
	results := make([][]feed.Candidate, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec poolSpec) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.WithField("pool", spec.pool).
						Errorf("candidate pool panicked: %v", r)
					metrics.RecordGeneratorFailure(string(spec.pool))
					results[i] = nil
				}
			}()

			posts, err := spec.fetch(ctx, storage.PostFilter{
				PostType: normalizePostType(postType),
				Limit:    spec.size,
			})
			if err != nil {
				s.log.WithError(err).
					WithField("pool", spec.pool).
					Warn("candidate pool failed; continuing with empty pool")
				metrics.RecordGeneratorFailure(string(spec.pool))
				return
			}

			candidates := make([]feed.Candidate, 0, len(posts))
			for _, p := range posts {
				candidates = append(candidates, feed.NewCandidate(p, spec.pool))
			}
			results[i] = candidates
			metrics.RecordCandidates(string(spec.pool), len(candidates))
		}(i, spec)
	}
	wg.Wait()

	var all []feed.Candidate
	for _, batch := range results {
		all = append(all, batch...)
	}
	return all
}

// normalizePostType lowercases the requested type so every store backend
// filters the same way, and maps "all" to the match-everything empty filter.
func normalizePostType(postType string) string {
	t := strings.ToLower(strings.TrimSpace(postType))
	if t == "all" {
		return ""
	}
	return t
}
