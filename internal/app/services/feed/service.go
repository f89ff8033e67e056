// Package feed implements the feed generation pipeline: candidate retrieval
// across six pools, multi-signal ranking, ad auction, deduplication, mixing
// and pagination.
package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/metrics"
	"github.com/vibeshare/feedservice/internal/app/storage"
	"github.com/vibeshare/feedservice/internal/config"
	"github.com/vibeshare/feedservice/pkg/logger"
)

// Stores groups the persistence dependencies of the pipeline.
type Stores struct {
	Profiles storage.ProfileStore
	Signals  storage.SignalStore
	Follows  storage.FollowStore
	Posts    storage.PostStore
	Ads      storage.AdStore
	Seen     storage.SeenStore
}

// Service generates personalized feeds. All state is request-scoped; the
// service itself only holds configuration and store handles.
type Service struct {
	stores Stores
	cfg    config.FeedConfig
	log    *logger.Logger
	now    func() time.Time
}

// New constructs a feed service.
func New(stores Stores, cfg config.FeedConfig, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("feed")
	}
	return &Service{
		stores: stores,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Request carries the caller-supplied feed parameters.
type Request struct {
	SessionID string
	Offset    int
	Limit     int
	PostType  string
}

// SessionSummary is the caller-visible slice of the session context.
type SessionSummary struct {
	State     feed.SessionState `json:"state"`
	AdFatigue bool              `json:"adFatigue"`
}

// Result is one generated feed page.
type Result struct {
	Items   []feed.MixedItem
	HasMore bool
	Session SessionSummary
}

// GenerateFeed runs the full pipeline for one request. Pool and per-item
// failures degrade locally; only identity loading errors abort the request.
func (s *Service) GenerateFeed(ctx context.Context, ownerID string, req Request) (Result, error) {
	if ownerID == "" {
		return Result{}, fmt.Errorf("owner id is required")
	}
	if req.SessionID == "" {
		return Result{}, fmt.Errorf("session id is required")
	}
	offset, limit := s.clampPage(req.Offset, req.Limit)

	loadStart := s.now()
	prof, signals, err := s.loadIdentity(ctx, ownerID)
	if err != nil {
		return Result{}, fmt.Errorf("load identity: %w", err)
	}
	metrics.ObserveStage("load", time.Since(loadStart))

	followCount, err := s.stores.Follows.CountFollows(ctx, ownerID)
	if err != nil {
		s.log.WithError(err).
			WithField("owner_id", ownerID).
			Warn("count follows failed; assuming cold start")
		followCount = 0
	}

	sess := s.buildSessionContext(prof, signals, followCount)

	genStart := s.now()
	candidates := s.generateCandidates(ctx, ownerID, req.PostType, sess)
	metrics.ObserveStage("generate", time.Since(genStart))

	// Ranking, the ad auction and the seen lookup have independent inputs;
	// run them concurrently and join at the mixer.
	var (
		wg      sync.WaitGroup
		ranked  []feed.RankedItem
		slate   []ad.AuctionResult
		seenIDs map[string]struct{}
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		start := s.now()
		ranked = s.rank(candidates, sess)
		metrics.ObserveStage("rank", time.Since(start))
	}()
	go func() {
		defer wg.Done()
		if sess.AdFatigue || sess.AdAggression == feed.AggressionNone {
			return
		}
		start := s.now()
		slate = s.runAuction(ctx, sess.Interests, s.cfg.AdSlateSize)
		metrics.ObserveStage("auction", time.Since(start))
	}()
	go func() {
		defer wg.Done()
		ids, err := s.stores.Seen.ListSeenPostIDs(ctx, ownerID, req.SessionID, s.cfg.SeenWindow)
		if err != nil {
			s.log.WithError(err).
				WithField("owner_id", ownerID).
				Warn("seen lookup failed; proceeding without dedup")
			ids = make(map[string]struct{})
		}
		seenIDs = ids
	}()
	wg.Wait()

	mixed := s.mix(ranked, slate, sess, seenIDs)
	pageItems, hasMore := paginate(mixed, offset, limit)

	s.recordSeen(ctx, ownerID, req.SessionID, pageItems)

	return Result{
		Items:   pageItems,
		HasMore: hasMore,
		Session: SessionSummary{State: sess.State, AdFatigue: sess.AdFatigue},
	}, nil
}

func (s *Service) clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > s.cfg.MaxOffset {
		offset = s.cfg.MaxOffset
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return offset, limit
}

// paginate slices the mixed feed. An offset at or beyond the end yields an
// empty page with hasMore=false.
func paginate(items []feed.MixedItem, offset, limit int) ([]feed.MixedItem, bool) {
	if offset >= len(items) {
		return []feed.MixedItem{}, false
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := make([]feed.MixedItem, end-offset)
	copy(page, items[offset:end])
	return page, end < len(items)
}

// recordSeen persists the shown content ids. Failures are logged and
// swallowed: the already-computed page is still returned.
func (s *Service) recordSeen(ctx context.Context, ownerID, sessionID string, items []feed.MixedItem) {
	if len(items) == 0 {
		return
	}
	now := s.now().UTC()
	var records []feed.SeenRecord
	for _, item := range items {
		for _, id := range item.ContentIDs() {
			records = append(records, feed.SeenRecord{
				OwnerID:   ownerID,
				SessionID: sessionID,
				PostID:    id,
				SeenAt:    now,
			})
		}
	}
	if err := s.stores.Seen.RecordSeen(ctx, records); err != nil {
		s.log.WithError(err).
			WithField("owner_id", ownerID).
			Warn("seen record write failed")
	}
}
