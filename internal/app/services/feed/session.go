package feed

import (
	"time"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
)

// buildSessionContext classifies the owner's current session from the recent
// signal history and follow graph size. The classification drives pool
// sizing, ranking personalization and ad cadence downstream.
func (s *Service) buildSessionContext(prof profile.Profile, signals []profile.Signal, followCount int) *feed.SessionContext {
	now := s.now().UTC()
	cutoff := now.Add(-s.cfg.SignalWindow)

	recent := 0
	adViews := 0
	var newest time.Time
	for _, sig := range signals {
		if sig.CreatedAt.Before(cutoff) {
			continue
		}
		recent++
		if sig.Kind == profile.SignalAdView {
			adViews++
		}
		if sig.CreatedAt.After(newest) {
			newest = sig.CreatedAt
		}
	}

	state := feed.StateNew
	switch {
	case recent == 0:
		state = feed.StateNew
	case recent >= s.cfg.FatiguedSignalCount:
		state = feed.StateFatigued
	case recent >= s.cfg.EngagedSignalCount && now.Sub(newest) <= s.cfg.EngagedRecency:
		state = feed.StateEngaged
	default:
		state = feed.StateCasual
	}

	return &feed.SessionContext{
		State:         state,
		AdAggression:  aggressionFor(state),
		AdFatigue:     adViews >= s.cfg.FatigueAdViews,
		ColdStart:     followCount < s.cfg.ColdStartFollowThreshold,
		FollowCount:   followCount,
		Interests:     append([]string(nil), prof.Interests...),
		CreatorCounts: make(map[string]int),
	}
}

// aggressionFor maps the session state to an ad cadence tier. Heavily active
// sessions are classified fatigued and receive no ads at all.
func aggressionFor(state feed.SessionState) feed.AdAggression {
	switch state {
	case feed.StateNew:
		return feed.AggressionLow
	case feed.StateEngaged:
		return feed.AggressionHigh
	case feed.StateFatigued:
		return feed.AggressionNone
	default:
		return feed.AggressionNormal
	}
}
