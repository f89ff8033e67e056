// Package ad defines sponsored inventory and auction models.
package ad

import "time"

// Candidate is a sponsored item from the ad inventory.
type Candidate struct {
	ID           string    `json:"id"`
	Advertiser   string    `json:"advertiser"`
	Headline     string    `json:"headline"`
	MediaURL     string    `json:"mediaUrl,omitempty"`
	InterestTags []string  `json:"interestTags,omitempty"`
	Bid          float64   `json:"bid"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuctionResult pairs an ad with the relevance-derived score that won it a
// slate position.
type AuctionResult struct {
	Ad    Candidate `json:"ad"`
	Score float64   `json:"score"`
}
