// Package post defines the content item domain model.
package post

import "time"

// Post is a single piece of content eligible for feed placement.
type Post struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creatorId"`
	GroupID   string    `json:"groupId,omitempty"`
	PostType  string    `json:"postType"`
	Caption   string    `json:"caption,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EngagementScore derives the canonical engagement metric from the raw
// counters. Shares weigh double.
func (p Post) EngagementScore() int {
	return p.Likes + p.Comments + 2*p.Shares
}
