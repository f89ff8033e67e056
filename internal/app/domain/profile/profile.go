// Package profile defines identity, behavioral signal and follow models.
package profile

import "time"

// Profile is the persisted identity record consulted per feed request.
type Profile struct {
	OwnerID   string    `json:"ownerId"`
	Username  string    `json:"username,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SignalKind enumerates the behavioral signal types the pipeline consumes.
type SignalKind string

const (
	SignalView    SignalKind = "view"
	SignalLike    SignalKind = "like"
	SignalComment SignalKind = "comment"
	SignalShare   SignalKind = "share"
	SignalAdView  SignalKind = "ad_view"
)

// Signal is one recorded behavioral event for an identity.
type Signal struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Kind      SignalKind `json:"kind"`
	PostID    string     `json:"postId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Follow links a follower identity to a creator.
type Follow struct {
	FollowerID string    `json:"followerId"`
	CreatorID  string    `json:"creatorId"`
	CreatedAt  time.Time `json:"createdAt"`
}
