// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

const engagementExpr = "(likes + comments + 2*shares)"

// Store implements the storage interfaces over a *sql.DB.
type Store struct {
	db *sql.DB
}

var _ storage.ProfileStore = (*Store)(nil)
var _ storage.SignalStore = (*Store)(nil)
var _ storage.FollowStore = (*Store)(nil)
var _ storage.PostStore = (*Store)(nil)
var _ storage.AdStore = (*Store)(nil)
var _ storage.SeenStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	if p.OwnerID == "" {
		return profile.Profile{}, fmt.Errorf("owner id is required")
	}
	now := time.Now().UTC()
	p.UpdatedAt = now

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO feed_profiles (owner_id, username, interests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (owner_id) DO UPDATE
		SET username = EXCLUDED.username, interests = EXCLUDED.interests, updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`, p.OwnerID, p.Username, pq.Array(p.Interests), now).Scan(&p.CreatedAt)
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, ownerID string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT owner_id, username, interests, created_at, updated_at
		FROM feed_profiles
		WHERE owner_id = $1
	`, ownerID)

	var p profile.Profile
	var interests pq.StringArray
	if err := row.Scan(&p.OwnerID, &p.Username, &interests, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profile.Profile{}, fmt.Errorf("profile %s: %w", ownerID, storage.ErrNotFound)
		}
		return profile.Profile{}, err
	}
	p.Interests = interests
	return p, nil
}

// --- SignalStore ------------------------------------------------------------

func (s *Store) RecordSignal(ctx context.Context, sig profile.Signal) (profile.Signal, error) {
	if sig.OwnerID == "" {
		return profile.Signal{}, fmt.Errorf("owner id is required")
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_signals (id, owner_id, kind, post_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sig.ID, sig.OwnerID, string(sig.Kind), sig.PostID, sig.CreatedAt)
	if err != nil {
		return profile.Signal{}, err
	}
	return sig, nil
}

func (s *Store) ListRecentSignals(ctx context.Context, ownerID string, limit int) ([]profile.Signal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, post_id, created_at
		FROM feed_signals
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []profile.Signal
	for rows.Next() {
		var sig profile.Signal
		var kind string
		if err := rows.Scan(&sig.ID, &sig.OwnerID, &kind, &sig.PostID, &sig.CreatedAt); err != nil {
			return nil, err
		}
		sig.Kind = profile.SignalKind(kind)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// --- FollowStore ------------------------------------------------------------

func (s *Store) Follow(ctx context.Context, followerID, creatorID string) error {
	if followerID == "" || creatorID == "" {
		return fmt.Errorf("follower and creator ids are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_follows (follower_id, creator_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, creator_id) DO NOTHING
	`, followerID, creatorID, time.Now().UTC())
	return err
}

func (s *Store) Unfollow(ctx context.Context, followerID, creatorID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_follows WHERE follower_id = $1 AND creator_id = $2
	`, followerID, creatorID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("follow %s -> %s: %w", followerID, creatorID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CountFollows(ctx context.Context, followerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM feed_follows WHERE follower_id = $1
	`, followerID).Scan(&count)
	return count, err
}

func (s *Store) ListFollowedCreators(ctx context.Context, followerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT creator_id FROM feed_follows WHERE follower_id = $1 ORDER BY creator_id
	`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []string
	for rows.Next() {
		var creator string
		if err := rows.Scan(&creator); err != nil {
			return nil, err
		}
		creators = append(creators, creator)
	}
	return creators, rows.Err()
}

// --- PostStore --------------------------------------------------------------

const postColumns = "id, creator_id, group_id, post_type, caption, tags, likes, comments, shares, created_at, updated_at"

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.CreatorID, p.GroupID, p.PostType, p.Caption, pq.Array(p.Tags),
		p.Likes, p.Comments, p.Shares, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return post.Post{}, err
	}
	return p, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM feed_posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Post{}, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return p, err
}

func (s *Store) ListPostsByCreators(ctx context.Context, creatorIDs []string, f storage.PostFilter) ([]post.Post, error) {
	if len(creatorIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE creator_id = ANY($1)
		  AND ($2 = '' OR lower(post_type) = $2)
		ORDER BY created_at DESC, id
		LIMIT $3
	`, pq.Array(creatorIDs), normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *Store) ListPostsByInterests(ctx context.Context, interests []string, f storage.PostFilter) ([]post.Post, error) {
	if len(interests) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE tags && $1::text[]
		  AND ($2 = '' OR lower(post_type) = $2)
		ORDER BY created_at DESC, id
		LIMIT $3
	`, pq.Array(interests), normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *Store) ListTrendingPosts(ctx context.Context, minEngagement int, f storage.PostFilter) ([]post.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE `+engagementExpr+` >= $1
		  AND ($2 = '' OR lower(post_type) = $2)
		ORDER BY `+engagementExpr+` DESC, created_at DESC, id
		LIMIT $3
	`, minEngagement, normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *Store) ListRecentPosts(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE ($1 = '' OR lower(post_type) = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`, normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *Store) ListViralPosts(ctx context.Context, minEngagement int, maxAge time.Duration, f storage.PostFilter) ([]post.Post, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE `+engagementExpr+` >= $1
		  AND created_at >= $2
		  AND ($3 = '' OR lower(post_type) = $3)
		ORDER BY `+engagementExpr+` DESC, created_at DESC, id
		LIMIT $4
	`, minEngagement, cutoff, normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

func (s *Store) SamplePosts(ctx context.Context, excludeTags []string, f storage.PostFilter) ([]post.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM feed_posts
		WHERE NOT (tags && $1::text[])
		  AND ($2 = '' OR lower(post_type) = $2)
		ORDER BY random()
		LIMIT $3
	`, pq.Array(excludeTags), normalizeType(f.PostType), queryLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	return scanPosts(rows)
}

// --- AdStore ----------------------------------------------------------------

func (s *Store) CreateAd(ctx context.Context, a ad.Candidate) (ad.Candidate, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_ads (id, advertiser, headline, media_url, interest_tags, bid, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.Advertiser, a.Headline, a.MediaURL, pq.Array(a.InterestTags), a.Bid, a.Active, a.CreatedAt)
	if err != nil {
		return ad.Candidate{}, err
	}
	return a, nil
}

func (s *Store) ListActiveAds(ctx context.Context) ([]ad.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, advertiser, headline, media_url, interest_tags, bid, active, created_at
		FROM feed_ads
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []ad.Candidate
	for rows.Next() {
		var a ad.Candidate
		var tags pq.StringArray
		if err := rows.Scan(&a.ID, &a.Advertiser, &a.Headline, &a.MediaURL, &tags, &a.Bid, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.InterestTags = tags
		ads = append(ads, a)
	}
	return ads, rows.Err()
}

// --- SeenStore --------------------------------------------------------------

func (s *Store) RecordSeen(ctx context.Context, records []feed.SeenRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feed_seen_posts (id, owner_id, session_id, post_id, seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.OwnerID == "" || rec.PostID == "" {
			return fmt.Errorf("seen record requires owner and post ids")
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.SeenAt.IsZero() {
			rec.SeenAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.OwnerID, rec.SessionID, rec.PostID, rec.SeenAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListSeenPostIDs(ctx context.Context, ownerID, sessionID string, window time.Duration) (map[string]struct{}, error) {
	cutoff := time.Now().UTC().Add(-window)
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id
		FROM feed_seen_posts
		WHERE owner_id = $1 AND session_id = $2 AND seen_at >= $3
	`, ownerID, sessionID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *Store) DeleteExpiredSeen(ctx context.Context, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM feed_seen_posts WHERE seen_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// --- helpers ----------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (post.Post, error) {
	var p post.Post
	var tags pq.StringArray
	err := row.Scan(&p.ID, &p.CreatorID, &p.GroupID, &p.PostType, &p.Caption, &tags,
		&p.Likes, &p.Comments, &p.Shares, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return post.Post{}, err
	}
	p.Tags = tags
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]post.Post, error) {
	defer rows.Close()

	var posts []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// normalizeType lowercases the filter so comparisons against lower(post_type)
// behave the same as the in-memory store's case-insensitive match.
func normalizeType(postType string) string {
	t := strings.ToLower(strings.TrimSpace(postType))
	if t == "all" {
		return ""
	}
	return t
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
