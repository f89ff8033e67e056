package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/vibeshare/feedservice/internal/app/domain/feed"
	"github.com/vibeshare/feedservice/internal/app/storage"
)

func TestGetProfileNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT owner_id, username, interests").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "username", "interests", "created_at", "updated_at"}))

	store := New(db)
	_, err = store.GetProfile(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetProfileScansInterests(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"owner_id", "username", "interests", "created_at", "updated_at"}).
		AddRow("u1", "alice", pq.StringArray{"music", "travel"}, now, now)
	mock.ExpectQuery("SELECT owner_id, username, interests").
		WithArgs("u1").
		WillReturnRows(rows)

	store := New(db)
	p, err := store.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if len(p.Interests) != 2 || p.Interests[0] != "music" {
		t.Fatalf("interests not scanned: %v", p.Interests)
	}
}

func TestListRecentPostsLowercasesTypeFilter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "creator_id", "group_id", "post_type", "caption", "tags",
		"likes", "comments", "shares", "created_at", "updated_at",
	})
	mock.ExpectQuery(`lower\(post_type\)`).
		WithArgs("image", 10).
		WillReturnRows(rows)

	store := New(db)
	if _, err := store.ListRecentPosts(context.Background(), storage.PostFilter{PostType: "Image", Limit: 10}); err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSeenCommitsBatch(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO feed_seen_posts")
	mock.ExpectExec("INSERT INTO feed_seen_posts").
		WithArgs(sqlmock.AnyArg(), "u1", "s1", "p1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO feed_seen_posts").
		WithArgs(sqlmock.AnyArg(), "u1", "s1", "p2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := New(db)
	err = store.RecordSeen(context.Background(), []feed.SeenRecord{
		{OwnerID: "u1", SessionID: "s1", PostID: "p1"},
		{OwnerID: "u1", SessionID: "s1", PostID: "p2"},
	})
	if err != nil {
		t.Fatalf("record seen: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteExpiredSeenReportsCount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM feed_seen_posts").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	store := New(db)
	removed, err := store.DeleteExpiredSeen(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if removed != 7 {
		t.Fatalf("expected 7 removed, got %d", removed)
	}
}
