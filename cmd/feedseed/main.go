// Command feedseed loads demo data into the configured store so a local
// feedd instance has something to serve.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/vibeshare/feedservice/internal/app/domain/ad"
	"github.com/vibeshare/feedservice/internal/app/domain/post"
	"github.com/vibeshare/feedservice/internal/app/domain/profile"
	"github.com/vibeshare/feedservice/internal/app/storage"
	"github.com/vibeshare/feedservice/internal/app/storage/postgres"
	"github.com/vibeshare/feedservice/internal/config"
)

var interestCatalog = []string{"music", "travel", "food", "fitness", "art", "tech", "fashion", "gaming"}

type seedStore interface {
	storage.ProfileStore
	storage.SignalStore
	storage.FollowStore
	storage.PostStore
	storage.AdStore
}

func main() {
	var (
		envFile  = flag.String("env", "", "Optional .env file to load")
		creators = flag.Int("creators", 12, "Number of demo creators")
		posts    = flag.Int("posts", 15, "Posts per creator")
		ads      = flag.Int("ads", 8, "Active demo ads")
		owner    = flag.String("owner", "demo-user", "Demo identity to set up with follows and interests")
		seed     = flag.Int64("seed", 42, "Random seed")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("load env (%s): %v", *envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.DSN == "" {
		log.Fatal("DATABASE_URL is required; the memory store does not outlive the process")
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))
	if err := run(ctx, postgres.New(db), rng, *creators, *posts, *ads, *owner); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded %d creators, %d posts each, %d ads; demo identity %q", *creators, *posts, *ads, *owner)
}

func run(ctx context.Context, store seedStore, rng *rand.Rand, creators, postsPer, adCount int, owner string) error {
	now := time.Now().UTC()

	creatorIDs := make([]string, creators)
	for i := range creatorIDs {
		creatorIDs[i] = fmt.Sprintf("creator-%02d", i)
		_, err := store.UpsertProfile(ctx, profile.Profile{
			OwnerID:   creatorIDs[i],
			Username:  fmt.Sprintf("creator%02d", i),
			Interests: pickInterests(rng, 2),
		})
		if err != nil {
			return fmt.Errorf("creator profile: %w", err)
		}
	}

	for _, creator := range creatorIDs {
		// Half the creators publish their first three posts as a series so
		// carousels show up in demo feeds.
		series := ""
		if rng.Intn(2) == 0 {
			series = fmt.Sprintf("%s-series", creator)
		}
		for i := 0; i < postsPer; i++ {
			group := ""
			if i < 3 {
				group = series
			}
			_, err := store.CreatePost(ctx, post.Post{
				CreatorID: creator,
				GroupID:   group,
				PostType:  pickType(rng),
				Caption:   fmt.Sprintf("%s post %d", creator, i),
				Tags:      pickInterests(rng, 2),
				Likes:     rng.Intn(400),
				Comments:  rng.Intn(80),
				Shares:    rng.Intn(40),
				CreatedAt: now.Add(-time.Duration(rng.Intn(72)) * time.Hour),
			})
			if err != nil {
				return fmt.Errorf("post: %w", err)
			}
		}
	}

	for i := 0; i < adCount; i++ {
		_, err := store.CreateAd(ctx, ad.Candidate{
			Advertiser:   fmt.Sprintf("advertiser-%d", i),
			Headline:     fmt.Sprintf("Demo offer %d", i),
			InterestTags: pickInterests(rng, 2),
			Bid:          1 + rng.Float64()*9,
			Active:       true,
		})
		if err != nil {
			return fmt.Errorf("ad: %w", err)
		}
	}

	// Demo identity: warm follow graph plus a little signal history.
	ownerInterests := pickInterests(rng, 3)
	if _, err := store.UpsertProfile(ctx, profile.Profile{
		OwnerID:   owner,
		Username:  owner,
		Interests: ownerInterests,
	}); err != nil {
		return fmt.Errorf("owner profile: %w", err)
	}
	for i, creator := range creatorIDs {
		if i%2 == 0 {
			if err := store.Follow(ctx, owner, creator); err != nil {
				return fmt.Errorf("follow: %w", err)
			}
		}
	}
	kinds := []profile.SignalKind{profile.SignalView, profile.SignalView, profile.SignalLike, profile.SignalComment}
	for i := 0; i < 6; i++ {
		_, err := store.RecordSignal(ctx, profile.Signal{
			OwnerID:   owner,
			Kind:      kinds[i%len(kinds)],
			CreatedAt: now.Add(-time.Duration(i*10) * time.Minute),
		})
		if err != nil {
			return fmt.Errorf("signal: %w", err)
		}
	}
	return nil
}

func pickInterests(rng *rand.Rand, n int) []string {
	picked := make([]string, 0, n)
	perm := rng.Perm(len(interestCatalog))
	for _, idx := range perm[:n] {
		picked = append(picked, interestCatalog[idx])
	}
	return picked
}

func pickType(rng *rand.Rand) string {
	if rng.Intn(3) == 0 {
		return "video"
	}
	return "image"
}
