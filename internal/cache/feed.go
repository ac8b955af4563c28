package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedCachePrefix is the key prefix for user feed caches
	FeedCachePrefix = "feed:user:"

	// FeedCacheCap is the maximum number of entries to cache per user
	FeedCacheCap = 500

	// FeedCacheTTL is the TTL for feed cache (7 days)
	FeedCacheTTL = 7 * 24 * time.Hour
)

// FeedEntry is one timeline item: a post, optionally attributed to the user
// who reposted it into this timeline. RepostedBy is zero for original posts.
// Entries carry the activity timestamp used as the ZSET score.
type FeedEntry struct {
	PostID     int64
	RepostedBy int64
	Timestamp  int64 // Unix seconds of the post or repost
}

// Member encodes the entry as a ZSET member: "postID" for originals,
// "postID:reposterID" for reposts. The two forms never collide, so a post
// and a repost of it can coexist in one timeline.
func (e FeedEntry) Member() string {
	if e.RepostedBy == 0 {
		return strconv.FormatInt(e.PostID, 10)
	}
	return fmt.Sprintf("%d:%d", e.PostID, e.RepostedBy)
}

// ParseMember decodes a ZSET member back into a FeedEntry (without score).
func ParseMember(member string) (FeedEntry, error) {
	post, reposter, found := strings.Cut(member, ":")
	var e FeedEntry
	var err error
	e.PostID, err = strconv.ParseInt(post, 10, 64)
	if err != nil {
		return FeedEntry{}, fmt.Errorf("parse post id %q: %w", member, err)
	}
	if found {
		e.RepostedBy, err = strconv.ParseInt(reposter, 10, 64)
		if err != nil {
			return FeedEntry{}, fmt.Errorf("parse reposter id %q: %w", member, err)
		}
	}
	return e, nil
}

// FeedCache defines the interface for feed cache operations.
// Using an interface enables testing with mocks and potential future backends.
type FeedCache interface {
	// AddEntry adds one timeline entry to a user's feed cache.
	// Uses pipeline: ZADD + ZREMRANGEBYRANK (maintain cap) + EXPIRE (refresh TTL)
	AddEntry(ctx context.Context, userID int64, entry FeedEntry) error

	// RemoveEntry removes one specific entry from a user's feed cache.
	RemoveEntry(ctx context.Context, userID int64, entry FeedEntry) error

	// RemovePost removes every entry referencing a post from a user's feed
	// cache: the original member plus any repost-attributed members.
	RemovePost(ctx context.Context, userID, postID int64) error

	// GetPage retrieves entries from a user's feed cache, newest first.
	// If cursorScore is nil the newest entries are returned, otherwise only
	// entries strictly older than the cursor. Scores are returned alongside
	// for building the next cursor.
	GetPage(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]FeedEntry, []float64, error)

	// WarmCache bulk-inserts entries into a user's feed cache.
	WarmCache(ctx context.Context, userID int64, entries []FeedEntry) error

	// Size returns the number of entries in a user's feed cache.
	Size(ctx context.Context, userID int64) (int64, error)

	// Exists checks if a user has a feed cache entry. Returns false for new
	// users or after TTL expiry; the service layer warms the cache then.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// RedisFeedCache implements FeedCache using Redis Sorted Sets.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a new FeedCache backed by Redis.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

// AddEntry adds an entry using a pipeline: ZADD + trim to cap + refresh TTL.
func (c *RedisFeedCache) AddEntry(ctx context.Context, userID int64, entry FeedEntry) error {
	key := feedKey(userID)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(entry.Timestamp),
		Member: entry.Member(),
	})
	// Keep the newest FeedCacheCap scores, drop the rest.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] AddEntry FAILED: user=%d member=%s err=%v", userID, entry.Member(), err)
		return fmt.Errorf("add entry to feed: %w", err)
	}
	return nil
}

// RemoveEntry removes a single member from a user's feed cache.
func (c *RedisFeedCache) RemoveEntry(ctx context.Context, userID int64, entry FeedEntry) error {
	key := feedKey(userID)

	if err := c.client.ZRem(ctx, key, entry.Member()).Err(); err != nil {
		log.Printf("[FeedCache] RemoveEntry FAILED: user=%d member=%s err=%v", userID, entry.Member(), err)
		return fmt.Errorf("remove entry from feed: %w", err)
	}
	return nil
}

// RemovePost removes the original member and scans for repost-attributed
// members of the same post. ZSCAN keeps this O(cache size) worst case, which
// is bounded by FeedCacheCap.
func (c *RedisFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	key := feedKey(userID)
	members := []interface{}{strconv.FormatInt(postID, 10)}

	match := fmt.Sprintf("%d:*", postID)
	var cursor uint64
	for {
		batch, next, err := c.client.ZScan(ctx, key, cursor, match, 100).Result()
		if err != nil {
			log.Printf("[FeedCache] RemovePost scan FAILED: user=%d post=%d err=%v", userID, postID, err)
			return fmt.Errorf("scan feed for post: %w", err)
		}
		// ZSCAN returns member, score pairs; keep the members.
		for i := 0; i < len(batch); i += 2 {
			members = append(members, batch[i])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if err := c.client.ZRem(ctx, key, members...).Err(); err != nil {
		log.Printf("[FeedCache] RemovePost FAILED: user=%d post=%d err=%v", userID, postID, err)
		return fmt.Errorf("remove post from feed: %w", err)
	}
	return nil
}

// GetPage retrieves entries newest-first. With a cursor, only entries with
// score strictly below the cursor are returned (exclusive range).
func (c *RedisFeedCache) GetPage(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]FeedEntry, []float64, error) {
	key := feedKey(userID)

	var results []redis.Z
	var err error

	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("(%f", *cursorScore), // exclusive
			Offset: 0,
			Count:  int64(limit),
		}).Result()
	}
	if err != nil {
		log.Printf("[FeedCache] GetPage FAILED: user=%d err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed page: %w", err)
	}

	// Refresh TTL on access
	c.client.Expire(ctx, key, FeedCacheTTL)

	entries := make([]FeedEntry, len(results))
	scores := make([]float64, len(results))
	for i, z := range results {
		entry, err := ParseMember(z.Member.(string))
		if err != nil {
			log.Printf("[FeedCache] GetPage parse error: member=%v err=%v", z.Member, err)
			return nil, nil, err
		}
		entry.Timestamp = int64(z.Score)
		entries[i] = entry
		scores[i] = z.Score
	}

	return entries, scores, nil
}

// WarmCache bulk-inserts entries using a single pipeline.
func (c *RedisFeedCache) WarmCache(ctx context.Context, userID int64, entries []FeedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	key := feedKey(userID)

	members := make([]redis.Z, len(entries))
	for i, e := range entries {
		members[i] = redis.Z{
			Score:  float64(e.Timestamp),
			Member: e.Member(),
		}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%d entries=%d err=%v", userID, len(entries), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%d entries=%d", userID, len(entries))
	return nil
}

// Size returns the number of entries in a user's feed cache.
func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

// Exists checks if a user has a feed cache entry.
func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return exists > 0, nil
}
