package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the feed stream
const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventPostLiked      = "post_liked"
	EventPostReplied    = "post_replied"
	EventPostReposted   = "post_reposted"
	EventRepostRemoved  = "repost_removed"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
)

// Stream names
const (
	StreamFeed = "stream:feed"
)

// Consumer group name for feed workers
const (
	ConsumerGroupFeed = "feed_workers"
)

// FeedEvent represents an event published to the feed stream.
// All feed-related events share this structure.
type FeedEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix seconds when the event occurred

	// Post events
	PostID   int64 `json:"post_id,omitempty"`
	AuthorID int64 `json:"author_id,omitempty"`

	// Actor/recipient for notification-bearing events (like, repost, reply)
	ActorID     int64 `json:"actor_id,omitempty"`
	RecipientID int64 `json:"recipient_id,omitempty"`

	// Follow events
	FollowerID int64 `json:"follower_id,omitempty"`
	FolloweeID int64 `json:"followee_id,omitempty"`
}

// NewPostCreatedEvent is published after a post (or reply) is committed.
// The worker fans the post out to all followers' feed caches.
func NewPostCreatedEvent(postID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewPostDeletedEvent is published after a post is deleted. The worker
// strips every entry referencing the post from follower feed caches.
func NewPostDeletedEvent(postID, authorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		AuthorID:  authorID,
	}
}

// NewPostLikedEvent is published when a like toggle lands in the "liked"
// state. The worker creates a notification for the post author.
func NewPostLikedEvent(postID, actorID, recipientID int64) FeedEvent {
	return FeedEvent{
		Type:        EventPostLiked,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// NewPostRepliedEvent is published after a reply is committed. PostID is the
// parent post; the worker notifies its author.
func NewPostRepliedEvent(postID, actorID, recipientID int64) FeedEvent {
	return FeedEvent{
		Type:        EventPostReplied,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// NewPostRepostedEvent is published when a repost toggle lands in the
// "reposted" state. The worker fans the attributed entry out to the
// reposter's followers and notifies the post author.
func NewPostRepostedEvent(postID, actorID, recipientID int64) FeedEvent {
	return FeedEvent{
		Type:        EventPostReposted,
		Timestamp:   time.Now().Unix(),
		PostID:      postID,
		ActorID:     actorID,
		RecipientID: recipientID,
	}
}

// NewRepostRemovedEvent is published when a repost toggle lands back in the
// "not reposted" state. The worker removes the attributed entry.
func NewRepostRemovedEvent(postID, actorID int64) FeedEvent {
	return FeedEvent{
		Type:      EventRepostRemoved,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
	}
}

// NewUserFollowedEvent is published after a follow toggle lands in the
// "following" state. The worker backfills recent activity from the followee
// into the follower's feed cache and notifies the followee.
func NewUserFollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserFollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// NewUserUnfollowedEvent is the inverse: the worker strips the followee's
// activity from the follower's feed cache.
func NewUserUnfollowedEvent(followerID, followeeID int64) FeedEvent {
	return FeedEvent{
		Type:       EventUserUnfollowed,
		Timestamp:  time.Now().Unix(),
		FollowerID: followerID,
		FolloweeID: followeeID,
	}
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e FeedEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseFeedEvent parses a FeedEvent from Redis stream message values.
func ParseFeedEvent(values map[string]interface{}) (FeedEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return FeedEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event FeedEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
