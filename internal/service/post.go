package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"chirp/internal/model"
	"chirp/internal/queue"
	"chirp/internal/repository"
	"chirp/internal/text"
)

const (
	// DefaultPageSize is the page size for post listings.
	DefaultPageSize = 20

	// likedUsersPerPost caps how many liker usernames are attached to a post.
	likedUsersPerPost = 3
)

// PostService handles post creation, deletion, the per-post toggles and
// post hydration.
type PostService struct {
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	followRepo   repository.FollowRepository
	bookmarkRepo repository.BookmarkRepository
	hashtagRepo  repository.HashtagRepository
	publisher    queue.Publisher
}

// NewPostService creates a new post service.
func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	bookmarkRepo repository.BookmarkRepository,
	hashtagRepo repository.HashtagRepository,
	publisher queue.Publisher,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		userRepo:     userRepo,
		followRepo:   followRepo,
		bookmarkRepo: bookmarkRepo,
		hashtagRepo:  hashtagRepo,
		publisher:    publisher,
	}
}

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", model.ErrMessageRequired
	}
	if len([]rune(message)) > model.MaxMessageLength {
		return "", model.ErrMessageTooLong
	}
	return message, nil
}

// Create publishes a new top-level post.
func (s *PostService) Create(ctx context.Context, userID int64, req model.CreatePostRequest) (*model.Post, error) {
	message, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}

	post := &model.Post{UserID: userID, Message: message}
	if err := s.postRepo.Create(ctx, post, text.Hashtags(message)); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishFeedEvent(ctx, queue.NewPostCreatedEvent(post.ID, userID)); err != nil {
		// The post is committed; followers will still see it on a cache miss.
		log.Printf("[Post] FAILED to publish post_created for post %d: %v", post.ID, err)
	}

	if err := s.hydrate(ctx, userID, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateReply publishes a reply to an existing post. Replies never enter
// home feeds; the parent author gets a notification instead.
func (s *PostService) CreateReply(ctx context.Context, userID, parentID int64, req model.CreatePostRequest) (*model.Post, error) {
	message, err := validateMessage(req.Message)
	if err != nil {
		return nil, err
	}

	parentAuthorID, err := s.postRepo.GetAuthorID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{UserID: userID, Message: message, ReplyToPostID: &parentID}
	if err := s.postRepo.Create(ctx, post, text.Hashtags(message)); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishFeedEvent(ctx, queue.NewPostRepliedEvent(parentID, userID, parentAuthorID)); err != nil {
		log.Printf("[Post] FAILED to publish post_replied for post %d: %v", parentID, err)
	}

	if err := s.hydrate(ctx, userID, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post owned by userID. Likes, reposts, bookmarks and
// replies cascade away with it.
func (s *PostService) Delete(ctx context.Context, userID, postID int64) error {
	if err := s.postRepo.Delete(ctx, postID, userID); err != nil {
		return err
	}

	if err := s.publisher.PublishFeedEvent(ctx, queue.NewPostDeletedEvent(postID, userID)); err != nil {
		log.Printf("[Post] FAILED to publish post_deleted for post %d: %v", postID, err)
	}
	return nil
}

// Get returns a single hydrated post.
func (s *PostService) Get(ctx context.Context, viewerID, postID int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, viewerID, []*model.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// ToggleLike flips the viewer's like on a post.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID int64) (*model.ToggleResponse, error) {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked, count, err := s.postRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	if liked {
		if err := s.publisher.PublishFeedEvent(ctx, queue.NewPostLikedEvent(postID, userID, authorID)); err != nil {
			log.Printf("[Post] FAILED to publish post_liked for post %d: %v", postID, err)
		}
	}
	return &model.ToggleResponse{Active: liked, Count: count}, nil
}

// ToggleRepost flips the viewer's repost of a post.
func (s *PostService) ToggleRepost(ctx context.Context, userID, postID int64) (*model.ToggleResponse, error) {
	authorID, err := s.postRepo.GetAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	reposted, count, err := s.postRepo.ToggleRepost(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	event := queue.NewRepostRemovedEvent(postID, userID)
	if reposted {
		event = queue.NewPostRepostedEvent(postID, userID, authorID)
	}
	if err := s.publisher.PublishFeedEvent(ctx, event); err != nil {
		log.Printf("[Post] FAILED to publish %s for post %d: %v", event.Type, postID, err)
	}
	return &model.ToggleResponse{Active: reposted, Count: count}, nil
}

// ToggleBookmark flips the viewer's private bookmark on a post.
func (s *PostService) ToggleBookmark(ctx context.Context, userID, postID int64) (*model.ToggleResponse, error) {
	bookmarked, err := s.bookmarkRepo.Toggle(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &model.ToggleResponse{Active: bookmarked}, nil
}

// GetReplies lists a post's replies, newest first.
func (s *PostService) GetReplies(ctx context.Context, viewerID, postID int64, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}

	posts, err := s.postRepo.GetRepliesToPost(ctx, postID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return s.buildPostList(ctx, viewerID, posts, nil)
}

// GetLikers lists the users who liked a post.
func (s *PostService) GetLikers(ctx context.Context, viewerID, postID int64, cursorStr string) (*model.FollowListResponse, error) {
	return s.listActors(ctx, viewerID, postID, cursorStr, s.postRepo.GetPostLikers)
}

// GetReposters lists the users who reposted a post.
func (s *PostService) GetReposters(ctx context.Context, viewerID, postID int64, cursorStr string) (*model.FollowListResponse, error) {
	return s.listActors(ctx, viewerID, postID, cursorStr, s.postRepo.GetPostReposters)
}

type actorLister func(ctx context.Context, postID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)

func (s *PostService) listActors(ctx context.Context, viewerID, postID int64, cursorStr string, list actorLister) (*model.FollowListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.postRepo.GetAuthorID(ctx, postID); err != nil {
		return nil, err
	}

	users, times, err := list(ctx, postID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return buildUserList(ctx, viewerID, s.followRepo, users, times)
}

// GetPostsByHashtag lists posts carrying a hashtag, newest first.
func (s *PostService) GetPostsByHashtag(ctx context.Context, viewerID int64, tag, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.GetPostsByHashtag(ctx, strings.ToLower(tag), cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return s.buildPostList(ctx, viewerID, posts, nil)
}

// GetBookmarks lists the viewer's bookmarked posts, newest bookmark first.
func (s *PostService) GetBookmarks(ctx context.Context, userID int64, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	posts, times, err := s.bookmarkRepo.GetBookmarkedPosts(ctx, userID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return s.buildPostList(ctx, userID, posts, times)
}

// buildPostList hydrates a limit+1 page of posts and builds the paginated
// response. activityTimes, when given, override the posts' own timestamps
// for ordering cursors (like/bookmark/repost time).
func (s *PostService) buildPostList(ctx context.Context, viewerID int64, posts []*model.Post, activityTimes []time.Time) (*model.PostListResponse, error) {
	hasMore := len(posts) > DefaultPageSize
	if hasMore {
		posts = posts[:DefaultPageSize]
		if activityTimes != nil {
			activityTimes = activityTimes[:DefaultPageSize]
		}
	}

	if err := s.hydrate(ctx, viewerID, posts); err != nil {
		return nil, err
	}

	resp := &model.PostListResponse{
		Posts:   make([]model.FeedPost, len(posts)),
		HasMore: hasMore,
	}
	for i, p := range posts {
		activityAt := p.CreatedAt
		if activityTimes != nil {
			activityAt = activityTimes[i]
		}
		resp.Posts[i] = model.FeedPost{Post: *p, ActivityAt: activityAt}
	}

	if hasMore && len(posts) > 0 {
		last := resp.Posts[len(resp.Posts)-1]
		cursor := repository.FormatCursor(last.ID, last.ActivityAt)
		resp.NextCursor = &cursor
	}
	return resp, nil
}

// hydrate fills every display field of the given posts in batch: author
// summaries, viewer toggle states, liker previews, hashtags, validated
// mentions, reply targets, deletability and relative timestamps.
func (s *PostService) hydrate(ctx context.Context, viewerID int64, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]int64, 0, len(posts))
	authorIDSet := make(map[int64]struct{})
	parentIDSet := make(map[int64]struct{})
	mentionSet := make(map[string]struct{})

	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		authorIDSet[p.UserID] = struct{}{}
		if p.ReplyToPostID != nil {
			parentIDSet[*p.ReplyToPostID] = struct{}{}
		}
		for _, m := range text.Mentions(p.Message) {
			mentionSet[m] = struct{}{}
		}
	}

	// Reply targets contribute their authors too.
	parents := map[int64]*model.Post{}
	if len(parentIDSet) > 0 {
		parentIDs := make([]int64, 0, len(parentIDSet))
		for id := range parentIDSet {
			parentIDs = append(parentIDs, id)
		}
		var err error
		parents, err = s.postRepo.GetByIDs(ctx, parentIDs)
		if err != nil {
			return err
		}
		for _, parent := range parents {
			authorIDSet[parent.UserID] = struct{}{}
		}
	}

	authorIDs := make([]int64, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}
	authors, err := s.userRepo.GetSummariesByIDs(ctx, authorIDs)
	if err != nil {
		return err
	}

	hashtags, err := s.hashtagRepo.GetByPostIDs(ctx, postIDs)
	if err != nil {
		return err
	}

	likedUsers, err := s.postRepo.GetLikerUsernames(ctx, postIDs, likedUsersPerPost)
	if err != nil {
		return err
	}

	// Only mentions of existing users survive hydration.
	mentionNames := make([]string, 0, len(mentionSet))
	for m := range mentionSet {
		mentionNames = append(mentionNames, m)
	}
	knownMentions, err := s.userRepo.GetByUsernames(ctx, mentionNames)
	if err != nil {
		return err
	}

	var likes, reposts, bookmarks map[int64]bool
	if viewerID != 0 {
		if likes, err = s.postRepo.CheckLikes(ctx, viewerID, postIDs); err != nil {
			return err
		}
		if reposts, err = s.postRepo.CheckReposts(ctx, viewerID, postIDs); err != nil {
			return err
		}
		if bookmarks, err = s.bookmarkRepo.Check(ctx, viewerID, postIDs); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, p := range posts {
		if author, ok := authors[p.UserID]; ok {
			a := author
			a.Initials = text.Initials(displayOrUsername(a))
			p.Author = &a
		}
		p.Hashtags = hashtags[p.ID]
		p.LikedUsers = likedUsers[p.ID]
		p.IsDeletable = viewerID != 0 && p.UserID == viewerID
		p.PostedAgo = text.RelativeTime(p.CreatedAt, now)

		if viewerID != 0 {
			p.IsLiked = likes[p.ID]
			p.IsReposted = reposts[p.ID]
			p.IsBookmarked = bookmarks[p.ID]
		}

		p.Mentions = p.Mentions[:0]
		for _, m := range text.Mentions(p.Message) {
			if _, ok := knownMentions[m]; ok {
				p.Mentions = append(p.Mentions, m)
			}
		}

		if p.ReplyToPostID != nil {
			if parent, ok := parents[*p.ReplyToPostID]; ok {
				if author, ok := authors[parent.UserID]; ok {
					a := author
					a.Initials = text.Initials(displayOrUsername(a))
					p.ReplyingTo = &a
				}
			}
		}
	}
	return nil
}

// mergeByActivity merges pre-sorted feed post slices into one descending
// list capped at limit.
func mergeByActivity(limit int, lists ...[]model.FeedPost) []model.FeedPost {
	var merged []model.FeedPost
	for _, l := range lists {
		merged = append(merged, l...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].ActivityAt.Equal(merged[j].ActivityAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].ActivityAt.After(merged[j].ActivityAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func displayOrUsername(u model.UserSummary) string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
