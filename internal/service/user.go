package service

import (
	"context"
	"log"
	"time"

	"chirp/internal/model"
	"chirp/internal/queue"
	"chirp/internal/repository"
	"chirp/internal/text"
)

// UserService handles profiles, profile tabs and the follow graph.
type UserService struct {
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	postSvc    *PostService
	publisher  queue.Publisher
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	postSvc *PostService,
	publisher queue.Publisher,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		postRepo:   postRepo,
		followRepo: followRepo,
		postSvc:    postSvc,
		publisher:  publisher,
	}
}

// GetProfile returns a user's profile with viewer-relative state.
func (s *UserService) GetProfile(ctx context.Context, viewerID int64, username string) (*model.ProfileResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	resp := &model.ProfileResponse{
		User:     user,
		Initials: text.Initials(userDisplayName(user)),
		IsSelf:   viewerID != 0 && viewerID == user.ID,
	}
	if viewerID != 0 && !resp.IsSelf {
		resp.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// GetMe returns the viewer's own profile.
func (s *UserService) GetMe(ctx context.Context, userID int64) (*model.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ProfileResponse{
		User:     user,
		Initials: text.Initials(userDisplayName(user)),
		IsSelf:   true,
	}, nil
}

// UpdateProfile applies the non-nil fields of the request to the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req model.UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.Bio != nil {
		if len([]rune(*req.Bio)) > model.MaxBioLength {
			return nil, model.ErrBioTooLong
		}
		user.Bio = req.Bio
	}
	if req.DOB != nil {
		if *req.DOB == "" {
			user.DOB = nil
		} else {
			dob, err := time.Parse("2006-01-02", *req.DOB)
			if err != nil {
				return nil, err
			}
			user.DOB = &dob
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckUsername reports whether a username is valid and unclaimed.
func (s *UserService) CheckUsername(ctx context.Context, username string) (*model.UsernameCheckResponse, error) {
	if !model.ValidUsername.MatchString(username) {
		return nil, model.ErrInvalidUsername
	}
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return &model.UsernameCheckResponse{Username: username, Available: !exists}, nil
}

// ToggleFollow flips the viewer's follow edge to another user.
func (s *UserService) ToggleFollow(ctx context.Context, followerID, followeeID int64) (*model.ToggleResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return nil, err
	}

	following, err := s.followRepo.Toggle(ctx, followerID, followeeID)
	if err != nil {
		return nil, err
	}

	event := queue.NewUserUnfollowedEvent(followerID, followeeID)
	if following {
		event = queue.NewUserFollowedEvent(followerID, followeeID)
	}
	if err := s.publisher.PublishFeedEvent(ctx, event); err != nil {
		log.Printf("[User] FAILED to publish %s: %v", event.Type, err)
	}
	return &model.ToggleResponse{Active: following}, nil
}

// GetFollowers lists a user's followers, newest first.
func (s *UserService) GetFollowers(ctx context.Context, viewerID int64, username, cursorStr string) (*model.FollowListResponse, error) {
	return s.listFollowEdge(ctx, viewerID, username, cursorStr, s.followRepo.GetFollowers)
}

// GetFollowing lists who a user follows, newest first.
func (s *UserService) GetFollowing(ctx context.Context, viewerID int64, username, cursorStr string) (*model.FollowListResponse, error) {
	return s.listFollowEdge(ctx, viewerID, username, cursorStr, s.followRepo.GetFollowing)
}

type edgeLister func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]model.UserSummary, []time.Time, error)

func (s *UserService) listFollowEdge(ctx context.Context, viewerID int64, username, cursorStr string, list edgeLister) (*model.FollowListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	users, times, err := list(ctx, user.ID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return buildUserList(ctx, viewerID, s.followRepo, users, times)
}

// SearchUsers matches users by username or display name, most followed first.
func (s *UserService) SearchUsers(ctx context.Context, viewerID int64, query string, limit int) ([]model.UserSummary, error) {
	users, err := s.userRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if err := annotateUsers(ctx, viewerID, s.followRepo, users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserPosts is the profile timeline: the user's own posts merged with
// their reposts, newest activity first.
func (s *UserService) GetUserPosts(ctx context.Context, viewerID int64, username, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.GetUserPosts(ctx, user.ID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	reposted, repostTimes, err := s.postRepo.GetUserReposts(ctx, user.ID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}

	if err := s.postSvc.hydrate(ctx, viewerID, posts); err != nil {
		return nil, err
	}
	if err := s.postSvc.hydrate(ctx, viewerID, reposted); err != nil {
		return nil, err
	}

	reposter := model.UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Initials:    text.Initials(userDisplayName(user)),
	}

	own := make([]model.FeedPost, len(posts))
	for i, p := range posts {
		own[i] = model.FeedPost{Post: *p, ActivityAt: p.CreatedAt}
	}
	reps := make([]model.FeedPost, len(reposted))
	for i, p := range reposted {
		r := reposter
		reps[i] = model.FeedPost{Post: *p, RepostedBy: &r, ActivityAt: repostTimes[i]}
	}

	merged := mergeByActivity(DefaultPageSize+1, own, reps)
	hasMore := len(merged) > DefaultPageSize
	if hasMore {
		merged = merged[:DefaultPageSize]
	}

	resp := &model.PostListResponse{Posts: merged, HasMore: hasMore}
	if hasMore && len(merged) > 0 {
		last := merged[len(merged)-1]
		c := repository.FormatCursor(last.ID, last.ActivityAt)
		resp.NextCursor = &c
	}
	return resp, nil
}

// GetUserLikes is the profile likes tab, newest like first.
func (s *UserService) GetUserLikes(ctx context.Context, viewerID int64, username, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, times, err := s.postRepo.GetLikedPosts(ctx, user.ID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return s.postSvc.buildPostList(ctx, viewerID, posts, times)
}

// GetUserReplies is the profile replies tab, newest first.
func (s *UserService) GetUserReplies(ctx context.Context, viewerID int64, username, cursorStr string) (*model.PostListResponse, error) {
	cursor, hasCursor, err := repository.ParseCursor(cursorStr)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err := s.postRepo.GetUserReplies(ctx, user.ID, cursor, hasCursor, DefaultPageSize+1)
	if err != nil {
		return nil, err
	}
	return s.postSvc.buildPostList(ctx, viewerID, posts, nil)
}

func userDisplayName(u *model.User) string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

// annotateUsers fills initials and the viewer's follow state on summaries.
func annotateUsers(ctx context.Context, viewerID int64, followRepo repository.FollowRepository, users []model.UserSummary) error {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	var follows map[int64]bool
	if viewerID != 0 && len(ids) > 0 {
		var err error
		follows, err = followRepo.CheckFollows(ctx, viewerID, ids)
		if err != nil {
			return err
		}
	}

	for i := range users {
		users[i].Initials = text.Initials(displayOrUsername(users[i]))
		if follows != nil {
			users[i].IsFollowing = follows[users[i].ID]
		}
	}
	return nil
}

// buildUserList annotates a limit+1 page of user summaries and builds the
// paginated response using the edge timestamps for the cursor.
func buildUserList(ctx context.Context, viewerID int64, followRepo repository.FollowRepository, users []model.UserSummary, times []time.Time) (*model.FollowListResponse, error) {
	hasMore := len(users) > DefaultPageSize
	if hasMore {
		users = users[:DefaultPageSize]
		times = times[:DefaultPageSize]
	}

	if err := annotateUsers(ctx, viewerID, followRepo, users); err != nil {
		return nil, err
	}

	resp := &model.FollowListResponse{Users: users, HasMore: hasMore}
	if hasMore && len(users) > 0 {
		c := repository.FormatCursor(users[len(users)-1].ID, times[len(times)-1])
		resp.NextCursor = &c
	}
	return resp, nil
}
