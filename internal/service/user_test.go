package service

import (
	"context"
	"testing"
	"time"

	"chirp/internal/model"
	"chirp/internal/queue"
	"chirp/internal/repository"
)

func newUserFixture(userRepo *mockUserRepo, postRepo *mockPostRepo, followRepo *mockFollowRepo, pub *mockPublisher) *UserService {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if postRepo == nil {
		postRepo = &mockPostRepo{}
	}
	if followRepo == nil {
		followRepo = &mockFollowRepo{}
	}
	if pub == nil {
		pub = &mockPublisher{}
	}
	postSvc := NewPostService(postRepo, userRepo, followRepo, &mockBookmarkRepo{}, &mockHashtagRepo{}, pub)
	return NewUserService(userRepo, postRepo, followRepo, postSvc, pub)
}

func TestGetProfileInitials(t *testing.T) {
	name := "john samuel"
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: "johnsam", DisplayName: &name}, nil
		},
	}

	svc := newUserFixture(userRepo, nil, nil, nil)
	resp, err := svc.GetProfile(context.Background(), 0, "johnsam")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if resp.Initials != "JS" {
		t.Errorf("Initials = %q, want JS", resp.Initials)
	}
	if resp.IsSelf || resp.IsFollowing {
		t.Errorf("anonymous viewer got IsSelf=%v IsFollowing=%v, want false/false", resp.IsSelf, resp.IsFollowing)
	}
}

func TestGetProfileViewerState(t *testing.T) {
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 2, Username: "bob"}, nil
		},
	}
	followRepo := &mockFollowRepo{
		existsFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			return followerID == 1 && followeeID == 2, nil
		},
	}

	svc := newUserFixture(userRepo, nil, followRepo, nil)
	resp, err := svc.GetProfile(context.Background(), 1, "bob")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !resp.IsFollowing {
		t.Error("IsFollowing = false, want true")
	}
	if resp.Initials != "B" {
		t.Errorf("Initials = %q, want B (falls back to username)", resp.Initials)
	}
}

func TestToggleFollowPublishesEvents(t *testing.T) {
	following := false
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	followRepo := &mockFollowRepo{
		toggleFn: func(ctx context.Context, followerID, followeeID int64) (bool, error) {
			following = !following
			return following, nil
		},
	}
	pub := &mockPublisher{}
	svc := newUserFixture(userRepo, nil, followRepo, pub)

	first, err := svc.ToggleFollow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !first.Active {
		t.Error("first toggle inactive, want following")
	}

	second, err := svc.ToggleFollow(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Active {
		t.Error("second toggle active, want unfollowed")
	}

	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	if pub.events[0].Type != queue.EventUserFollowed || pub.events[1].Type != queue.EventUserUnfollowed {
		t.Errorf("events = [%s %s], want [user_followed user_unfollowed]", pub.events[0].Type, pub.events[1].Type)
	}
}

func TestToggleFollowSelf(t *testing.T) {
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	svc := newUserFixture(userRepo, nil, &mockFollowRepo{}, nil)

	if _, err := svc.ToggleFollow(context.Background(), 1, 1); err != model.ErrCannotFollowSelf {
		t.Errorf("ToggleFollow(self): got %v, want ErrCannotFollowSelf", err)
	}
}

// The profile timeline interleaves own posts and reposts by activity time.
func TestGetUserPostsMergesReposts(t *testing.T) {
	now := time.Now()
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: "alice"}, nil
		},
	}
	postRepo := &mockPostRepo{
		getUserPostsFn: func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, error) {
			return []*model.Post{
				{ID: 10, UserID: 1, Message: "own post", CreatedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
		getUserRepostsFn: func(ctx context.Context, userID int64, cursor repository.Cursor, hasCursor bool, limit int) ([]*model.Post, []time.Time, error) {
			return []*model.Post{
					{ID: 20, UserID: 9, Message: "someone else's post", CreatedAt: now.Add(-5 * time.Hour)},
				},
				[]time.Time{now.Add(-1 * time.Hour)}, nil
		},
	}

	svc := newUserFixture(userRepo, postRepo, nil, nil)
	resp, err := svc.GetUserPosts(context.Background(), 0, "alice", "")
	if err != nil {
		t.Fatalf("GetUserPosts: %v", err)
	}

	if len(resp.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(resp.Posts))
	}
	// The repost happened more recently than the own post, so it leads.
	if resp.Posts[0].ID != 20 || resp.Posts[0].RepostedBy == nil {
		t.Errorf("first item = %+v, want repost of post 20 with attribution", resp.Posts[0])
	}
	if resp.Posts[0].RepostedBy != nil && resp.Posts[0].RepostedBy.Username != "alice" {
		t.Errorf("RepostedBy = %q, want alice", resp.Posts[0].RepostedBy.Username)
	}
	if resp.Posts[1].ID != 10 || resp.Posts[1].RepostedBy != nil {
		t.Errorf("second item = %+v, want own post 10", resp.Posts[1])
	}
}
