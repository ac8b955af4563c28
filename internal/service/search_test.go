package service

import (
	"context"
	"testing"

	"chirp/internal/model"
)

func newSearchFixture(userRepo *mockUserRepo, hashtagRepo *mockHashtagRepo) *SearchService {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if hashtagRepo == nil {
		hashtagRepo = &mockHashtagRepo{}
	}
	postSvc := NewPostService(&mockPostRepo{}, userRepo, &mockFollowRepo{}, &mockBookmarkRepo{}, hashtagRepo, &mockPublisher{})
	userSvc := NewUserService(userRepo, &mockPostRepo{}, &mockFollowRepo{}, postSvc, &mockPublisher{})
	return NewSearchService(userSvc, hashtagRepo)
}

// Search dispatches on the query's first character: '#' to hashtags,
// '@' to users, anything else to nothing.
func TestSearchDispatch(t *testing.T) {
	var hashtagQuery, userQuery string
	hashtagRepo := &mockHashtagRepo{
		searchFn: func(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error) {
			hashtagQuery = prefix
			return []model.HashtagCount{{Tag: "golang", PostCount: 3}}, nil
		},
	}
	userRepo := &mockUserRepo{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			userQuery = query
			return []model.UserSummary{{ID: 1, Username: "gopher"}}, nil
		},
	}
	svc := newSearchFixture(userRepo, hashtagRepo)

	resp, err := svc.Search(context.Background(), 0, "#GoLang")
	if err != nil {
		t.Fatalf("hashtag search: %v", err)
	}
	if hashtagQuery != "golang" {
		t.Errorf("hashtag query = %q, want %q (sigil stripped, lowercased)", hashtagQuery, "golang")
	}
	if len(resp.Hashtags) != 1 || len(resp.Users) != 0 {
		t.Errorf("hashtag search resp = %+v, want hashtags only", resp)
	}

	resp, err = svc.Search(context.Background(), 0, "@gopher")
	if err != nil {
		t.Fatalf("user search: %v", err)
	}
	if userQuery != "gopher" {
		t.Errorf("user query = %q, want %q", userQuery, "gopher")
	}
	if len(resp.Users) != 1 || len(resp.Hashtags) != 0 {
		t.Errorf("user search resp = %+v, want users only", resp)
	}
}

func TestSearchUnprefixedQueryMatchesNothing(t *testing.T) {
	hashtagRepo := &mockHashtagRepo{
		searchFn: func(ctx context.Context, prefix string, limit int) ([]model.HashtagCount, error) {
			t.Fatal("hashtag search must not run without a '#' prefix")
			return nil, nil
		},
	}
	userRepo := &mockUserRepo{
		searchFn: func(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
			t.Fatal("user search must not run without an '@' prefix")
			return nil, nil
		},
	}
	svc := newSearchFixture(userRepo, hashtagRepo)

	for _, q := range []string{"golang", "", "#", "@", "  "} {
		resp, err := svc.Search(context.Background(), 0, q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(resp.Users) != 0 || len(resp.Hashtags) != 0 {
			t.Errorf("Search(%q) = %+v, want empty", q, resp)
		}
		if resp.Users == nil || resp.Hashtags == nil {
			t.Errorf("Search(%q) returned nil slices, want empty slices", q)
		}
	}
}
