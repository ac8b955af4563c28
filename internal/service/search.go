package service

import (
	"context"
	"strings"

	"chirp/internal/model"
	"chirp/internal/repository"
)

// searchLimit caps both branches of a search query.
const searchLimit = 10

// SearchService dispatches search queries on their first character:
// '#' searches hashtags, '@' searches users, anything else matches nothing.
type SearchService struct {
	userSvc     *UserService
	hashtagRepo repository.HashtagRepository
}

// NewSearchService creates a new search service.
func NewSearchService(userSvc *UserService, hashtagRepo repository.HashtagRepository) *SearchService {
	return &SearchService{
		userSvc:     userSvc,
		hashtagRepo: hashtagRepo,
	}
}

// Search runs a prefix-dispatched query. Empty results are returned as empty
// slices, never nil.
func (s *SearchService) Search(ctx context.Context, viewerID int64, query string) (*model.SearchResponse, error) {
	resp := &model.SearchResponse{
		Users:    []model.UserSummary{},
		Hashtags: []model.HashtagCount{},
	}

	query = strings.TrimSpace(query)
	if len(query) < 2 {
		// One character is just the sigil.
		return resp, nil
	}

	term := query[1:]
	switch query[0] {
	case '#':
		tags, err := s.hashtagRepo.Search(ctx, strings.ToLower(term), searchLimit)
		if err != nil {
			return nil, err
		}
		resp.Hashtags = tags
	case '@':
		users, err := s.userSvc.SearchUsers(ctx, viewerID, term, searchLimit)
		if err != nil {
			return nil, err
		}
		resp.Users = users
	}
	return resp, nil
}
