package model

// HashtagCount is a hashtag with how many posts carry it, used for search
// suggestions.
type HashtagCount struct {
	Tag       string `db:"tag" json:"tag"`
	PostCount int    `db:"post_count" json:"post_count"`
}

// SearchResponse is the result of a search dispatch. Exactly one of the two
// lists is populated depending on the query prefix; both are empty for
// queries that start with neither '#' nor '@'.
type SearchResponse struct {
	Users    []UserSummary  `json:"users"`
	Hashtags []HashtagCount `json:"hashtags"`
}
