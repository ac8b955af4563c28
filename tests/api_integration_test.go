package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// End-to-end smoke test against a running server. Requires a live stack
// (Postgres, Redis, server); set TEST_BASE_URL to enable, e.g.
//
//	TEST_BASE_URL=http://localhost:8080 go test ./tests/
func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_BASE_URL")
	if url == "" {
		t.Skip("TEST_BASE_URL not set, skipping integration test")
	}
	return url
}

type authedUser struct {
	ID          int64
	Username    string
	AccessToken string
}

func registerUser(t *testing.T, base string) *authedUser {
	t.Helper()
	username := fmt.Sprintf("it%d", time.Now().UnixNano()%1e12)
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": "integration-pass",
	})

	resp, err := http.Post(base+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}

	var out struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return &authedUser{ID: out.User.ID, Username: username, AccessToken: out.AccessToken}
}

func do(t *testing.T, user *authedUser, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+user.AccessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestPostLifecycle(t *testing.T) {
	base := baseURL(t)
	alice := registerUser(t, base)
	bob := registerUser(t, base)

	// Alice posts.
	var post struct {
		ID int64 `json:"id"`
	}
	status := do(t, alice, http.MethodPost, base+"/posts",
		map[string]string{"message": "integration #smoke test"}, &post)
	if status != http.StatusCreated {
		t.Fatalf("create post: status %d", status)
	}

	// Bob follows Alice, likes and reposts the post.
	if s := do(t, bob, http.MethodPost, fmt.Sprintf("%s/users/%d/follow", base, alice.ID), nil, nil); s != http.StatusOK {
		t.Fatalf("follow: status %d", s)
	}

	var toggle struct {
		Active bool `json:"active"`
		Count  int  `json:"count"`
	}
	if s := do(t, bob, http.MethodPost, fmt.Sprintf("%s/posts/%d/like", base, post.ID), nil, &toggle); s != http.StatusOK {
		t.Fatalf("like: status %d", s)
	}
	if !toggle.Active || toggle.Count != 1 {
		t.Errorf("like toggle = %+v, want active with count 1", toggle)
	}

	// Toggling again lands back where it started.
	if s := do(t, bob, http.MethodPost, fmt.Sprintf("%s/posts/%d/like", base, post.ID), nil, &toggle); s != http.StatusOK {
		t.Fatalf("unlike: status %d", s)
	}
	if toggle.Active || toggle.Count != 0 {
		t.Errorf("unlike toggle = %+v, want inactive with count 0", toggle)
	}

	// Give the feed workers a moment to fan out.
	time.Sleep(2 * time.Second)

	var feed struct {
		Posts []struct {
			ID int64 `json:"id"`
		} `json:"posts"`
	}
	if s := do(t, bob, http.MethodGet, base+"/feed", nil, &feed); s != http.StatusOK {
		t.Fatalf("feed: status %d", s)
	}
	found := false
	for _, p := range feed.Posts {
		if p.ID == post.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("post %d missing from follower feed", post.ID)
	}

	// Hashtag search finds the post's tag.
	var search struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
	}
	if s := do(t, nil, http.MethodGet, base+"/search?q=%23smoke", nil, &search); s != http.StatusOK {
		t.Fatalf("search: status %d", s)
	}
	if len(search.Hashtags) == 0 {
		t.Error("hashtag search returned no results")
	}

	// Alice deletes the post; it must disappear entirely.
	if s := do(t, alice, http.MethodDelete, fmt.Sprintf("%s/posts/%d", base, post.ID), nil, nil); s != http.StatusOK {
		t.Fatalf("delete: status %d", s)
	}
	if s := do(t, nil, http.MethodGet, fmt.Sprintf("%s/posts/%d", base, post.ID), nil, nil); s != http.StatusNotFound {
		t.Errorf("deleted post fetch: status %d, want 404", s)
	}
}
