package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedPublisher/internal/config"
	"FeedPublisher/internal/domain"
)

type fakeWP struct {
	mu       sync.Mutex
	calls    map[string]int
	terms    map[string][]term
	created  map[string]string
	posts    []map[string]any
	media    []string
	metadata map[string]string
	srv      *httptest.Server
}

func newFakeWP(t *testing.T) *fakeWP {
	t.Helper()
	f := &fakeWP{
		calls:   map[string]int{},
		terms:   map[string][]term{},
		created: map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/users/me", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app pass" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"You are not currently logged in."}`))
			return
		}
		writeJSON(w, map[string]any{"id": 1, "name": "Desk Editor"})
	})
	for _, resource := range []string{"categories", "tags"} {
		resource := resource
		mux.HandleFunc("/wp-json/wp/v2/"+resource, func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.calls[r.Method+" "+resource]++
			switch r.Method {
			case http.MethodGet:
				all := f.terms[resource]
				page := r.URL.Query().Get("page")
				// one term per page
				w.Header().Set("X-WP-TotalPages", fmt.Sprint(len(all)))
				idx := 0
				_, _ = fmt.Sscan(page, &idx)
				if idx >= 1 && idx <= len(all) {
					writeJSON(w, []term{all[idx-1]})
					return
				}
				writeJSON(w, []term{})
			case http.MethodPost:
				var body map[string]string
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body["name"] == "Clash" {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"code":"term_exists","message":"A term with the name provided already exists.","data":{"status":400,"term_id":77}}`))
					return
				}
				f.created[resource] = body["name"]
				w.WriteHeader(http.StatusCreated)
				writeJSON(w, term{ID: 500, Name: body["name"]})
			}
		})
	}
	mux.HandleFunc("/wp-json/wp/v2/media", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.media = append(f.media, r.Header.Get("Content-Type")+"|"+r.Header.Get("Content-Disposition"))
		_, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"id": 31})
	})
	mux.HandleFunc("/wp-json/wp/v2/media/31", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&f.metadata)
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["title"] == "fail" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":"rest_cannot_create"}`))
			return
		}
		f.posts = append(f.posts, body)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"id": 901, "link": "https://blog.example.com/?p=901"})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeWP) client(password string) *Client {
	return NewClient(config.WordPressConfig{URL: f.srv.URL + "/", Username: "editor", AppPassword: password}, nil)
}

func TestCheckConnection(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)

	name, err := wp.client("app pass").CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Desk Editor", name)

	_, err = wp.client("wrong").CheckConnection(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StagePreflight, domain.StageOf(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "rest_not_logged_in", apiErr.Code)
}

func TestResolveCategoryMatchesAcrossPages(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)
	wp.terms["categories"] = []term{{ID: 3, Name: "Sports News"}, {ID: 9, Name: "Arts &amp; Culture"}}
	c := wp.client("app pass")

	id, err := c.ResolveCategory(context.Background(), "arts & culture")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	again, err := c.ResolveCategory(context.Background(), "ARTS & CULTURE")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 2, wp.calls["GET categories"])
	assert.Zero(t, wp.calls["POST categories"])
}

func TestResolveTagCreatesWhenMissing(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)
	c := wp.client("app pass")

	id, err := c.ResolveTag(context.Background(), " high school ")
	require.NoError(t, err)
	assert.Equal(t, int64(500), id)
	assert.Equal(t, "high school", wp.created["tags"])

	_, err = c.ResolveTag(context.Background(), "High School")
	require.NoError(t, err)
	assert.Equal(t, 1, wp.calls["POST tags"])
}

func TestResolveTermExistsReusesID(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)

	id, err := wp.client("app pass").ResolveTag(context.Background(), "Clash")
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
}

func TestResolveTermRejectsEmptyName(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)

	_, err := wp.client("app pass").ResolveTag(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, domain.StageTaxonomy, domain.StageOf(err))
}

func TestUploadMediaIgnoresMetadataFailure(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)

	path := filepath.Join(t.TempDir(), "image_abc.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	id, err := wp.client("app pass").UploadMedia(context.Background(), domain.MediaUpload{Path: path, AltText: "Bridge", Caption: "Photo"})
	require.NoError(t, err)
	assert.Equal(t, int64(31), id)

	require.Len(t, wp.media, 1)
	assert.Equal(t, `image/png|attachment; filename="image_abc.png"`, wp.media[0])
	assert.Equal(t, map[string]string{"alt_text": "Bridge", "caption": "Photo"}, wp.metadata)
}

func TestUploadMediaMissingFile(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)

	_, err := wp.client("app pass").UploadMedia(context.Background(), domain.MediaUpload{Path: "/does/not/exist.jpg"})
	require.Error(t, err)
	assert.Equal(t, domain.StageMedia, domain.StageOf(err))
}

func TestCreatePost(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)
	c := wp.client("app pass")

	ref, err := c.CreatePost(context.Background(), domain.PostDraft{
		Title:       "Council Approves Budget",
		Content:     "<p>Body</p>",
		CategoryIDs: []int64{3},
		TagIDs:      []int64{4, 5},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PostRef{ID: 901, Link: "https://blog.example.com/?p=901"}, ref)

	require.Len(t, wp.posts, 1)
	post := wp.posts[0]
	assert.Equal(t, "publish", post["status"])
	assert.Equal(t, []any{3.0}, post["categories"])
	assert.Equal(t, []any{4.0, 5.0}, post["tags"])
	assert.NotContains(t, post, "featured_media")

	_, err = c.CreatePost(context.Background(), domain.PostDraft{Title: "fail"})
	require.Error(t, err)
	assert.Equal(t, domain.StagePublish, domain.StageOf(err))
}

func TestFactoryBuildsFreshCaches(t *testing.T) {
	t.Parallel()
	wp := newFakeWP(t)
	factory := NewFactory(config.WordPressConfig{URL: wp.srv.URL, Username: "editor", AppPassword: "app pass"}, nil)

	for i := 0; i < 2; i++ {
		_, err := factory().ResolveTag(context.Background(), "weather")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, wp.calls["POST tags"])
}
