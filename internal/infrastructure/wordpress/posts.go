package wordpress

import (
	"context"
	"net/http"

	"FeedPublisher/internal/domain"
)

type postPayload struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Status        string  `json:"status"`
	Categories    []int64 `json:"categories,omitempty"`
	Tags          []int64 `json:"tags,omitempty"`
	FeaturedMedia int64   `json:"featured_media,omitempty"`
}

// CreatePost creates one post and returns its id and permalink.
func (c *Client) CreatePost(ctx context.Context, draft domain.PostDraft) (domain.PostRef, error) {
	status := draft.Status
	if status == "" {
		status = "publish"
	}

	var created struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	_, err := c.doJSON(ctx, http.MethodPost, "posts", postPayload{
		Title:         draft.Title,
		Content:       draft.Content,
		Status:        status,
		Categories:    draft.CategoryIDs,
		Tags:          draft.TagIDs,
		FeaturedMedia: draft.FeaturedMedia,
	}, &created)
	if err != nil {
		return domain.PostRef{}, domain.Fail(domain.StagePublish, domain.KindTransient, err)
	}

	c.info("created post", "title", draft.Title, "post_id", created.ID, "link", created.Link)
	return domain.PostRef{ID: created.ID, Link: created.Link}, nil
}
