package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"FeedPublisher/internal/domain"
)

const termsPerPage = 100

type term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ResolveCategory returns the id of the named category, creating it if needed.
func (c *Client) ResolveCategory(ctx context.Context, name string) (int64, error) {
	return c.resolveTerm(ctx, "categories", c.categories, name)
}

// ResolveTag returns the id of the named tag, creating it if needed.
func (c *Client) ResolveTag(ctx context.Context, name string) (int64, error) {
	return c.resolveTerm(ctx, "tags", c.tags, name)
}

func (c *Client) resolveTerm(ctx context.Context, resource string, cache map[string]int64, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.Fail(domain.StageTaxonomy, domain.KindData, errors.New("empty term name"))
	}

	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	id, err := c.findTerm(ctx, resource, name)
	if err != nil {
		c.warn("term search failed, creating", "resource", resource, "name", name, "error", err)
	}
	if id != 0 {
		c.debug("found existing term", "resource", resource, "name", name, "id", id)
		cache[key] = id
		return id, nil
	}

	id, err = c.createTerm(ctx, resource, name)
	if err != nil {
		return 0, domain.Fail(domain.StageTaxonomy, domain.KindTransient, err)
	}
	c.info("created term", "resource", resource, "name", name, "id", id)
	cache[key] = id
	return id, nil
}

// findTerm walks the search result pages looking for a case-insensitive match.
func (c *Client) findTerm(ctx context.Context, resource, name string) (int64, error) {
	want := strings.ToLower(name)
	for page, total := 1, 1; page <= total; page++ {
		q := url.Values{}
		q.Set("search", name)
		q.Set("per_page", strconv.Itoa(termsPerPage))
		q.Set("page", strconv.Itoa(page))

		var terms []term
		header, err := c.doJSON(ctx, http.MethodGet, resource+"?"+q.Encode(), nil, &terms)
		if err != nil {
			return 0, err
		}
		for _, t := range terms {
			if strings.ToLower(html.UnescapeString(t.Name)) == want {
				return t.ID, nil
			}
		}
		if n, err := strconv.Atoi(header.Get("X-WP-TotalPages")); err == nil {
			total = n
		}
	}
	return 0, nil
}

func (c *Client) createTerm(ctx context.Context, resource, name string) (int64, error) {
	var created term
	_, err := c.doJSON(ctx, http.MethodPost, resource, map[string]string{"name": name}, &created)
	if err == nil {
		return created.ID, nil
	}

	// term_exists carries the id of the clashing term
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "term_exists" {
		if id := existingTermID(apiErr.Body); id != 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("create %s %q: %w", resource, name, err)
}

// existingTermID pulls data.term_id out of a term_exists error body.
func existingTermID(body string) int64 {
	var payload struct {
		Data struct {
			TermID json.Number `json:"term_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return 0
	}
	id, _ := payload.Data.TermID.Int64()
	return id
}
