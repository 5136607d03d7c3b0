package rewriter

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"FeedPublisher/internal/domain"
)

// ErrUnparseable is returned when no parse attempt yields a JSON object.
var ErrUnparseable = errors.New("model response is not a JSON object")

var (
	fencedBlock  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	braceRegion  = regexp.MustCompile(`\{[\s\S]*\}`)
	blankLine    = regexp.MustCompile(`\n\s*\n`)
	blockMarkup  = regexp.MustCompile(`(?i)<(p|div)[\s>]`)
	bodySanitize = bluemonday.UGCPolicy()
)

type parseAttempt struct {
	name    string
	extract func(string) (string, bool)
}

// parseAttempts run in order; the first that decodes to an object wins.
var parseAttempts = []parseAttempt{
	{name: "direct", extract: func(s string) (string, bool) { return s, true }},
	{name: "fenced", extract: func(s string) (string, bool) {
		m := fencedBlock.FindStringSubmatch(s)
		if m == nil {
			return "", false
		}
		return m[1], true
	}},
	{name: "braced", extract: func(s string) (string, bool) {
		m := braceRegion.FindString(s)
		return m, m != ""
	}},
}

// ParseResponse decodes the model output and reports which attempt succeeded.
func ParseResponse(text string) (map[string]any, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", ErrUnparseable
	}
	for _, attempt := range parseAttempts {
		candidate, ok := attempt.extract(text)
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
			return obj, attempt.name, nil
		}
	}
	return nil, "", ErrUnparseable
}

// NormalizeArticle applies the output defaults to a decoded response.
func NormalizeArticle(obj map[string]any, fallbackTitle string) (domain.RewrittenArticle, error) {
	headline := strings.TrimSpace(stringField(obj, "headline"))
	if headline == "" {
		headline = fallbackTitle
	}

	category := strings.TrimSpace(stringField(obj, "category"))
	if category == "" {
		category = "News"
	}

	body := strings.TrimSpace(bodySanitize.Sanitize(EnsureParagraphs(stringField(obj, "body"))))
	if body == "" {
		return domain.RewrittenArticle{}, fmt.Errorf("model returned an empty body")
	}

	return domain.RewrittenArticle{
		Headline: headline,
		Body:     body,
		Category: category,
		Tags:     coerceTags(obj["tags"]),
	}, nil
}

// EnsureParagraphs wraps plain text in <p> elements, one per blank-line
// separated segment. Text that already has block markup is returned as is.
func EnsureParagraphs(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if blockMarkup.MatchString(text) {
		return text
	}

	var paragraphs []string
	for _, seg := range blankLine.Split(text, -1) {
		if seg = strings.TrimSpace(seg); seg != "" {
			paragraphs = append(paragraphs, "<p>"+seg+"</p>")
		}
	}
	return strings.Join(paragraphs, "\n")
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// coerceTags accepts a list or a single string and returns lowercase,
// trimmed, non-empty, de-duplicated tags.
func coerceTags(v any) []string {
	var raw []any
	switch t := v.(type) {
	case string:
		raw = []any{t}
	case []any:
		raw = t
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		switch x := item.(type) {
		case string:
			s = x
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(x)
		default:
			continue
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}
	return tags
}
