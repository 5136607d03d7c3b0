package rewriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

type fakeChat struct {
	response string
	err      error
	requests []ports.ChatRequest
}

func (f *fakeChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

const plainJSON = `{"headline":"Council Approves Budget","body":"<p>One.</p><p>Two.</p>","category":"Politics","tags":["Budget","City Council"]}`

func TestParseResponseFencedEqualsDirect(t *testing.T) {
	t.Parallel()

	direct, attempt, err := ParseResponse(plainJSON)
	require.NoError(t, err)
	assert.Equal(t, "direct", attempt)

	for _, wrapped := range []string{
		"```json\n" + plainJSON + "\n```",
		"```\n" + plainJSON + "\n```",
		"Here you go:\n```json\n" + plainJSON + "\n```\nThanks",
	} {
		got, attempt, err := ParseResponse(wrapped)
		require.NoError(t, err)
		assert.Equal(t, "fenced", attempt)
		assert.Equal(t, direct, got)
	}
}

func TestParseResponseBraceRegion(t *testing.T) {
	t.Parallel()

	got, attempt, err := ParseResponse("Sure! " + plainJSON + " Hope this helps.")
	require.NoError(t, err)
	assert.Equal(t, "braced", attempt)
	assert.Equal(t, "Council Approves Budget", got["headline"])
}

func TestParseResponseFailures(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "not json at all", "[1,2,3]", "```json\n{broken\n```"} {
		_, _, err := ParseResponse(in)
		assert.ErrorIs(t, err, ErrUnparseable, "input %q", in)
	}
}

func TestEnsureParagraphs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<p>Line one\nline two</p>", EnsureParagraphs("Line one\nline two"))
	assert.Equal(t, "<p>First.</p>\n<p>Second.</p>", EnsureParagraphs("First.\n\n  \nSecond.\n\n"))
	assert.Equal(t, "<p class=\"lead\">Kept</p>", EnsureParagraphs("<p class=\"lead\">Kept</p>"))
	assert.Equal(t, "<DIV>Kept</DIV>", EnsureParagraphs("<DIV>Kept</DIV>"))
	assert.Equal(t, "", EnsureParagraphs("  \n "))
}

func TestNormalizeArticleDefaults(t *testing.T) {
	t.Parallel()

	article, err := NormalizeArticle(map[string]any{
		"body": "Just text",
		"tags": []any{" Sports ", "", "SPORTS", 2024.0, nil, "High School"},
	}, "Original Title")
	require.NoError(t, err)

	assert.Equal(t, "Original Title", article.Headline)
	assert.Equal(t, "News", article.Category)
	assert.Equal(t, "<p>Just text</p>", article.Body)
	assert.Equal(t, []string{"sports", "2024", "high school"}, article.Tags)
}

func TestNormalizeArticleSingleTagString(t *testing.T) {
	t.Parallel()

	article, err := NormalizeArticle(map[string]any{
		"headline": "Storm Hits Coast",
		"body":     "<p>Wind.</p>",
		"tags":     "Weather",
	}, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather"}, article.Tags)
	assert.Equal(t, "Storm Hits Coast", article.Headline)
}

func TestNormalizeArticleSanitizesBody(t *testing.T) {
	t.Parallel()

	article, err := NormalizeArticle(map[string]any{
		"body": "<p>Safe</p><script>alert(1)</script>",
	}, "t")
	require.NoError(t, err)
	assert.NotContains(t, article.Body, "script")
	assert.Contains(t, article.Body, "<p>Safe</p>")
}

func TestNormalizeArticleEmptyBody(t *testing.T) {
	t.Parallel()

	_, err := NormalizeArticle(map[string]any{"headline": "h", "body": ""}, "t")
	assert.Error(t, err)
}

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	in := "<div><p>Mayor&nbsp;said</p><p>the vote   passed.</p><script>track()</script><style>p{}</style></div>"
	assert.Equal(t, "Mayor said the vote passed.", StripMarkup(in))
	assert.Equal(t, "", StripMarkup(""))
	assert.Equal(t, "Fish & chips", StripMarkup("Fish &amp; chips"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	out, cut := Truncate("abcdef", 4)
	assert.True(t, cut)
	assert.Equal(t, "abcd...", out)

	out, cut = Truncate("abc", 4)
	assert.False(t, cut)
	assert.Equal(t, "abc", out)
}

func TestRichnessGuidance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, briefGuidance, richnessGuidance(40))
	assert.Equal(t, shortGuidance, richnessGuidance(100))
	assert.Equal(t, shortGuidance, richnessGuidance(199))
	assert.Empty(t, richnessGuidance(200))
}

func TestRewriteBuildsRequest(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: "```json\n" + plainJSON + "\n```"}
	engine := NewEngine(chat, "gpt-4.1-nano", 0, nil)

	article, err := engine.Rewrite(context.Background(), domain.FeedEntry{
		ID:    "guid-1",
		Title: "Council votes",
		Link:  "https://example.com/a",
		Body:  "<p>The council voted on the budget.</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Council Approves Budget", article.Headline)
	assert.Equal(t, "Politics", article.Category)
	assert.Equal(t, []string{"budget", "city council"}, article.Tags)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, "gpt-4.1-nano", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)
	assert.True(t, req.JSONResponse)
	assert.Equal(t, systemPrompt, req.System)
	assert.Contains(t, req.User, "Title: Council votes")
	assert.Contains(t, req.User, "Source URL: https://example.com/a")
	assert.Contains(t, req.User, "approximately 6 words")
	assert.Contains(t, req.User, "The source material is brief")
	assert.NotContains(t, req.User, "<p>")
}

func TestRewriteUsesTitleForEmptyBody(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: plainJSON}
	engine := NewEngine(chat, "m", 0.5, nil)

	_, err := engine.Rewrite(context.Background(), domain.FeedEntry{ID: "x", Title: "Only a title", Body: "<img src=x>"})
	require.NoError(t, err)
	assert.Contains(t, chat.requests[0].User, "Content:\nOnly a title")
	assert.InDelta(t, 0.5, chat.requests[0].Temperature, 0.0001)
}

func TestRewriteTruncatesLongSource(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: plainJSON}
	engine := NewEngine(chat, "m", 0, nil)

	_, err := engine.Rewrite(context.Background(), domain.FeedEntry{ID: "x", Title: "t", Body: strings.Repeat("a", MaxSourceChars+50)})
	require.NoError(t, err)
	assert.Contains(t, chat.requests[0].User, strings.Repeat("a", MaxSourceChars)+"...")
	assert.NotContains(t, chat.requests[0].User, strings.Repeat("a", MaxSourceChars+1))
}

func TestRewriteFailuresAreStageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		chat *fakeChat
		kind domain.FailureKind
	}{
		{"network", &fakeChat{err: errors.New("connection reset")}, domain.KindTransient},
		{"malformed", &fakeChat{response: "I cannot help with that."}, domain.KindData},
		{"empty body", &fakeChat{response: `{"headline":"h","body":"   "}`}, domain.KindData},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewEngine(tc.chat, "m", 0, nil).Rewrite(context.Background(), domain.FeedEntry{ID: "x", Title: "t", Body: "body"})
			require.Error(t, err)
			assert.Equal(t, domain.StageRewrite, domain.StageOf(err))
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}
