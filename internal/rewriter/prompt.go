package rewriter

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxSourceChars bounds the cleaned source text sent to the model.
const MaxSourceChars = 8000

const systemPrompt = `You are a professional news editor at a major wire service. Rewrite the article you are given in strict Associated Press (AP) style as a complete, publication-ready news story.

## AP style
- Inverted pyramid: lead with who, what, when, where, why and how, then supporting detail in descending order of importance.
- Active voice and strong verbs.
- Paragraphs of one to three sentences.
- Headlines in present tense and active voice, dropping articles where possible.
- Attribute every source and quote; prefer "said".
- Spell out one through nine and use numerals for 10 and above; always use numerals for ages, percentages and measurements.
- Capitalize formal titles only directly before a name.
- Stay neutral and factual.

## Length
- The article must be at least 120 words.
- When the source is thin, add general background: who the subject is, earlier related events, why the news matters, what happens next.

## Accuracy
- Never invent quotes, statistics or specific facts that are not in the source.
- Only add general, verifiable background.
- If details are limited or the story is developing, close with a sentence such as "This is a developing story and will be updated as more details emerge."
- A shorter accurate article is better than a longer invented one.

## Response format
Respond with a single JSON object with exactly these keys:
- "headline": AP-style headline, at most 100 characters
- "body": the full article as HTML using <p></p> paragraphs, at least 120 words, 3 to 6 paragraphs
- "category": one category such as "News", "Politics", "Business", "Technology", "Sports", "Entertainment", "Health", "Science", "Education" or "Local"
- "tags": an array of 3 to 5 lowercase tags

Return only the JSON object with no markdown and no other text.`

const briefGuidance = `
NOTE: The source material is brief. Expand it to at least 120 words by:
- adding general background on the subject or organization
- explaining why the news matters
- giving context that helps readers follow the story
- closing with "We will provide more information as it becomes available." when details are limited
Do NOT invent quotes, statistics or facts that are not in the source.`

const shortGuidance = `
NOTE: Make sure the rewritten article is at least 120 words with proper context and background. Do NOT invent any facts.`

var stripPolicy = bluemonday.StrictPolicy()

// StripMarkup removes tags and script/style content, decodes entities and
// collapses whitespace.
func StripMarkup(raw string) string {
	if raw == "" {
		return ""
	}
	// keep adjacent block elements from gluing their words together
	spaced := strings.ReplaceAll(raw, "<", " <")
	text := html.UnescapeString(stripPolicy.Sanitize(spaced))
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts s to max characters and appends "..." when it was longer.
func Truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:max]) + "...", true
}

// richnessGuidance picks the extra instruction for thin sources.
func richnessGuidance(words int) string {
	switch {
	case words < 100:
		return briefGuidance
	case words < 200:
		return shortGuidance
	default:
		return ""
	}
}

func buildUserPrompt(title, link, content string, words int) string {
	return fmt.Sprintf(`Please rewrite the following article in AP style:

Title: %s
Source URL: %s
Source word count: approximately %d words
%s

Content:
%s

Remember to respond with only a valid JSON object.`, title, link, words, richnessGuidance(words), content)
}
