package images

import (
	"regexp"
	"strings"
)

const maxKeywords = 3

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but in on at to for of with by from is are was were be been
		being have has had do does did will would could should may might must shall
		can need this that these those it its as if when where how what which who
		whom why so than too very just also now here there then some any all both
		each few more most other into over after before between under again further
		once during out up down off about only same new says said announces
		announced reports reported`) {
		stopWords[w] = struct{}{}
	}
}

// SearchQuery picks up to three non-stopword terms from the title for a stock
// photo search; "news" when none qualify.
func SearchQuery(title string) string {
	var keywords []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(title), -1) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	if len(keywords) == 0 {
		return "news"
	}
	return strings.Join(keywords, " ")
}
