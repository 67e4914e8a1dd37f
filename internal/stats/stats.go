// Package stats reduces a classified post list into distribution counts and
// headline figures. Pure functions, no retained state.
package stats

import (
	"github.com/ngascope/ngascope/internal/types"
)

// classifiedThreshold is the confidence above which a post counts as
// successfully classified.
const classifiedThreshold = 0.5

// Aggregate computes category/keyword/author distributions and the summary
// in one pass. Safe on an empty input: counts are empty maps and the rate
// is zero, never a division by zero.
func Aggregate(posts []types.ClassifiedPost) types.Statistics {
	s := types.Statistics{
		TotalPosts: len(posts),
		Categories: make(map[string]int),
		Keywords:   make(map[string]int),
		Authors:    make(map[string]int),
	}

	// Track first-seen order so ties break deterministically.
	var categoryOrder, keywordOrder, authorOrder []string
	classified := 0

	for _, post := range posts {
		if category := post.Classification.Category(); category != "" {
			if s.Categories[category] == 0 {
				categoryOrder = append(categoryOrder, category)
			}
			s.Categories[category]++
		}
		for _, keyword := range post.Classification.Keywords {
			if s.Keywords[keyword] == 0 {
				keywordOrder = append(keywordOrder, keyword)
			}
			s.Keywords[keyword]++
		}

		author := post.Author
		if author == "" {
			author = types.UnknownAuthor
		}
		if s.Authors[author] == 0 {
			authorOrder = append(authorOrder, author)
		}
		s.Authors[author]++

		if post.Classification.Confidence > classifiedThreshold {
			classified++
		}
	}

	s.Summary = types.Summary{
		MostCommonCategory: maxByCount(s.Categories, categoryOrder),
		MostCommonKeyword:  maxByCount(s.Keywords, keywordOrder),
		MostActiveAuthor:   maxByCount(s.Authors, authorOrder),
	}
	if len(posts) > 0 {
		s.Summary.ClassificationRate = float64(classified) / float64(len(posts))
	}

	return s
}

// maxByCount returns the key with the highest count; ties keep the key seen
// first. Empty input yields "".
func maxByCount(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, key := range order {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}
	return best
}
