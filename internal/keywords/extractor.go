// Package keywords ranks candidate keywords in Chinese headlines
package keywords

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bobmcallan/twpulse/internal/common"
	"github.com/bobmcallan/twpulse/internal/interfaces"
	"github.com/bobmcallan/twpulse/internal/models"
)

// DefaultTopN is used when a caller passes topN <= 0
const DefaultTopN = 10

// MinRunes is the shortest token kept as a keyword
const MinRunes = 2

// Segmenter splits running Chinese text into words
type Segmenter interface {
	Cut(text string) []string
}

// Extractor implements KeywordExtractor over a Segmenter
type Extractor struct {
	seg    Segmenter
	logger *common.Logger
}

// NewExtractor creates an extractor using seg for word boundaries
func NewExtractor(seg Segmenter, logger *common.Logger) *Extractor {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Extractor{seg: seg, logger: logger}
}

// ExtractKeywords concatenates all titles, segments them and returns the
// topN most frequent Han-only terms of at least two characters. Ties keep
// first-occurrence order.
func (e *Extractor) ExtractKeywords(items []models.NewsItem, topN int) []models.KeywordRank {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Title)
	}
	if b.Len() == 0 {
		return []models.KeywordRank{}
	}

	counts := make(map[string]int)
	var order []string
	for _, tok := range e.seg.Cut(b.String()) {
		tok = strings.TrimSpace(tok)
		if !isCandidate(tok) {
			continue
		}
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	ranks := make([]models.KeywordRank, 0, len(order))
	for _, term := range order {
		ranks = append(ranks, models.KeywordRank{Term: term, Count: counts[term]})
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Count > ranks[j].Count })

	if len(ranks) > topN {
		ranks = ranks[:topN]
	}

	e.logger.Debug().Int("headlines", len(items)).Int("candidates", len(order)).Int("kept", len(ranks)).Msg("Keywords extracted")
	return ranks
}

// isCandidate keeps tokens of MinRunes or more made only of Han ideographs
func isCandidate(tok string) bool {
	if utf8.RuneCountInString(tok) < MinRunes {
		return false
	}
	for _, r := range tok {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

var _ interfaces.KeywordExtractor = (*Extractor)(nil)
