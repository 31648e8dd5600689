package services

import (
	"regexp"
	"strconv"
	"strings"

	"restaurant-scraper/models"
	"restaurant-scraper/utils"
)

var (
	// digitRunRegexp captures the first contiguous run of decimal digits.
	digitRunRegexp = regexp.MustCompile(`\d+`)
	// newlineRunRegexp matches runs of newline/carriage-return characters.
	newlineRunRegexp = regexp.MustCompile(`[\n\r]+`)
)

// Normalizer converts raw extracted fields into the scraped subset of a
// restaurant record. It is a total function: malformed input degrades to
// empty strings and zero counts, never to an error.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds the scraped fields of a Restaurant from raw. Rating
// and tags are never set here; creation-time defaults belong to the
// upsert path. MapURL is the scrape target verbatim, kept for re-scrapes.
func (n *Normalizer) Normalize(raw *models.RawExtraction, mapURL string) *models.Restaurant {
	rec := &models.Restaurant{
		Name:          strings.TrimSpace(raw.Name),
		Category:      strings.TrimSpace(raw.Category),
		Address:       strings.TrimSpace(raw.Address),
		Phone:         strings.TrimSpace(raw.Phone),
		Description:   strings.TrimSpace(raw.Description),
		BusinessHours: collapseNewlines(raw.BusinessHoursText),
		ImageURL:      strings.TrimSpace(raw.ImageURL),
		MapURL:        mapURL,
		Reviews:       extractNumber(raw.VisitorReviewsText),
		BlogReviews:   extractNumber(raw.BlogReviewsText),
	}

	n.logger.Debug("[normalizer] %q — reviews: %d, blog reviews: %d",
		rec.Name, rec.Reviews, rec.BlogReviews)
	return rec
}

// extractNumber parses the first digit run found anywhere in text, e.g.
// "리뷰 234개" → 234. No digits means 0. Deliberately not locale-aware.
func extractNumber(text string) int {
	match := digitRunRegexp.FindString(text)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// collapseNewlines folds newline runs into single spaces; the business
// hours block renders across several visual lines in the source markup.
func collapseNewlines(s string) string {
	return strings.TrimSpace(newlineRunRegexp.ReplaceAllString(s, " "))
}
