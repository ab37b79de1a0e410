package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ppiankov/restomaps/internal/model"
	"github.com/ppiankov/restomaps/internal/store"
)

// Group holds the cleaned reviews of one restaurant
type Group struct {
	RestaurantID   string
	RestaurantName string
	Reviews        []store.NewReview
}

// Issue is a non-fatal problem found while preparing a record. The record
// is still imported with the offending field cleared.
type Issue struct {
	RestaurantID string
	ReviewID     string
	Err          error
}

func (i Issue) Error() string {
	return fmt.Sprintf("restaurant %s review %s: %v", i.RestaurantID, i.ReviewID, i.Err)
}

// Prepare cleans records and groups them by restaurant in first-seen order.
// Within a restaurant, a repeated review id keeps its first occurrence.
func Prepare(records []model.ReviewRecord) ([]Group, []Issue) {
	var groups []Group
	var issues []Issue
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)

	for _, rec := range records {
		rid := strings.TrimSpace(string(rec.RestaurantID))

		gi, ok := index[rid]
		if !ok {
			gi = len(groups)
			index[rid] = gi
			seen[rid] = make(map[string]bool)
			groups = append(groups, Group{RestaurantID: rid})
		}
		if groups[gi].RestaurantName == "" {
			groups[gi].RestaurantName = strings.TrimSpace(rec.RestaurantName)
		}

		review := store.NewReview{
			ExternalID: reviewID(rec),
			Author:     strings.TrimSpace(rec.Author),
			Text:       CleanText(rec.Text),
		}
		if seen[rid][review.ExternalID] {
			continue
		}
		seen[rid][review.ExternalID] = true

		if rec.Rating != nil {
			if *rec.Rating >= 1 && *rec.Rating <= 5 {
				rating := *rec.Rating
				review.Rating = &rating
			} else {
				issues = append(issues, Issue{rid, review.ExternalID, fmt.Errorf("rating %d out of range 1-5", *rec.Rating)})
			}
		}

		date, err := ParseDate(rec.DateISO)
		if err != nil {
			issues = append(issues, Issue{rid, review.ExternalID, err})
		}
		review.OriginalDate = date

		groups[gi].Reviews = append(groups[gi].Reviews, review)
	}

	return groups, issues
}

// reviewID returns the record's own id, or derives one from author and day
// the way the scraper does when the page carries none. A record with neither
// falls back to a hash of its text.
func reviewID(rec model.ReviewRecord) string {
	if id := strings.TrimSpace(string(rec.ReviewID)); id != "" {
		return id
	}

	author := strings.TrimSpace(rec.Author)
	day := strings.TrimSpace(rec.DateISO)
	if r := []rune(day); len(r) > 10 {
		day = string(r[:10])
	}
	if author != "" || day != "" {
		return author + "_" + day
	}

	sum := sha256.Sum256([]byte(rec.Text))
	return "text_" + hex.EncodeToString(sum[:8])
}
