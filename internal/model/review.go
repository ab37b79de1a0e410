package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Restaurant is a place tracked in the workspace, enriched with map data
type Restaurant struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"` // Workspace page id
	Name       string    `json:"name"`
	PlaceType  string    `json:"place_type,omitempty"`
	City       string    `json:"city,omitempty"`
	MapsURL    string    `json:"maps_url,omitempty"`
	Address    string    `json:"address,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	MapsRating *float64  `json:"maps_rating,omitempty"` // Rating shown on the maps site
	Visited    bool      `json:"visited"`
	CreatedAt  time.Time `json:"created_at"`
}

// Review is a stored user review with its annotation, if any
type Review struct {
	ID             int64      `json:"id"`
	RestaurantID   int64      `json:"restaurant_id"`
	ExternalID     string     `json:"external_id"` // Review id on the maps site
	Author         string     `json:"author,omitempty"`
	Rating         *int       `json:"rating,omitempty"`
	Text           string     `json:"text"`
	OriginalDate   *time.Time `json:"original_date,omitempty"`
	RetrievedAt    time.Time  `json:"retrieved_at"`
	Verdict        string     `json:"processed_verdict,omitempty"`
	Tags           []string   `json:"processed_tags,omitempty"`
	SentimentScore *float64   `json:"sentiment_score,omitempty"`
}

// Processed reports whether the review has been annotated
func (r Review) Processed() bool {
	return r.Verdict != ""
}

// ReviewRecord is one line of a scraped review dump
type ReviewRecord struct {
	RestaurantID   ExternalID `json:"restaurant_id"` // Restaurant external id
	RestaurantName string     `json:"restaurant_name,omitempty"`
	ReviewID       ExternalID `json:"review_id"`
	Author         string     `json:"author"`
	Rating         *int       `json:"rating,omitempty"`
	Text           string     `json:"text"`
	DateISO        string     `json:"date_iso,omitempty"`
}

// ExternalID is an identifier that dumps may carry as a JSON string or number
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ExternalID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("external id: %w", err)
	}
	*id = ExternalID(s)
	return nil
}

// Annotation is the write-back of one processed review
type Annotation struct {
	ReviewID       int64
	Verdict        string
	Tags           []string
	SentimentScore float64
}

// VerdictCount is one row of the verdict distribution
type VerdictCount struct {
	Verdict string `json:"verdict" yaml:"verdict"`
	Count   int    `json:"count" yaml:"count"`
}

// Stats summarizes annotation progress across the store
type Stats struct {
	Total     int            `json:"total" yaml:"total"`
	WithText  int            `json:"with_text" yaml:"with_text"`
	Processed int            `json:"processed" yaml:"processed"`
	Verdicts  []VerdictCount `json:"verdicts" yaml:"verdicts"`
}

// Unprocessed returns the number of reviews with text still waiting for annotation
func (s Stats) Unprocessed() int {
	return s.WithText - s.Processed
}

// RestaurantStats summarizes the reviews of one restaurant
type RestaurantStats struct {
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"avg_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
	RecentReviews      int         `json:"recent_reviews"` // Reviews dated within the last 30 days
}
