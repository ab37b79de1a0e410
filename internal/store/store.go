// Package store persists restaurants, reviews and their annotations in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/restomaps/internal/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

// Store is a concurrency-safe SQLite handle.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// Open creates or opens the database at path and applies the schema.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	// Times are written in SQLite's own layout so range queries compare lexically.
	db, err := sql.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every new connection to :memory: would see an empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS restaurants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		place_type TEXT,
		city TEXT,
		maps_url TEXT,
		address TEXT,
		latitude REAL,
		longitude REAL,
		maps_rating REAL,
		visited INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		restaurant_id INTEGER NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
		external_id TEXT NOT NULL,
		author_name TEXT,
		rating INTEGER CHECK (rating IS NULL OR rating BETWEEN 1 AND 5),
		comment_text TEXT,
		original_date DATETIME,
		retrieved_at DATETIME NOT NULL,
		processed_verdict TEXT,
		processed_tags TEXT,
		sentiment_score REAL,
		UNIQUE (restaurant_id, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_restaurant ON reviews(restaurant_id);
	CREATE INDEX IF NOT EXISTS idx_reviews_verdict ON reviews(processed_verdict);
	CREATE INDEX IF NOT EXISTS idx_reviews_original_date ON reviews(original_date DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// UpsertRestaurant inserts the restaurant or refreshes the stored row with the
// same external id, returning the row id. A nil MapsRating keeps the stored
// rating.
func (s *Store) UpsertRestaurant(ctx context.Context, r model.Restaurant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ExternalID == "" {
		return 0, fmt.Errorf("restaurant %q: empty external id", r.Name)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restaurants (
			external_id, name, place_type, city, maps_url, address,
			latitude, longitude, maps_rating, visited, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			name = excluded.name,
			place_type = excluded.place_type,
			city = excluded.city,
			maps_url = excluded.maps_url,
			address = excluded.address,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			maps_rating = COALESCE(excluded.maps_rating, restaurants.maps_rating),
			visited = excluded.visited
	`,
		r.ExternalID, r.Name, r.PlaceType, r.City, r.MapsURL, r.Address,
		r.Latitude, r.Longitude, r.MapsRating, boolToInt(r.Visited), s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("upsert restaurant %s: %w", r.ExternalID, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM restaurants WHERE external_id = ?`, r.ExternalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup restaurant %s: %w", r.ExternalID, err)
	}
	return id, nil
}

// EnsureRestaurant returns the row id of the restaurant with externalID,
// creating a minimal row when none exists. An existing row is left as is.
func (s *Store) EnsureRestaurant(ctx context.Context, externalID, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if externalID == "" {
		return 0, fmt.Errorf("ensure restaurant: empty external id")
	}
	if name == "" {
		name = externalID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restaurants (external_id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (external_id) DO NOTHING
	`, externalID, name, s.now())
	if err != nil {
		return 0, fmt.Errorf("insert restaurant %s: %w", externalID, err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM restaurants WHERE external_id = ?`, externalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup restaurant %s: %w", externalID, err)
	}
	return id, nil
}

// UpdateRestaurantRating sets the restaurant's maps rating to the average
// star rating of its stored reviews and returns the new value. A restaurant
// without rated reviews keeps its current rating.
func (s *Store) UpdateRestaurantRating(ctx context.Context, restaurantID int64) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE restaurants
		SET maps_rating = COALESCE(
			(SELECT AVG(rating) FROM reviews WHERE restaurant_id = ? AND rating IS NOT NULL),
			maps_rating
		)
		WHERE id = ?
	`, restaurantID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("update rating of restaurant %d: %w", restaurantID, err)
	}

	var rating sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `SELECT maps_rating FROM restaurants WHERE id = ?`, restaurantID).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %d: %w", restaurantID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup rating of restaurant %d: %w", restaurantID, err)
	}
	if !rating.Valid {
		return nil, nil
	}
	return &rating.Float64, nil
}

// Restaurant returns the restaurant with the given row id.
func (s *Store) Restaurant(ctx context.Context, id int64) (*model.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r model.Restaurant
	var visited int
	var placeType, city, mapsURL, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, name, place_type, city, maps_url, address,
			latitude, longitude, maps_rating, visited, created_at
		FROM restaurants WHERE id = ?
	`, id).Scan(
		&r.ID, &r.ExternalID, &r.Name, &placeType, &city, &mapsURL, &address,
		&r.Latitude, &r.Longitude, &r.MapsRating, &visited, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query restaurant %d: %w", id, err)
	}

	r.PlaceType = placeType.String
	r.City = city.String
	r.MapsURL = mapsURL.String
	r.Address = address.String
	r.Visited = visited != 0
	return &r, nil
}

// NewReview is a parsed review ready for insertion
type NewReview struct {
	ExternalID   string
	Author       string
	Rating       *int
	Text         string
	OriginalDate *time.Time
}

// SaveResult counts what SaveReviews did
type SaveResult struct {
	Found int `json:"found"`
	New   int `json:"new"`
}

// SaveReviews inserts reviews for one restaurant in a single transaction.
// Reviews whose external id is already stored for the restaurant are skipped.
func (s *Store) SaveReviews(ctx context.Context, restaurantID int64, reviews []NewReview) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := SaveResult{Found: len(reviews)}
	if len(reviews) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO reviews (
			restaurant_id, external_id, author_name, rating, comment_text,
			original_date, retrieved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return res, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	retrieved := s.now()
	for _, r := range reviews {
		var text any
		if r.Text != "" {
			text = r.Text
		}
		var date any
		if r.OriginalDate != nil {
			date = r.OriginalDate.UTC()
		}

		result, err := stmt.ExecContext(ctx,
			restaurantID, r.ExternalID, r.Author, r.Rating, text, date, retrieved,
		)
		if err != nil {
			return SaveResult{Found: len(reviews)}, fmt.Errorf("insert review %s: %w", r.ExternalID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return SaveResult{Found: len(reviews)}, fmt.Errorf("insert review %s: %w", r.ExternalID, err)
		}
		if affected > 0 {
			res.New++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{Found: len(reviews)}, fmt.Errorf("commit reviews: %w", err)
	}
	return res, nil
}

// PendingQuery selects reviews for annotation
type PendingQuery struct {
	RestaurantID int64 // Zero selects every restaurant
	Force        bool  // Include reviews that already carry a verdict
	Limit        int   // Zero means no limit
}

// PendingReviews returns reviews with text that still need annotation,
// ordered by id.
func (s *Store) PendingReviews(ctx context.Context, q PendingQuery) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := reviewColumns + ` FROM reviews WHERE comment_text IS NOT NULL`
	var args []any
	if !q.Force {
		query += ` AND processed_verdict IS NULL`
	}
	if q.RestaurantID != 0 {
		query += ` AND restaurant_id = ?`
		args = append(args, q.RestaurantID)
	}
	query += ` ORDER BY id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	return s.queryReviews(ctx, query, args...)
}

// Reviews returns a page of one restaurant's reviews, newest first.
func (s *Store) Reviews(ctx context.Context, restaurantID int64, offset, limit int) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	return s.queryReviews(ctx, reviewColumns+`
		FROM reviews
		WHERE restaurant_id = ?
		ORDER BY original_date DESC, id DESC
		LIMIT ? OFFSET ?
	`, restaurantID, limit, offset)
}

// Review returns the review with the given row id.
func (s *Store) Review(ctx context.Context, id int64) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews, err := s.queryReviews(ctx, reviewColumns+` FROM reviews WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	return &reviews[0], nil
}

// SaveAnnotations writes verdict, tags and score back in one transaction and
// returns the number of reviews updated.
func (s *Store) SaveAnnotations(ctx context.Context, annotations []model.Annotation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(annotations) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE reviews
		SET processed_verdict = ?, processed_tags = ?, sentiment_score = ?
		WHERE id = ?
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, a := range annotations {
		tags := a.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return 0, fmt.Errorf("encode tags for review %d: %w", a.ReviewID, err)
		}

		result, err := stmt.ExecContext(ctx, a.Verdict, string(encoded), a.SentimentScore, a.ReviewID)
		if err != nil {
			return 0, fmt.Errorf("update review %d: %w", a.ReviewID, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit annotations: %w", err)
	}
	return updated, nil
}

// Stats reports annotation progress and the verdict distribution.
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.Stats{Verdicts: []model.VerdictCount{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(comment_text),
			COUNT(processed_verdict)
		FROM reviews
	`).Scan(&stats.Total, &stats.WithText, &stats.Processed)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT processed_verdict, COUNT(*)
		FROM reviews
		WHERE processed_verdict IS NOT NULL
		GROUP BY processed_verdict
		ORDER BY COUNT(*) DESC, processed_verdict
	`)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vc model.VerdictCount
		if err := rows.Scan(&vc.Verdict, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		stats.Verdicts = append(stats.Verdicts, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}

	return stats, nil
}

// RestaurantStats summarizes ratings of one restaurant's reviews.
func (s *Store) RestaurantStats(ctx context.Context, restaurantID int64) (*model.RestaurantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.RestaurantStats{RatingDistribution: make(map[int]int)}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(rating)
		FROM reviews WHERE restaurant_id = ?
	`, restaurantID).Scan(&stats.TotalReviews, &avg)
	if err != nil {
		return nil, fmt.Errorf("count reviews for restaurant %d: %w", restaurantID, err)
	}
	stats.AverageRating = avg.Float64

	rows, err := s.db.QueryContext(ctx, `
		SELECT rating, COUNT(*)
		FROM reviews
		WHERE restaurant_id = ? AND rating IS NOT NULL
		GROUP BY rating
	`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query rating distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		stats.RatingDistribution[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	since := s.now().AddDate(0, 0, -30)
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reviews
		WHERE restaurant_id = ? AND original_date >= ?
	`, restaurantID, since).Scan(&stats.RecentReviews)
	if err != nil {
		return nil, fmt.Errorf("count recent reviews: %w", err)
	}

	return stats, nil
}

const reviewColumns = `
	SELECT id, restaurant_id, external_id, author_name, rating, comment_text,
		original_date, retrieved_at, processed_verdict, processed_tags, sentiment_score`

// queryReviews executes a query and scans results into Reviews.
// Callers must hold the lock.
func (s *Store) queryReviews(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var (
			r                     model.Review
			author, text, verdict sql.NullString
			tags                  sql.NullString
			rating                sql.NullInt64
			score                 sql.NullFloat64
			original              sql.NullTime
		)
		if err := rows.Scan(
			&r.ID, &r.RestaurantID, &r.ExternalID, &author, &rating, &text,
			&original, &r.RetrievedAt, &verdict, &tags, &score,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}

		r.Author = author.String
		r.Text = text.String
		r.Verdict = verdict.String
		if rating.Valid {
			v := int(rating.Int64)
			r.Rating = &v
		}
		if score.Valid {
			v := score.Float64
			r.SentimentScore = &v
		}
		if original.Valid {
			v := original.Time
			r.OriginalDate = &v
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &r.Tags); err != nil {
				return nil, fmt.Errorf("decode tags of review %d: %w", r.ID, err)
			}
		}

		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
