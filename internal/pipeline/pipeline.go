package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/cache"
	"github.com/ppiankov/restomaps/internal/ingest"
	"github.com/ppiankov/restomaps/internal/lexicon"
	"github.com/ppiankov/restomaps/internal/model"
	"github.com/ppiankov/restomaps/internal/store"
	"github.com/ppiankov/restomaps/internal/worker"
	"go.uber.org/zap"
)

// memoryTTL bounds how long an annotation stays in the in-process layer
// of the memo cache.
const memoryTTL = time.Hour

// Pipeline orchestrates import and annotation runs against the store
type Pipeline struct {
	store     *store.Store
	processor *annotate.Processor
	annotator worker.Annotator
	cache     cache.Cache // nil when caching is disabled
	fetcher   *ingest.Fetcher
	config    *model.Config
	logger    *zap.Logger
}

// NewPipeline creates a pipeline with the given configuration. The lexicon
// overlay named in the config is loaded here.
func NewPipeline(cfg *model.Config, st *store.Store, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	lex, err := lexicon.LoadWithOverlay(cfg.Annotate.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	processor := annotate.NewProcessor(lex)

	p := &Pipeline{
		store:     st,
		processor: processor,
		annotator: processor,
		fetcher:   ingest.NewFetcher(cfg.HTTP, cfg.RateLimiting, logger),
		config:    cfg,
		logger:    logger,
	}

	if cfg.Cache.Enabled {
		var c cache.Cache
		if cfg.Cache.Dir != "" {
			c = cache.NewLayeredCache(memoryTTL, cfg.Cache.Dir, cfg.Cache.TTL)
		} else {
			c = cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
		}
		p.cache = c
		p.annotator = newMemoAnnotator(processor, c, lex.Fingerprint(), cfg.Cache.TTL, logger)
		logger.Debug("annotation cache enabled",
			zap.String("dir", cfg.Cache.Dir),
			zap.Duration("ttl", cfg.Cache.TTL),
			zap.String("lexicon", lex.Fingerprint()))
	}

	return p, nil
}

// Analyze annotates a single text without touching the store
func (p *Pipeline) Analyze(text string, rating *int) annotate.Result {
	return p.annotator.Process(text, rating)
}

// Explain returns the sentiment score breakdown for text
func (p *Pipeline) Explain(text string) annotate.Breakdown {
	return p.processor.Explain(text)
}

// CacheStats reports memo cache hits and misses. It is zero when caching
// is disabled.
func (p *Pipeline) CacheStats() cache.Stats {
	if p.cache == nil {
		return cache.Stats{}
	}
	return p.cache.Stats()
}

// AnnotateOptions selects the reviews of an annotation run
type AnnotateOptions struct {
	RestaurantID int64 // 0 means all restaurants
	Force        bool  // reprocess reviews that already carry a verdict
	Limit        int   // 0 means every pending review
	BatchSize    int
	Workers      int

	// Progress, when set, is called after each committed batch
	Progress func(done, total int)
}

// AnnotateSummary contains the outcome of an annotation run
type AnnotateSummary struct {
	Selected  int
	Processed int
	Errors    int
	Duration  time.Duration
}

// Annotate runs every selected review through the processor in batches.
// Each batch is committed on its own, so a cancelled run keeps the batches
// it finished. A failing review is logged, counted and left unprocessed.
func (p *Pipeline) Annotate(ctx context.Context, opts AnnotateOptions) (*AnnotateSummary, error) {
	start := time.Now()

	if opts.RestaurantID != 0 {
		if _, err := p.store.Restaurant(ctx, opts.RestaurantID); err != nil {
			return nil, err
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = p.config.Annotate.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = p.config.Concurrency.Workers
	}

	pending, err := p.store.PendingReviews(ctx, store.PendingQuery{
		RestaurantID: opts.RestaurantID,
		Force:        opts.Force,
		Limit:        opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}

	summary := &AnnotateSummary{Selected: len(pending)}
	p.logger.Info("annotation run started",
		zap.Int("reviews", len(pending)),
		zap.Int64("restaurant_id", opts.RestaurantID),
		zap.Bool("force", opts.Force),
		zap.Int("batch_size", batchSize),
		zap.Int("workers", workers))

	bp := worker.NewBatchProcessor(p.annotator, workers)

	for offset := 0; offset < len(pending); offset += batchSize {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		end := min(offset+batchSize, len(pending))
		results := bp.ProcessReviews(ctx, pending[offset:end])

		annotations := make([]model.Annotation, 0, len(results))
		for _, r := range results {
			if r.Error != nil {
				summary.Errors++
				p.logger.Warn("review annotation failed",
					zap.Int64("review_id", r.ReviewID),
					zap.Error(r.Error))
				continue
			}
			annotations = append(annotations, r.Annotation())
		}

		// Commit with a fresh context so a cancel mid-batch keeps the
		// results already computed.
		n, err := p.store.SaveAnnotations(context.WithoutCancel(ctx), annotations)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("save batch at offset %d: %w", offset, err)
		}
		summary.Processed += n

		p.logger.Debug("batch committed",
			zap.Int("offset", offset),
			zap.Int("saved", n),
			zap.Int("errors", summary.Errors))
		if opts.Progress != nil {
			opts.Progress(end, len(pending))
		}
	}

	summary.Duration = time.Since(start)
	p.logger.Info("annotation run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.Duration))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ImportSummary contains the outcome of a dump import
type ImportSummary struct {
	Source      string
	Records     int
	Skipped     int
	Issues      int
	Restaurants int
	Found       int
	New         int
}

// Import loads a review dump from a file or URL into the store. Reviews
// already stored for their restaurant are left untouched.
func (p *Pipeline) Import(ctx context.Context, src string) (*ImportSummary, error) {
	data, err := ingest.ReadSource(ctx, src, p.fetcher)
	if err != nil {
		return nil, err
	}

	dump, err := ingest.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	for _, skipped := range dump.Skipped {
		p.logger.Warn("skipping malformed record", zap.String("source", src), zap.Error(skipped))
	}

	groups, issues := ingest.Prepare(dump.Records)
	for _, issue := range issues {
		p.logger.Warn("record imported with cleared field", zap.String("source", src), zap.Error(issue))
	}

	summary := &ImportSummary{
		Source:  src,
		Records: len(dump.Records),
		Skipped: len(dump.Skipped),
		Issues:  len(issues),
	}

	for _, g := range groups {
		rid, err := p.store.EnsureRestaurant(ctx, g.RestaurantID, g.RestaurantName)
		if err != nil {
			return summary, err
		}
		res, err := p.store.SaveReviews(ctx, rid, g.Reviews)
		if err != nil {
			return summary, fmt.Errorf("restaurant %s: %w", g.RestaurantID, err)
		}

		rating, err := p.store.UpdateRestaurantRating(ctx, rid)
		if err != nil {
			return summary, fmt.Errorf("restaurant %s: %w", g.RestaurantID, err)
		}

		summary.Restaurants++
		summary.Found += res.Found
		summary.New += res.New
		fields := []zap.Field{
			zap.String("restaurant", g.RestaurantID),
			zap.Int("found", res.Found),
			zap.Int("new", res.New),
		}
		if rating != nil {
			fields = append(fields, zap.Float64("rating", *rating))
		}
		p.logger.Debug("restaurant imported", fields...)
	}

	return summary, nil
}

// ImportRestaurants loads a restaurant catalog from a file or URL and
// upserts every entry by its external id. It returns the row ids in catalog
// order.
func (p *Pipeline) ImportRestaurants(ctx context.Context, src string) ([]int64, error) {
	data, err := ingest.ReadSource(ctx, src, p.fetcher)
	if err != nil {
		return nil, err
	}

	restaurants, err := ingest.DecodeCatalog(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}

	ids := make([]int64, 0, len(restaurants))
	for _, r := range restaurants {
		id, err := p.store.UpsertRestaurant(ctx, r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
		p.logger.Debug("restaurant upserted",
			zap.String("external_id", r.ExternalID),
			zap.Int64("id", id))
	}
	return ids, nil
}

// Restaurant returns one stored restaurant
func (p *Pipeline) Restaurant(ctx context.Context, id int64) (*model.Restaurant, error) {
	return p.store.Restaurant(ctx, id)
}

// Reviews returns a page of one restaurant's reviews, newest first
func (p *Pipeline) Reviews(ctx context.Context, restaurantID int64, offset, limit int) ([]model.Review, error) {
	if _, err := p.store.Restaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	return p.store.Reviews(ctx, restaurantID, offset, limit)
}

// Review returns one stored review
func (p *Pipeline) Review(ctx context.Context, id int64) (*model.Review, error) {
	return p.store.Review(ctx, id)
}

// Stats returns global review statistics
func (p *Pipeline) Stats(ctx context.Context) (*model.Stats, error) {
	return p.store.Stats(ctx)
}

// RestaurantStats returns rating statistics for one restaurant
func (p *Pipeline) RestaurantStats(ctx context.Context, restaurantID int64) (*model.RestaurantStats, error) {
	return p.store.RestaurantStats(ctx, restaurantID)
}
