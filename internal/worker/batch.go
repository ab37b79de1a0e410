package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/restomaps/internal/annotate"
	"github.com/ppiankov/restomaps/internal/model"
)

// Annotator produces the annotation of one review
type Annotator interface {
	Process(text string, rating *int) annotate.Result
}

// AnnotationJob annotates a single stored review
type AnnotationJob struct {
	Review    model.Review
	Annotator Annotator
}

// Execute runs the annotator. Cancellation is checked before the work starts;
// annotating one review is CPU-bound and not interruptible.
func (j *AnnotationJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &AnnotationResult{ReviewID: j.Review.ID, Error: err}
	}
	res := j.Annotator.Process(j.Review.Text, j.Review.Rating)
	return &AnnotationResult{ReviewID: j.Review.ID, Result: res}
}

// AnnotationResult is the outcome of one AnnotationJob
type AnnotationResult struct {
	ReviewID int64
	Result   annotate.Result
	Error    error
}

// GetError returns the error from the annotation result
func (r *AnnotationResult) GetError() error {
	return r.Error
}

// Annotation converts a successful result into its store write-back
func (r *AnnotationResult) Annotation() model.Annotation {
	tags := make([]string, len(r.Result.Tags))
	for i, t := range r.Result.Tags {
		tags[i] = string(t)
	}
	return model.Annotation{
		ReviewID:       r.ReviewID,
		Verdict:        string(r.Result.Verdict),
		Tags:           tags,
		SentimentScore: r.Result.SentimentScore,
	}
}

// BatchProcessor annotates reviews concurrently
type BatchProcessor struct {
	annotator   Annotator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(annotator Annotator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		annotator:   annotator,
		concurrency: concurrency,
	}
}

// ProcessReviews annotates every review and returns one result per review,
// ordered by review id. A panic while annotating a review becomes that
// review's error and does not affect the others.
func (b *BatchProcessor) ProcessReviews(ctx context.Context, reviews []model.Review) []*AnnotationResult {
	if len(reviews) == 0 {
		return []*AnnotationResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := make(map[int64]bool, len(reviews))
	refused := false
	for _, r := range reviews {
		if !pool.Submit(&AnnotationJob{Review: r, Annotator: b.annotator}) {
			refused = true
			break
		}
		submitted[r.ID] = true
	}

	// A refused submit means ctx is done; queued jobs are abandoned.
	var results []Result
	if refused {
		results = pool.Shutdown()
	} else {
		results = pool.Wait()
	}

	out := make([]*AnnotationResult, 0, len(reviews))
	for _, result := range results {
		switch res := result.(type) {
		case *AnnotationResult:
			out = append(out, res)
		case *PanicResult:
			job, ok := res.Job.(*AnnotationJob)
			if !ok {
				continue
			}
			out = append(out, &AnnotationResult{
				ReviewID: job.Review.ID,
				Error:    fmt.Errorf("annotate review %d: %w", job.Review.ID, res.Err),
			})
		}
	}

	// Reviews that never reached a worker are reported as cancelled.
	seen := make(map[int64]bool, len(out))
	for _, r := range out {
		seen[r.ReviewID] = true
	}
	for _, r := range reviews {
		if seen[r.ID] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errors.New("not processed")
		}
		if !submitted[r.ID] {
			err = fmt.Errorf("review %d not submitted: %w", r.ID, err)
		}
		out = append(out, &AnnotationResult{ReviewID: r.ID, Error: err})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out
}
