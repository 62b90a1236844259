package service

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
	"github.com/noah-isme/duetable-api/pkg/lmsproxy"
)

type assignmentClient interface {
	FetchAllAssignments(ctx context.Context, req lmsproxy.SummaryRequest) ([]models.AssignmentSummary, error)
	FetchAssignmentDetail(ctx context.Context, req lmsproxy.DetailRequest) (*models.AssignmentDetail, error)
}

// ProgressFunc observes detail fetch progress. completed rises by one per
// settled request; total is fixed for the whole run.
type ProgressFunc func(completed, total int)

// AssignmentFetcherConfig tunes batching.
type AssignmentFetcherConfig struct {
	BatchSize  int
	BatchDelay time.Duration
}

// AssignmentFetcher issues the summary request and the batched detail requests.
type AssignmentFetcher struct {
	client assignmentClient
	logger *zap.Logger
	cfg    AssignmentFetcherConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAssignmentFetcher constructs a fetcher with batch size 5 and a 100ms
// pause between batches unless configured otherwise.
func NewAssignmentFetcher(client assignmentClient, logger *zap.Logger, cfg AssignmentFetcherConfig) *AssignmentFetcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentFetcher{client: client, logger: logger, cfg: cfg, sleep: sleepContext}
}

// FetchSummaries issues a single summary request. Failures come back as a
// FETCH_ERROR with a readable message; nothing is retried.
func (f *AssignmentFetcher) FetchSummaries(ctx context.Context, creds models.Credentials, courseIDs []string, term string) ([]models.AssignmentSummary, error) {
	summaries, err := f.client.FetchAllAssignments(ctx, lmsproxy.SummaryRequest{
		APIKey:    creds.APIKey,
		BaseURL:   creds.BaseURL,
		CourseIDs: courseIDs,
		Email:     creds.Email,
		Term:      term,
	})
	if err != nil {
		f.logger.Error("fetch assignment summaries failed", zap.String("term", term), zap.Error(err))
		appErr := appErrors.FromError(err)
		if appErr.Code != appErrors.ErrFetch.Code {
			return nil, appErrors.FetchError(err.Error(), err)
		}
		return nil, appErr
	}
	if summaries == nil {
		summaries = []models.AssignmentSummary{}
	}
	return summaries, nil
}

// FetchDetails fetches one detail per summary. Requests run concurrently
// within a batch; the next batch starts only after every request of the
// current one settled. Failed items are logged and left out. The returned
// details follow summary order.
func (f *AssignmentFetcher) FetchDetails(ctx context.Context, creds models.Credentials, summaries []models.AssignmentSummary, onProgress ProgressFunc) []models.AssignmentDetail {
	total := len(summaries)
	details := make([]models.AssignmentDetail, 0, total)
	if total == 0 {
		return details
	}

	var (
		progressMu sync.Mutex
		completed  int
	)
	settle := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		completed++
		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	for start := 0; start < total; start += f.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			f.logger.Warn("detail fetch cancelled", zap.Int("completed", start), zap.Int("total", total), zap.Error(err))
			break
		}
		end := start + f.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := summaries[start:end]
		results := make([]*models.AssignmentDetail, len(batch))

		var wg conc.WaitGroup
		for i := range batch {
			i := i
			summary := batch[i]
			wg.Go(func() {
				defer settle()
				detail, err := f.client.FetchAssignmentDetail(ctx, lmsproxy.DetailRequest{
					APIKey:       creds.APIKey,
					BaseURL:      creds.BaseURL,
					CourseID:     summary.CourseID.String(),
					AssignmentID: summary.ID.String(),
				})
				if err != nil {
					f.logger.Warn("fetch assignment detail failed",
						zap.String("assignment_id", summary.ID.String()),
						zap.String("course_id", summary.CourseID.String()),
						zap.Error(err))
					return
				}
				if detail == nil {
					return
				}
				results[i] = detail
			})
		}
		if recovered := wg.WaitAndRecover(); recovered != nil {
			f.logger.Error("detail batch panicked",
				zap.Int("batch_start", start),
				zap.Error(recovered.AsError()))
		}

		for _, detail := range results {
			if detail != nil {
				details = append(details, *detail)
			}
		}

		if end < total && f.cfg.BatchDelay > 0 {
			if err := f.sleep(ctx, f.cfg.BatchDelay); err != nil {
				f.logger.Warn("detail fetch cancelled between batches", zap.Int("completed", end), zap.Int("total", total), zap.Error(err))
				break
			}
		}
	}

	return details
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
