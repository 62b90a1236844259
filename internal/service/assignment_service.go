package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

type courseClient interface {
	FetchCourses(ctx context.Context, apiKey, baseURL string) ([]models.Course, error)
}

// OverrideLoader reads persisted finished flags.
type OverrideLoader interface {
	ListByUser(ctx context.Context, term, email string) ([]models.FinishedOverride, error)
}

// SyncOptions controls one assignment sync.
type SyncOptions struct {
	// Force refetches even when the selected term is already loaded.
	Force bool
	// Wait blocks until details are fetched instead of loading them in the background.
	Wait bool
}

// AssignmentServiceConfig tunes the projections.
type AssignmentServiceConfig struct {
	PageSize       int
	CourseCacheTTL time.Duration
}

// AssignmentService drives fetching for the session's selected term and
// serves the dashboard and table projections from the shared store.
type AssignmentService struct {
	store     *AssignmentStore
	session   sessionReader
	courses   courseClient
	fetcher   *AssignmentFetcher
	cache     *CacheService
	overrides OverrideLoader
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       AssignmentServiceConfig
	views     *ViewState
	now       func() time.Time

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAssignmentService constructs the service. cache, overrides and metrics may be nil.
func NewAssignmentService(store *AssignmentStore, session sessionReader, courses courseClient, fetcher *AssignmentFetcher, cache *CacheService, overrides OverrideLoader, metrics *MetricsService, logger *zap.Logger, cfg AssignmentServiceConfig) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	bg, cancel := context.WithCancel(context.Background())
	return &AssignmentService{
		store:     store,
		session:   session,
		courses:   courses,
		fetcher:   fetcher,
		cache:     cache,
		overrides: overrides,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		views:     NewViewState(),
		now:       time.Now,
		bg:        bg,
		cancel:    cancel,
	}
}

// Close stops background detail fetches and waits for them.
func (s *AssignmentService) Close() {
	s.cancel()
	s.wg.Wait()
}

// Reset drops all fetched data, overrides and the remembered table query.
func (s *AssignmentService) Reset() {
	s.store.Reset()
	s.views.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.cache.Invalidate(ctx, CoursePattern())
}

// TermChanged drops the previous term's assignments and cancels its pending
// fetch results. The course list spans every term and is kept.
func (s *AssignmentService) TermChanged(term string) {
	s.store.ClearAssignments()
	s.views.Reset()
	s.logger.Debug("assignments cleared for term change", zap.String("term", term))
}

// Courses returns every course visible to the session, from memory, the
// cache or the backend in that order. refresh skips the first two.
func (s *AssignmentService) Courses(ctx context.Context, refresh bool) ([]models.Course, bool, error) {
	creds, ok := s.session.Current().Credentials()
	if !ok {
		return nil, false, appErrors.ErrNoSession
	}
	if !refresh {
		if courses, fetched := s.store.Courses(); fetched {
			return courses, true, nil
		}
	}

	key := CourseKey(creds.BaseURL, creds.APIKey)
	if refresh {
		_ = s.cache.Invalidate(ctx, key)
	} else {
		var cached []models.Course
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			s.store.SetCourses(cached)
			return cached, true, nil
		}
	}

	s.store.BeginCourses()
	courses, err := s.courses.FetchCourses(ctx, creds.APIKey, creds.BaseURL)
	if err != nil {
		appErr := appErrors.FromError(err)
		s.store.FailCourses(appErr.Message)
		s.logger.Error("fetch courses failed", zap.Error(err))
		return nil, false, appErr
	}
	s.store.SetCourses(courses)
	_ = s.cache.Set(ctx, key, courses, s.cfg.CourseCacheTTL)
	return courses, false, nil
}

// TermCourses returns the courses of the selected term.
func (s *AssignmentService) TermCourses(ctx context.Context) ([]models.Course, error) {
	all, _, err := s.Courses(ctx, false)
	if err != nil {
		return nil, err
	}
	return FilterBySemester(all, s.session.Current().SelectedSemester), nil
}

// Semesters lists selectable terms and those mentioned by known courses.
func (s *AssignmentService) Semesters(ctx context.Context) (models.SemesterOptions, error) {
	now := s.now()
	options := models.SemesterOptions{
		Selected:    s.session.Current().SelectedSemester,
		Current:     CurrentSemester(now),
		Terms:       GenerateSemesterTerms(now),
		FromCourses: []string{},
	}
	if _, ok := s.session.Current().Credentials(); !ok {
		return options, nil
	}
	courses, _, err := s.Courses(ctx, false)
	if err != nil {
		return options, err
	}
	options.FromCourses = UniqueSemestersFromCourses(courses)
	return options, nil
}

// Sync fetches assignments for the selected term unless they are loaded
// already. Summaries are fetched before Sync returns; details follow in the
// background unless opts.Wait is set.
func (s *AssignmentService) Sync(ctx context.Context, opts SyncOptions) (models.SyncStatus, error) {
	session := s.session.Current()
	creds, ok := session.Credentials()
	if !ok {
		return s.store.Status(), appErrors.ErrNoSession
	}
	term := session.SelectedSemester
	if !opts.Force && !s.store.NeedsFetch(term) {
		return s.store.Status(), nil
	}

	all, _, err := s.Courses(ctx, false)
	if err != nil {
		return s.store.Status(), err
	}
	courseIDs := models.CourseIDs(FilterBySemester(all, term))

	gen := s.store.BeginFetch(term)
	s.loadOverrides(ctx, term, creds.Email)

	var summaries []models.AssignmentSummary
	if len(courseIDs) > 0 {
		summaries, err = s.fetcher.FetchSummaries(ctx, creds, courseIDs, term)
		if err != nil {
			msg := appErrors.FromError(err).Message
			if s.store.FailFetch(gen, msg) {
				s.metrics.RecordSync(OutcomeFailed)
			} else {
				s.metrics.RecordSync(OutcomeStale)
			}
			return s.store.Status(), err
		}
	}
	if !s.store.CommitSummaries(gen, term, summaries) {
		s.metrics.RecordSync(OutcomeStale)
		s.logger.Info("discarding stale summaries", zap.String("term", term), zap.Uint64("generation", gen))
		return s.store.Status(), nil
	}
	s.logger.Info("assignment summaries loaded", zap.String("term", term), zap.Int("count", len(summaries)), zap.Uint64("generation", gen))

	if len(summaries) == 0 {
		s.store.CommitDetails(gen, nil)
		s.metrics.RecordSync(OutcomeOK)
		return s.store.Status(), nil
	}

	if opts.Wait {
		s.fetchDetails(ctx, gen, creds, summaries)
		return s.store.Status(), nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetchDetails(s.bg, gen, creds, summaries)
	}()
	return s.store.Status(), nil
}

func (s *AssignmentService) fetchDetails(ctx context.Context, gen uint64, creds models.Credentials, summaries []models.AssignmentSummary) {
	details := s.fetcher.FetchDetails(ctx, creds, summaries, func(completed, total int) {
		if s.store.ReportProgress(gen, completed, total) {
			s.metrics.SetDetailProgress(completed, total)
		}
	})
	if !s.store.CommitDetails(gen, details) {
		s.metrics.RecordSync(OutcomeStale)
		s.logger.Info("discarding stale details", zap.Uint64("generation", gen), zap.Int("count", len(details)))
		return
	}
	s.metrics.RecordSync(OutcomeOK)
	s.logger.Info("assignment details loaded", zap.Uint64("generation", gen), zap.Int("requested", len(summaries)), zap.Int("received", len(details)))
}

func (s *AssignmentService) loadOverrides(ctx context.Context, term, email string) {
	if s.overrides == nil {
		return
	}
	stored, err := s.overrides.ListByUser(ctx, term, email)
	if err != nil {
		s.logger.Warn("load finished overrides failed", zap.String("term", term), zap.Error(err))
		return
	}
	overrides := make(FinishedOverrides, len(stored))
	for _, o := range stored {
		overrides[o.AssignmentID] = o.Finished
	}
	s.store.LoadOverrides(overrides)
}

// Status reports the store's loading state.
func (s *AssignmentService) Status() models.SyncStatus {
	return s.store.Status()
}

// Dashboard assembles the term's courses and statistics.
func (s *AssignmentService) Dashboard(ctx context.Context) (models.Dashboard, error) {
	courses, err := s.TermCourses(ctx)
	if err != nil {
		return models.Dashboard{}, err
	}
	return models.Dashboard{
		Term:    s.session.Current().SelectedSemester,
		Courses: courses,
		Stats:   ComputeStats(s.store.Combined(), s.now()),
		Status:  s.store.Status(),
	}, nil
}

// Table returns one page of the due table. The query is merged with the
// last one so omitted fields keep their previous values.
func (s *AssignmentService) Table(ctx context.Context, query models.ViewQuery) (models.View, models.ViewQuery, error) {
	courses, _, err := s.Courses(ctx, false)
	if err != nil {
		return models.View{}, query, err
	}
	effective := s.views.Apply(query)
	view := BuildView(s.store.Combined(), courses, effective, s.cfg.PageSize, s.now())
	return view, effective, nil
}

// Filtered returns the whole filtered and sorted list for exports.
func (s *AssignmentService) Filtered(ctx context.Context, query models.ViewQuery) ([]models.CombinedAssignment, []models.Course, error) {
	courses, _, err := s.Courses(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	if query.ViewSort.Key == "" {
		query.ViewSort = s.views.Current().ViewSort
	}
	return FilterAndSort(s.store.Combined(), courses, query.ViewFilter, query.ViewSort, s.now()), courses, nil
}
