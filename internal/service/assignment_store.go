package service

import (
	"sync"

	"github.com/noah-isme/duetable-api/internal/models"
)

// AssignmentStore is the single shared state behind the dashboard and the due
// table. Every exported mutator is one atomic transition. The combined list is
// never edited directly: it is recomputed from summaries, details and the
// finished overrides after every transition that touches them.
//
// Fetch results carry the generation returned by BeginFetch; results from a
// superseded generation are dropped.
type AssignmentStore struct {
	mu sync.RWMutex

	courses        []models.Course
	coursesFetched bool
	coursesLoading bool
	coursesErr     string

	summaries []models.AssignmentSummary
	details   []models.AssignmentDetail
	overrides FinishedOverrides
	combined  []models.CombinedAssignment

	generation      uint64
	fetchTerm       string
	isLoading       bool
	detailsLoading  bool
	hasFetched      bool
	lastFetchedTerm string
	fetchErr        string
	progress        models.FetchProgress
}

// NewAssignmentStore returns an empty store.
func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{overrides: FinishedOverrides{}, combined: []models.CombinedAssignment{}}
}

// BeginCourses marks the course list as loading.
func (s *AssignmentStore) BeginCourses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coursesLoading = true
	s.coursesErr = ""
}

// SetCourses replaces the course list wholesale.
func (s *AssignmentStore) SetCourses(courses []models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = append([]models.Course(nil), courses...)
	s.coursesFetched = true
	s.coursesLoading = false
	s.coursesErr = ""
}

// FailCourses records a course fetch failure.
func (s *AssignmentStore) FailCourses(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coursesLoading = false
	s.coursesErr = message
}

// Courses returns every known course and whether they were fetched.
func (s *AssignmentStore) Courses() ([]models.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Course(nil), s.courses...), s.coursesFetched
}

// CoursesError returns the last course fetch failure.
func (s *AssignmentStore) CoursesError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coursesErr
}

// BeginFetch starts a new assignment fetch for term and returns its generation.
// Switching terms clears the previous term's assignments.
func (s *AssignmentStore) BeginFetch(term string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.lastFetchedTerm != "" && s.lastFetchedTerm != term {
		s.clearAssignmentsLocked()
	}
	s.fetchTerm = term
	s.isLoading = true
	s.detailsLoading = false
	s.fetchErr = ""
	s.progress = models.FetchProgress{}
	return s.generation
}

// CommitSummaries stores the summaries of generation gen. The details of the
// previous fetch are dropped since they belong to a replaced summary set.
func (s *AssignmentStore) CommitSummaries(gen uint64, term string, summaries []models.AssignmentSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.summaries = append([]models.AssignmentSummary(nil), summaries...)
	s.details = nil
	s.lastFetchedTerm = term
	s.hasFetched = true
	s.isLoading = false
	s.detailsLoading = len(summaries) > 0
	s.fetchErr = ""
	s.progress = models.FetchProgress{Completed: 0, Total: len(summaries)}
	s.recomputeLocked()
	return true
}

// FailFetch records a summary fetch failure for generation gen. The assignment
// collection is left empty and loading flags cleared.
func (s *AssignmentStore) FailFetch(gen uint64, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.summaries = nil
	s.details = nil
	s.isLoading = false
	s.detailsLoading = false
	s.fetchErr = message
	s.recomputeLocked()
	return true
}

// ReportProgress updates detail progress for generation gen.
func (s *AssignmentStore) ReportProgress(gen uint64, completed, total int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.progress = models.FetchProgress{Completed: completed, Total: total}
	return true
}

// CommitDetails stores the details of generation gen and recomputes the combined list.
func (s *AssignmentStore) CommitDetails(gen uint64, details []models.AssignmentDetail) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.details = append([]models.AssignmentDetail(nil), details...)
	s.detailsLoading = false
	s.recomputeLocked()
	return true
}

// Generation returns the newest fetch generation.
func (s *AssignmentStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// NeedsFetch reports whether term has not been fetched yet and nothing is loading.
func (s *AssignmentStore) NeedsFetch(term string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isLoading || s.detailsLoading {
		return false
	}
	return !s.hasFetched || s.lastFetchedTerm != term
}

// ToggleOverride flips the finished flag of the combined assignment id in one
// transition. It returns the assignment as it was before the flip and the
// previous override value.
func (s *AssignmentStore) ToggleOverride(id string) (models.CombinedAssignment, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeID(id)
	for _, a := range s.combined {
		if models.NormalizeID(a.ID) != key {
			continue
		}
		prev := s.overrides[key]
		s.overrides[key] = !a.IfFinished
		s.recomputeLocked()
		return a, prev, true
	}
	return models.CombinedAssignment{}, false, false
}

// RevertOverride restores prev for id if the flag still holds wrote. A newer
// toggle that already replaced wrote is left alone.
func (s *AssignmentStore) RevertOverride(id string, wrote, prev bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeID(id)
	if s.overrides[key] != wrote {
		return false
	}
	s.overrides[key] = prev
	s.recomputeLocked()
	return true
}

// LoadOverrides seeds flags from durable storage without replacing flags set
// during this process.
func (s *AssignmentStore) LoadOverrides(overrides FinishedOverrides) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, finished := range overrides {
		key := models.NormalizeID(id)
		if _, exists := s.overrides[key]; !exists {
			s.overrides[key] = finished
		}
	}
	s.recomputeLocked()
}

// Overrides returns a copy of the finished flags.
func (s *AssignmentStore) Overrides() FinishedOverrides {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overrides.Clone()
}

// Combined returns a copy of the combined list.
func (s *AssignmentStore) Combined() []models.CombinedAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CombinedAssignment(nil), s.combined...)
}

// FindCombined looks up one combined assignment by id.
func (s *AssignmentStore) FindCombined(id string) (models.CombinedAssignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.NormalizeID(id)
	for _, a := range s.combined {
		if models.NormalizeID(a.ID) == key {
			return a, true
		}
	}
	return models.CombinedAssignment{}, false
}

// Status snapshots loading state.
func (s *AssignmentStore) Status() models.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SyncStatus{
		Term:            s.fetchTerm,
		Generation:      s.generation,
		IsLoading:       s.isLoading,
		DetailsLoading:  s.detailsLoading,
		HasFetched:      s.hasFetched,
		LastFetchedTerm: s.lastFetchedTerm,
		Error:           s.fetchErr,
		Progress:        s.progress,
		SummaryCount:    len(s.summaries),
		DetailCount:     len(s.details),
		CombinedCount:   len(s.combined),
	}
}

// ClearAssignments drops assignment data and invalidates in-flight fetches.
func (s *AssignmentStore) ClearAssignments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.clearAssignmentsLocked()
	s.isLoading = false
	s.detailsLoading = false
}

// Reset wipes everything, overrides included. Used on logout.
func (s *AssignmentStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.clearAssignmentsLocked()
	s.isLoading = false
	s.detailsLoading = false
	s.courses = nil
	s.coursesFetched = false
	s.coursesLoading = false
	s.coursesErr = ""
	s.overrides = FinishedOverrides{}
	s.recomputeLocked()
}

func (s *AssignmentStore) clearAssignmentsLocked() {
	s.summaries = nil
	s.details = nil
	s.hasFetched = false
	s.lastFetchedTerm = ""
	s.fetchTerm = ""
	s.fetchErr = ""
	s.progress = models.FetchProgress{}
	s.recomputeLocked()
}

func (s *AssignmentStore) recomputeLocked() {
	s.combined = MergeAssignments(s.summaries, s.details, s.overrides)
}
