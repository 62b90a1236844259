package service

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/duetable-api/internal/models"
)

// DefaultPageSize is the due table page size.
const DefaultPageSize = 10

const (
	weekWindow  = 7 * 24 * time.Hour
	monthWindow = 30 * 24 * time.Hour
)

// FilterAndSort applies search, course and due-bucket filters in that order,
// then a stable sort.
func FilterAndSort(list []models.CombinedAssignment, courses []models.Course, filter models.ViewFilter, order models.ViewSort, now time.Time) []models.CombinedAssignment {
	codes := courseCodes(courses)
	result := make([]models.CombinedAssignment, 0, len(list))

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	courseID := models.NormalizeID(filter.CourseID)

	for _, a := range list {
		if search != "" {
			name := strings.ToLower(a.Name)
			code := strings.ToLower(codes[models.NormalizeID(a.CourseID)])
			if !strings.Contains(name, search) && !strings.Contains(code, search) {
				continue
			}
		}
		if courseID != "" && models.NormalizeID(a.CourseID) != courseID {
			continue
		}
		if !inDueBucket(a, filter.DueBucket, now) {
			continue
		}
		result = append(result, a)
	}

	if order.Key != "" {
		less := comparator(order, codes)
		sort.SliceStable(result, func(i, j int) bool { return less(result[i], result[j]) })
	}
	return result
}

// BuildView filters, sorts and windows the list into one page.
func BuildView(list []models.CombinedAssignment, courses []models.Course, query models.ViewQuery, pageSize int, now time.Time) models.View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := query.Page
	if page < 1 {
		page = 1
	}

	filtered := FilterAndSort(list, courses, query.ViewFilter, query.ViewSort, now)
	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	items := []models.CombinedAssignment{}
	start := (page - 1) * pageSize
	if start < total {
		end := start + pageSize
		if end > total {
			end = total
		}
		items = filtered[start:end]
	}

	return models.View{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}

func inDueBucket(a models.CombinedAssignment, bucket string, now time.Time) bool {
	switch bucket {
	case models.DueBucketNone:
		return true
	case models.DueBucketOverdue:
		return a.Missing
	case models.DueBucketNoDate:
		return a.DueAt == nil
	case models.DueBucketToday:
		if a.DueAt == nil {
			return false
		}
		due := a.DueAt.In(now.Location())
		dy, dm, dd := due.Date()
		ny, nm, nd := now.Date()
		return dy == ny && dm == nm && dd == nd
	case models.DueBucketWeek:
		return a.DueAt != nil && !a.DueAt.Before(now) && !a.DueAt.After(now.Add(weekWindow))
	case models.DueBucketMonth:
		return a.DueAt != nil && !a.DueAt.Before(now) && !a.DueAt.After(now.Add(monthWindow))
	default:
		return true
	}
}

func comparator(order models.ViewSort, codes map[string]string) func(a, b models.CombinedAssignment) bool {
	desc := order.Order == models.SortDesc
	directed := func(cmp int) bool {
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}

	switch order.Key {
	case models.SortByName:
		return func(a, b models.CombinedAssignment) bool {
			return directed(compareText(a.Name, b.Name))
		}
	case models.SortByDueDate:
		return func(a, b models.CombinedAssignment) bool {
			switch {
			case a.DueAt == nil && b.DueAt == nil:
				return false
			case a.DueAt == nil:
				return false
			case b.DueAt == nil:
				return true
			}
			return directed(a.DueAt.Compare(*b.DueAt))
		}
	case models.SortByPoints:
		return func(a, b models.CombinedAssignment) bool {
			return directed(compareFloat(a.PointsPossible, b.PointsPossible))
		}
	case models.SortByCourse:
		return func(a, b models.CombinedAssignment) bool {
			return directed(compareText(courseLabel(a, codes), courseLabel(b, codes)))
		}
	case models.SortByGrade:
		return func(a, b models.CombinedAssignment) bool {
			return directed(compareGrade(a.Grade, b.Grade))
		}
	default:
		return func(models.CombinedAssignment, models.CombinedAssignment) bool { return false }
	}
}

func courseCodes(courses []models.Course) map[string]string {
	codes := make(map[string]string, len(courses))
	for _, course := range courses {
		codes[models.NormalizeID(course.ID)] = course.CourseCode
	}
	return codes
}

func courseLabel(a models.CombinedAssignment, codes map[string]string) string {
	if code := codes[models.NormalizeID(a.CourseID)]; code != "" {
		return code
	}
	return a.CourseID
}

func compareText(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareGrade orders numeric grades numerically and everything else as text.
func compareGrade(a, b *string) int {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	af, aErr := strconv.ParseFloat(strings.TrimSuffix(av, "%"), 64)
	bf, bErr := strconv.ParseFloat(strings.TrimSuffix(bv, "%"), 64)
	if aErr == nil && bErr == nil {
		return compareFloat(af, bf)
	}
	return compareText(av, bv)
}

// ViewState remembers the last table query. Changing any filter sends the
// caller back to page 1.
type ViewState struct {
	mu      sync.Mutex
	current models.ViewQuery
}

// NewViewState starts on page 1 sorted by due date.
func NewViewState() *ViewState {
	return &ViewState{current: models.ViewQuery{
		ViewSort: models.ViewSort{Key: models.SortByDueDate, Order: models.SortAsc},
		Page:     1,
	}}
}

// Apply merges next into the remembered query and returns the effective one.
// Empty filter fields keep their remembered value unless marked as sent. A
// zero page keeps the current page; a zero sort keeps the current sort.
func (s *ViewState) Apply(next models.ViewQuery) models.ViewQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	effective := next
	effective.ViewFilter = mergeFilter(s.current.ViewFilter, next.ViewFilter, next.Sent)
	effective.Sent = models.FilterFields{}
	if effective.ViewSort.Key == "" {
		effective.ViewSort = s.current.ViewSort
	} else if effective.ViewSort.Order == "" {
		effective.ViewSort.Order = models.SortAsc
	}
	switch {
	case effective.ViewFilter != s.current.ViewFilter:
		effective.Page = 1
	case effective.Page < 1:
		effective.Page = s.current.Page
	}
	if effective.Page < 1 {
		effective.Page = 1
	}
	s.current = effective
	return effective
}

func mergeFilter(current, next models.ViewFilter, sent models.FilterFields) models.ViewFilter {
	merged := current
	if next.Search != "" || sent.Search {
		merged.Search = next.Search
	}
	if next.CourseID != "" || sent.CourseID {
		merged.CourseID = next.CourseID
	}
	if next.DueBucket != "" || sent.DueBucket {
		merged.DueBucket = next.DueBucket
	}
	return merged
}

// Current returns the remembered query.
func (s *ViewState) Current() models.ViewQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset returns to the initial query.
func (s *ViewState) Reset() {
	fresh := NewViewState()
	s.mu.Lock()
	s.current = fresh.current
	s.mu.Unlock()
}
