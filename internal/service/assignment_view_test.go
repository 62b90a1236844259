package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/duetable-api/internal/models"
)

var viewNow = time.Date(2025, time.October, 15, 9, 0, 0, 0, time.UTC)

func viewAt(d time.Duration) *time.Time {
	t := viewNow.Add(d)
	return &t
}

func strPtr(s string) *string { return &s }

func viewCourses() []models.Course {
	return []models.Course{
		{ID: "10", Name: "Biology (Fall 2025)", CourseCode: "BIO200"},
		{ID: "20", Name: "Algebra (Fall 2025)", CourseCode: "MATH101"},
	}
}

func viewList() []models.CombinedAssignment {
	return []models.CombinedAssignment{
		{ID: "1", Name: "Lab Report", CourseID: "10", DueAt: viewAt(3 * time.Hour), PointsPossible: 20, Grade: strPtr("85")},
		{ID: "2", Name: "Problem Set", CourseID: "20", DueAt: viewAt(3 * 24 * time.Hour), PointsPossible: 10, Grade: strPtr("9")},
		{ID: "3", Name: "Reading", CourseID: "10", PointsPossible: 5},
		{ID: "4", Name: "Midterm", CourseID: "20", DueAt: viewAt(20 * 24 * time.Hour), PointsPossible: 100, Grade: strPtr("A")},
		{ID: "5", Name: "Essay", CourseID: "10", DueAt: viewAt(-48 * time.Hour), Missing: true, PointsPossible: 50},
	}
}

func ids(list []models.CombinedAssignment) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestFilterAndSortSearch(t *testing.T) {
	got := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{Search: "REPORT"}, models.ViewSort{}, viewNow)
	assert.Equal(t, []string{"1"}, ids(got))

	got = FilterAndSort(viewList(), viewCourses(), models.ViewFilter{Search: "math"}, models.ViewSort{}, viewNow)
	assert.Equal(t, []string{"2", "4"}, ids(got))
}

func TestFilterAndSortCourse(t *testing.T) {
	got := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{CourseID: "10"}, models.ViewSort{}, viewNow)
	assert.Equal(t, []string{"1", "3", "5"}, ids(got))
}

func TestFilterAndSortDueBuckets(t *testing.T) {
	cases := map[string][]string{
		models.DueBucketOverdue: {"5"},
		models.DueBucketToday:   {"1"},
		models.DueBucketWeek:    {"1", "2"},
		models.DueBucketMonth:   {"1", "2", "4"},
		models.DueBucketNoDate:  {"3"},
		models.DueBucketNone:    {"1", "2", "3", "4", "5"},
	}
	for bucket, want := range cases {
		got := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{DueBucket: bucket}, models.ViewSort{}, viewNow)
		assert.Equal(t, want, ids(got), "bucket %q", bucket)
	}
}

func TestFilterAndSortCombinesFilters(t *testing.T) {
	filter := models.ViewFilter{Search: "e", CourseID: "10", DueBucket: models.DueBucketMonth}
	got := FilterAndSort(viewList(), viewCourses(), filter, models.ViewSort{}, viewNow)
	assert.Equal(t, []string{"1"}, ids(got))
}

func TestFilterAndSortByDueDateNilsLast(t *testing.T) {
	asc := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByDueDate, Order: models.SortAsc}, viewNow)
	assert.Equal(t, []string{"5", "1", "2", "4", "3"}, ids(asc))

	desc := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByDueDate, Order: models.SortDesc}, viewNow)
	assert.Equal(t, []string{"4", "2", "1", "5", "3"}, ids(desc))
}

func TestFilterAndSortKeys(t *testing.T) {
	byName := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByName, Order: models.SortAsc}, viewNow)
	assert.Equal(t, []string{"5", "1", "4", "2", "3"}, ids(byName))

	byPoints := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByPoints, Order: models.SortDesc}, viewNow)
	assert.Equal(t, []string{"4", "5", "1", "2", "3"}, ids(byPoints))

	byCourse := FilterAndSort(viewList(), viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByCourse, Order: models.SortAsc}, viewNow)
	assert.Equal(t, []string{"1", "3", "5", "2", "4"}, ids(byCourse))
}

func TestFilterAndSortByGrade(t *testing.T) {
	list := []models.CombinedAssignment{
		{ID: "a", Grade: strPtr("85")},
		{ID: "b", Grade: strPtr("9")},
		{ID: "c", Grade: strPtr("100")},
	}
	got := FilterAndSort(list, nil, models.ViewFilter{}, models.ViewSort{Key: models.SortByGrade, Order: models.SortAsc}, viewNow)
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
}

func TestFilterAndSortDoesNotMutateInput(t *testing.T) {
	list := viewList()
	FilterAndSort(list, viewCourses(), models.ViewFilter{}, models.ViewSort{Key: models.SortByName}, viewNow)
	assert.Equal(t, viewList(), list)
}

func pagedList(n int) []models.CombinedAssignment {
	list := make([]models.CombinedAssignment, n)
	for i := range list {
		list[i] = models.CombinedAssignment{
			ID:             fmt.Sprintf("%d", i+1),
			Name:           fmt.Sprintf("Task %02d", n-i),
			CourseID:       []string{"10", "20"}[i%2],
			DueAt:          []*time.Time{viewAt(time.Duration(i) * time.Hour), nil}[i%3/2],
			PointsPossible: float64(i % 4),
		}
	}
	return list
}

func TestBuildViewPagesCoverList(t *testing.T) {
	list := pagedList(37)
	queries := []models.ViewQuery{
		{},
		{ViewSort: models.ViewSort{Key: models.SortByName, Order: models.SortAsc}},
		{ViewSort: models.ViewSort{Key: models.SortByDueDate, Order: models.SortDesc}},
		{ViewSort: models.ViewSort{Key: models.SortByPoints, Order: models.SortAsc}},
		{ViewFilter: models.ViewFilter{CourseID: "20"}, ViewSort: models.ViewSort{Key: models.SortByCourse}},
		{ViewFilter: models.ViewFilter{DueBucket: models.DueBucketNoDate}},
	}

	for _, query := range queries {
		expected := FilterAndSort(list, viewCourses(), query.ViewFilter, query.ViewSort, viewNow)
		first := BuildView(list, viewCourses(), query, DefaultPageSize, viewNow)
		require.Equal(t, len(expected), first.TotalCount)

		var collected []models.CombinedAssignment
		for page := 1; page <= first.TotalPages; page++ {
			query.Page = page
			view := BuildView(list, viewCourses(), query, DefaultPageSize, viewNow)
			assert.LessOrEqual(t, len(view.Items), DefaultPageSize)
			collected = append(collected, view.Items...)
		}
		if len(expected) == 0 {
			assert.Empty(t, collected)
			continue
		}
		assert.Equal(t, expected, collected)
	}
}

func TestBuildViewBounds(t *testing.T) {
	list := pagedList(25)

	view := BuildView(list, nil, models.ViewQuery{Page: 0}, 0, viewNow)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, DefaultPageSize, view.PageSize)
	assert.Equal(t, 3, view.TotalPages)
	assert.Len(t, view.Items, 10)

	last := BuildView(list, nil, models.ViewQuery{Page: 3}, 10, viewNow)
	assert.Len(t, last.Items, 5)

	beyond := BuildView(list, nil, models.ViewQuery{Page: 9}, 10, viewNow)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 25, beyond.TotalCount)

	empty := BuildView(nil, nil, models.ViewQuery{}, 10, viewNow)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Empty(t, empty.Items)
}

func TestViewStateResetsPageOnFilterChange(t *testing.T) {
	state := NewViewState()
	assert.Equal(t, models.SortByDueDate, state.Current().Key)

	got := state.Apply(models.ViewQuery{Page: 3})
	assert.Equal(t, 3, got.Page)

	got = state.Apply(models.ViewQuery{})
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, models.SortByDueDate, got.Key)

	got = state.Apply(models.ViewQuery{ViewFilter: models.ViewFilter{Search: "lab"}, Page: 3})
	assert.Equal(t, 1, got.Page)

	got = state.Apply(models.ViewQuery{ViewFilter: models.ViewFilter{Search: "lab"}, ViewSort: models.ViewSort{Key: models.SortByName}, Page: 2})
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, models.SortAsc, got.Order)

	state.Reset()
	assert.Equal(t, 1, state.Current().Page)
	assert.Empty(t, state.Current().Search)
}

func TestViewStateKeepsFiltersAcrossPages(t *testing.T) {
	state := NewViewState()

	got := state.Apply(models.ViewQuery{ViewFilter: models.ViewFilter{Search: "hw", DueBucket: models.DueBucketWeek}})
	assert.Equal(t, 1, got.Page)

	got = state.Apply(models.ViewQuery{Page: 2})
	assert.Equal(t, "hw", got.Search)
	assert.Equal(t, models.DueBucketWeek, got.DueBucket)
	assert.Equal(t, 2, got.Page)

	got = state.Apply(models.ViewQuery{ViewFilter: models.ViewFilter{Search: "hw"}, Page: 2})
	assert.Equal(t, 2, got.Page, "resending the same filter is not a change")

	got = state.Apply(models.ViewQuery{Sent: models.FilterFields{Search: true}})
	assert.Empty(t, got.Search)
	assert.Equal(t, models.DueBucketWeek, got.DueBucket)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, models.FilterFields{}, state.Current().Sent)
}
