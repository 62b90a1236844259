package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

type fakeCourseSrv struct {
	all     []models.Course
	term    []models.Course
	hit     bool
	refresh bool
	err     error
}

func (f *fakeCourseSrv) Courses(_ context.Context, refresh bool) ([]models.Course, bool, error) {
	f.refresh = refresh
	return f.all, f.hit, f.err
}

func (f *fakeCourseSrv) TermCourses(context.Context) ([]models.Course, error) {
	return f.term, f.err
}

func (f *fakeCourseSrv) Semesters(context.Context) (models.SemesterOptions, error) {
	return models.SemesterOptions{Selected: "2025 Fall", Terms: []string{"2025 Fall", "2025 Spring"}}, f.err
}

func TestCourseHandlerCourses(t *testing.T) {
	srv := &fakeCourseSrv{all: []models.Course{{ID: "10"}, {ID: "20"}}, hit: true}
	c, rec := jsonContext(http.MethodGet, "/courses", "")

	NewCourseHandler(srv).Courses(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.refresh)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"10"`)
}

func TestCourseHandlerSelectedTerm(t *testing.T) {
	srv := &fakeCourseSrv{all: []models.Course{{ID: "10"}, {ID: "20"}}, term: []models.Course{{ID: "20"}}}
	c, rec := jsonContext(http.MethodGet, "/courses?term=selected&refresh=true", "")

	NewCourseHandler(srv).Courses(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.refresh)
	data := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, data, `"20"`)
	assert.NotContains(t, data, `"10"`)
}

func TestCourseHandlerErrors(t *testing.T) {
	c, rec := jsonContext(http.MethodGet, "/courses?refresh=often", "")
	NewCourseHandler(&fakeCourseSrv{}).Courses(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = jsonContext(http.MethodGet, "/courses", "")
	NewCourseHandler(&fakeCourseSrv{err: appErrors.FetchError("Failed to fetch courses", nil)}).Courses(c)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCourseHandlerSemesters(t *testing.T) {
	c, rec := jsonContext(http.MethodGet, "/semesters", "")

	NewCourseHandler(&fakeCourseSrv{}).Semesters(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"selected":"2025 Fall"`)
}
