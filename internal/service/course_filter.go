package service

import (
	"strings"

	"github.com/noah-isme/duetable-api/internal/models"
)

// FilterBySemester keeps the courses whose name or course code carries the
// Canvas form of term. "2025 Fall" matches "CS101 (Fall 2025)".
// An empty term or empty input returns the input unchanged.
func FilterBySemester(courses []models.Course, term string) []models.Course {
	if term == "" || len(courses) == 0 {
		return courses
	}
	needle := ConvertToCanvasFormat(term)

	matched := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		if course.Name != "" && strings.Contains(course.Name, needle) {
			matched = append(matched, course)
			continue
		}
		if course.CourseCode != "" && strings.Contains(course.CourseCode, needle) {
			matched = append(matched, course)
		}
	}
	return matched
}

// ConvertToCanvasFormat turns "<year> <season>" into "(<season> <year>)".
func ConvertToCanvasFormat(term string) string {
	if term == "" {
		return ""
	}
	year, season, _ := strings.Cut(term, " ")
	return "(" + season + " " + year + ")"
}
