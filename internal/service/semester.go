package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/duetable-api/internal/models"
)

// Seasons in the order they are offered within a year, newest first.
var seasonsNewestFirst = []string{"Fall", "Summer", "Spring"}

var semesterPattern = regexp.MustCompile(`(?i)(fall|spring|summer|winter)\s*(20\d{2})`)

// GenerateSemesterTerms lists the terms of the current year and the three
// before it, newest first: "2025 Fall", "2025 Summer", "2025 Spring", "2024 Fall", ...
func GenerateSemesterTerms(now time.Time) []string {
	year := now.Year()
	terms := make([]string, 0, 4*len(seasonsNewestFirst))
	for y := year; y >= year-3; y-- {
		for _, season := range seasonsNewestFirst {
			terms = append(terms, fmt.Sprintf("%d %s", y, season))
		}
	}
	return terms
}

// CurrentSemester maps the month of now onto a term: Jan to May is Spring,
// Jun and Jul are Summer, Aug to Dec is Fall.
func CurrentSemester(now time.Time) string {
	var season string
	switch month := now.Month(); {
	case month <= time.May:
		season = "Spring"
	case month <= time.July:
		season = "Summer"
	default:
		season = "Fall"
	}
	return fmt.Sprintf("%d %s", now.Year(), season)
}

// DefaultSemester is the term a fresh session starts on.
func DefaultSemester(now time.Time) string {
	return fmt.Sprintf("%d Fall", now.Year())
}

// ParseSemester splits "2025 Fall" into its year and season.
func ParseSemester(term string) (int, string, error) {
	yearStr, season, ok := strings.Cut(strings.TrimSpace(term), " ")
	if !ok || season == "" {
		return 0, "", fmt.Errorf("term %q must look like \"<year> <season>\"", term)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, "", fmt.Errorf("term %q has invalid year: %w", term, err)
	}
	return year, season, nil
}

// ValidSemester reports whether term is "<year> <Spring|Summer|Fall>".
func ValidSemester(term string) bool {
	_, season, err := ParseSemester(term)
	if err != nil {
		return false
	}
	for _, s := range seasonsNewestFirst {
		if s == season {
			return true
		}
	}
	return false
}

// ExtractSemesterFromCourse finds a "<season> <year>" mention in a course's
// name or code, lower-cased as written. Returns "" when none is present.
func ExtractSemesterFromCourse(course models.Course) string {
	text := strings.ToLower(course.Name + " " + course.CourseCode)
	match := semesterPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1] + " " + match[2]
}

// UniqueSemestersFromCourses returns the sorted distinct semesters mentioned by courses.
func UniqueSemestersFromCourses(courses []models.Course) []string {
	seen := map[string]struct{}{}
	for _, course := range courses {
		if semester := ExtractSemesterFromCourse(course); semester != "" {
			seen[semester] = struct{}{}
		}
	}
	result := make([]string, 0, len(seen))
	for semester := range seen {
		result = append(result, semester)
	}
	sort.Strings(result)
	return result
}
