package models

// Course is a Canvas course as returned by the LMS proxy. The academic term is
// only encoded in free text, e.g. "CS101 (Fall 2025)".
type Course struct {
	ID         FlexibleID `json:"id"`
	Name       string     `json:"name"`
	CourseCode string     `json:"course_code"`
}

// CourseIDs extracts identifiers in course order.
func CourseIDs(courses []Course) []string {
	ids := make([]string, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID.String())
	}
	return ids
}
