package models

// Due-date buckets understood by the table view.
const (
	DueBucketNone    = ""
	DueBucketOverdue = "overdue"
	DueBucketToday   = "today"
	DueBucketWeek    = "week"
	DueBucketMonth   = "month"
	DueBucketNoDate  = "no-date"
)

// Sort keys understood by the table view.
const (
	SortByName    = "name"
	SortByDueDate = "dueDate"
	SortByPoints  = "points"
	SortByCourse  = "course"
	SortByGrade   = "grade"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// AssignmentStats are the dashboard counters. They overlap by construction.
type AssignmentStats struct {
	Overdue           int `json:"overdue"`
	DueThisWeek       int `json:"dueThisWeek"`
	CompletedThisWeek int `json:"completedThisWeek"`
	Total             int `json:"total"`
}

// ViewFilter narrows the combined list.
type ViewFilter struct {
	Search    string `json:"search" form:"search"`
	CourseID  string `json:"courseId" form:"courseId"`
	DueBucket string `json:"dueBucket" form:"dueBucket" validate:"omitempty,oneof=overdue today week month no-date"`
}

// ViewSort orders the filtered list.
type ViewSort struct {
	Key   string `json:"sortBy" form:"sortBy" validate:"omitempty,oneof=name dueDate points course grade"`
	Order string `json:"order" form:"order" validate:"omitempty,oneof=asc desc"`
}

// ViewQuery is one full request against the table view.
type ViewQuery struct {
	ViewFilter
	ViewSort
	Page int `json:"page" form:"page" validate:"omitempty,min=1"`

	// Sent marks filter fields present in the request, so an empty value
	// clears a remembered filter instead of keeping it.
	Sent FilterFields `json:"-" form:"-"`
}

// FilterFields flags individual ViewFilter fields.
type FilterFields struct {
	Search    bool
	CourseID  bool
	DueBucket bool
}

// View is one page of the filtered, sorted list.
type View struct {
	Items      []CombinedAssignment `json:"items"`
	TotalCount int                  `json:"totalCount"`
	TotalPages int                  `json:"totalPages"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// FetchProgress reports detail fetch progress.
type FetchProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// SyncStatus is a snapshot of the assignment store's loading state.
type SyncStatus struct {
	Term            string        `json:"term"`
	Generation      uint64        `json:"generation"`
	IsLoading       bool          `json:"isLoading"`
	DetailsLoading  bool          `json:"detailsLoading"`
	HasFetched      bool          `json:"hasFetched"`
	LastFetchedTerm string        `json:"lastFetchedTerm"`
	Error           string        `json:"error,omitempty"`
	Progress        FetchProgress `json:"progress"`
	SummaryCount    int           `json:"summaryCount"`
	DetailCount     int           `json:"detailCount"`
	CombinedCount   int           `json:"combinedCount"`
}

// Dashboard is the landing page projection for the selected term.
type Dashboard struct {
	Term    string          `json:"term"`
	Courses []Course        `json:"courses"`
	Stats   AssignmentStats `json:"stats"`
	Status  SyncStatus      `json:"status"`
}

// SemesterOptions lists the terms a user can pick from.
type SemesterOptions struct {
	Selected    string   `json:"selected"`
	Current     string   `json:"current"`
	Terms       []string `json:"terms"`
	FromCourses []string `json:"fromCourses"`
}
