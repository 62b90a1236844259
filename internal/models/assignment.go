package models

import "time"

// Workflow states reported for submissions.
const (
	WorkflowGraded      = "graded"
	WorkflowSubmitted   = "submitted"
	WorkflowUnsubmitted = "unsubmitted"
	WorkflowPending     = "pending_review"
)

// AssignmentSummary is an assignment definition, independent of any submission.
type AssignmentSummary struct {
	ID              FlexibleID `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	DueAt           *time.Time `json:"due_at"`
	PointsPossible  float64    `json:"points_possible"`
	CourseID        FlexibleID `json:"course_id"`
	HTMLURL         string     `json:"html_url"`
	SubmissionTypes []string   `json:"submission_types"`
	WorkflowState   string     `json:"workflow_state"`
}

// SubmissionComment is a grader or student note attached to a submission.
type SubmissionComment struct {
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentDetail is the current user's submission state for one assignment.
type AssignmentDetail struct {
	AssignmentID       int64               `json:"assignment_id"`
	UserID             int64               `json:"user_id"`
	SubmissionType     string              `json:"submission_type"`
	SubmittedAt        *time.Time          `json:"submitted_at"`
	Score              *float64            `json:"score"`
	Grade              *string             `json:"grade"`
	Late               bool                `json:"late"`
	Missing            bool                `json:"missing"`
	WorkflowState      string              `json:"workflow_state"`
	SubmissionComments []SubmissionComment `json:"submission_comments"`
}

// CombinedAssignment joins a summary with its detail. Detail values win on
// shared fields; IfFinished is local-only state.
type CombinedAssignment struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	DueAt           *time.Time `json:"due_at"`
	PointsPossible  float64    `json:"points_possible"`
	CourseID        string     `json:"course_id"`
	HTMLURL         string     `json:"html_url"`
	SubmissionTypes []string   `json:"submission_types"`
	WorkflowState   string     `json:"workflow_state"`

	AssignmentID       int64               `json:"assignment_id"`
	UserID             int64               `json:"user_id"`
	SubmissionType     string              `json:"submission_type"`
	SubmittedAt        *time.Time          `json:"submitted_at"`
	Score              *float64            `json:"score"`
	Grade              *string             `json:"grade"`
	Late               bool                `json:"late"`
	Missing            bool                `json:"missing"`
	SubmissionComments []SubmissionComment `json:"submission_comments"`

	IfFinished bool `json:"ifFinished"`
}

// Completed reports whether the submission counts as done for statistics.
func (a CombinedAssignment) Completed() bool {
	return a.WorkflowState == WorkflowGraded || a.WorkflowState == WorkflowSubmitted
}

// FinishedOverride is a persisted local completion flag.
type FinishedOverride struct {
	AssignmentID string    `db:"assignment_id" json:"assignmentId"`
	Term         string    `db:"term" json:"term"`
	Email        string    `db:"email" json:"email"`
	Finished     bool      `db:"finished" json:"ifFinished"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}
