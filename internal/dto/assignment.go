package dto

import "github.com/noah-isme/duetable-api/internal/models"

// SyncRequest controls an assignment sync.
type SyncRequest struct {
	Force bool `json:"force" form:"force"`
	Wait  bool `json:"wait" form:"wait"`
}

// TableResponse is one page of the due table plus the query that produced it.
type TableResponse struct {
	Items []models.CombinedAssignment `json:"items"`
	Query models.ViewQuery            `json:"query"`
}

// ExportQuery selects the export format on top of the table filters.
type ExportQuery struct {
	models.ViewQuery
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ToggleFinishedResponse reports the optimistic finished flag and, when the
// caller waited, whether the remote write was accepted.
type ToggleFinishedResponse struct {
	AssignmentID string `json:"assignmentId"`
	IfFinished   bool   `json:"ifFinished"`
	JobID        string `json:"jobId"`
	Confirmed    bool   `json:"confirmed"`
}
