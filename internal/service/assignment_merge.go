package service

import (
	"github.com/noah-isme/duetable-api/internal/models"
)

// FinishedOverrides maps normalized assignment ids to the local finished flag.
// It lives beside the fetched collections so a refetch cannot wipe it.
type FinishedOverrides map[string]bool

// Clone copies the map.
func (o FinishedOverrides) Clone() FinishedOverrides {
	out := make(FinishedOverrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// MergeAssignments joins summaries with details on the normalized id. Only
// summaries with a matching detail are kept, in summary order; detail values
// win where both carry a field. The finished flag comes from overrides.
func MergeAssignments(summaries []models.AssignmentSummary, details []models.AssignmentDetail, overrides FinishedOverrides) []models.CombinedAssignment {
	byID := make(map[string]*models.AssignmentDetail, len(details))
	for i := range details {
		key := models.NormalizeID(details[i].AssignmentID)
		if _, exists := byID[key]; !exists {
			byID[key] = &details[i]
		}
	}

	combined := make([]models.CombinedAssignment, 0, len(summaries))
	for _, summary := range summaries {
		key := models.NormalizeID(summary.ID)
		detail, ok := byID[key]
		if !ok {
			continue
		}
		combined = append(combined, combine(summary, *detail, overrides[key]))
	}
	return combined
}

func combine(summary models.AssignmentSummary, detail models.AssignmentDetail, finished bool) models.CombinedAssignment {
	return models.CombinedAssignment{
		ID:              summary.ID.String(),
		Name:            summary.Name,
		Description:     summary.Description,
		DueAt:           summary.DueAt,
		PointsPossible:  summary.PointsPossible,
		CourseID:        summary.CourseID.String(),
		HTMLURL:         summary.HTMLURL,
		SubmissionTypes: append([]string(nil), summary.SubmissionTypes...),
		WorkflowState:   detail.WorkflowState,

		AssignmentID:       detail.AssignmentID,
		UserID:             detail.UserID,
		SubmissionType:     detail.SubmissionType,
		SubmittedAt:        detail.SubmittedAt,
		Score:              detail.Score,
		Grade:              detail.Grade,
		Late:               detail.Late,
		Missing:            detail.Missing,
		SubmissionComments: append([]models.SubmissionComment(nil), detail.SubmissionComments...),

		IfFinished: finished,
	}
}
