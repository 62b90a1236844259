package service

import (
	"time"

	"github.com/noah-isme/duetable-api/internal/models"
)

const statsWindow = 7 * 24 * time.Hour

// ComputeStats derives the dashboard counters. Overdue is the server's
// missing flag, not a date comparison. The counts overlap and need not add
// up to Total.
func ComputeStats(list []models.CombinedAssignment, now time.Time) models.AssignmentStats {
	stats := models.AssignmentStats{Total: len(list)}
	weekAhead := now.Add(statsWindow)
	weekAgo := now.Add(-statsWindow)

	for _, a := range list {
		if a.Missing {
			stats.Overdue++
		}
		completed := a.Completed()
		if a.DueAt != nil && !completed && !a.DueAt.Before(now) && !a.DueAt.After(weekAhead) {
			stats.DueThisWeek++
		}
		if completed && a.SubmittedAt != nil && !a.SubmittedAt.Before(weekAgo) {
			stats.CompletedThisWeek++
		}
	}
	return stats
}
