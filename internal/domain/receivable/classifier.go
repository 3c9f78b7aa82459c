package receivable

import "time"

// StartOfDay truncates a time to midnight in its own location. Overdue
// comparisons work on whole days: a record due today is not overdue.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the first instant of the following day, used as an
// exclusive upper bound for date-range filters.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// IsOverdue reports whether a record with the given stored status and due
// date is past due at the reference time. Paid and cancelled records are
// never overdue regardless of their due date.
func IsOverdue(status Status, dueDate time.Time, now time.Time) bool {
	if status.IsTerminal() {
		return false
	}
	return dueDate.Before(StartOfDay(now))
}

// DisplayStatus maps a stored status to its user-facing label. Overdue
// open and partial records display as VENCIDA; the stored status is left
// untouched, so classification needs no batch job and is always current.
func DisplayStatus(status Status, dueDate time.Time, now time.Time) string {
	if IsOverdue(status, dueDate, now) {
		return DisplayStatusOverdue
	}
	return status.String()
}
