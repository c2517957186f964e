package mailbox

import "time"

// SubjectQuery is the provider-side prefilter for order-confirmation mail.
// The exact subject match happens later against fetched metadata; this only
// narrows the search.
const SubjectQuery = `subject:"Your order #" "is on the way"`

// BuildQuery assembles the provider search expression for a harvest window.
//
// The provider's search is day-granular, so the lower bound is a date: when
// incrementalAfter is set and strictly later than the window start it becomes
// the lower bound, otherwise the window start minus one day is used to
// tolerate provider-side timezone rounding. The upper bound is always the
// window end.
func BuildQuery(fromFilter string, start, end time.Time, incrementalAfter time.Time) string {
	query := SubjectQuery + " " + fromFilter + " "
	if !incrementalAfter.IsZero() && incrementalAfter.After(start) {
		query += "after:" + formatQueryDate(incrementalAfter) + " "
	} else {
		query += "after:" + formatQueryDate(start.Add(-24*time.Hour)) + " "
	}
	query += "before:" + formatQueryDate(end)
	return query
}

func formatQueryDate(t time.Time) string {
	return t.UTC().Format("2006/01/02")
}
