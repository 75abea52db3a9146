package ion

import "errors"

var (
	// ErrSourceUnavailable wraps any network or non-success HTTP outcome from
	// a source endpoint. Window and overlap loops treat it as "skip this day".
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceEmpty is the normal "no data for this day" outcome, not a
	// failure. It gets the same skip handling but is never logged as an error.
	ErrSourceEmpty = errors.New("source returned no data")

	// ErrInvalidWindow is a caller error: the window end precedes its start.
	ErrInvalidWindow = errors.New("window end precedes start")

	// ErrNoOverlapFound means the backward scan exhausted its bound without a
	// day where both sources had data.
	ErrNoOverlapFound = errors.New("no recent day with both predicted and measured data")

	// ErrNoData means the merge produced zero series for an otherwise valid
	// query. Distinct from every failure above.
	ErrNoData = errors.New("no data for window")
)
