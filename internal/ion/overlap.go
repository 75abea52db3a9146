package ion

import (
	"context"
	"errors"
)

// DefaultMaxDaysBack bounds the backward overlap scan.
const DefaultMaxDaysBack = 180

// Overlap is the result of a successful latest-overlap scan: the first day,
// walking backward from the scan start, for which both sources had data.
type Overlap struct {
	Date      DateKey
	Predicted []RawRecord // already restricted to the 48h horizon from Date
	Measured  []RawRecord
}

// FindLatestOverlap walks backward from `from`, one candidate day at a time,
// and returns the first day where the predicted source has records within the
// two-day horizon and the measured source has any records. Candidates are
// evaluated strictly most-recent-first and sequentially; the measured fetch
// is skipped entirely once a candidate's predicted fetch comes up short.
// The first qualifying day wins even if an older day would be more complete.
func FindLatestOverlap(ctx context.Context, predicted, measured Source, station string, from DateKey, maxDaysBack int) (Overlap, error) {
	if maxDaysBack <= 0 {
		maxDaysBack = DefaultMaxDaysBack
	}

	for i := 0; i < maxDaysBack; i++ {
		if err := ctx.Err(); err != nil {
			return Overlap{}, err
		}

		candidate := from.AddDays(-i)

		pRecs, err := predicted.FetchDay(ctx, station, candidate)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return Overlap{}, err
		}
		p48 := FilterPredictedHorizon(candidate, pRecs)
		if len(p48) == 0 {
			continue
		}

		mRecs, err := measured.FetchDay(ctx, station, candidate)
		if err != nil {
			if isSkippable(err) {
				continue
			}
			return Overlap{}, err
		}
		if len(mRecs) == 0 {
			continue
		}

		return Overlap{Date: candidate, Predicted: p48, Measured: mRecs}, nil
	}

	return Overlap{}, ErrNoOverlapFound
}

// isSkippable reports whether a fetch error just disqualifies the current
// candidate day. Context cancellation is not skippable.
func isSkippable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrSourceEmpty)
}
