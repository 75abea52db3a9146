package ion

import "context"

// Source abstracts one remote series endpoint (predicted or one measured
// collection). FetchDay fails with ErrSourceUnavailable on transport/HTTP
// problems and ErrSourceEmpty when the day has no data; nothing else escapes
// an adapter.
type Source interface {
	Name() string
	FetchDay(ctx context.Context, station string, day DateKey) ([]RawRecord, error)
}

// Lister is the optional acceleration path: a directory listing of available
// predicted-series days. LatestAvailable fails with ErrSourceEmpty when the
// station is unknown to the listing.
type Lister interface {
	LatestAvailable(ctx context.Context, station string) (DateKey, error)
}
