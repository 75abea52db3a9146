package ion

// BuildWindow expands the inclusive [start, end] range into ascending per-day
// keys, one per calendar day. offsetDays shifts every key by that many days;
// the predicted source is queried one day ahead of the nominal window, so its
// windows are built with offsetDays = 1.
func BuildWindow(start, end DateKey, offsetDays int) ([]DateKey, error) {
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}

	days := int(end.Time().Sub(start.Time()).Hours()/24) + 1
	keys := make([]DateKey, 0, days)
	for i := 0; i < days; i++ {
		keys = append(keys, start.AddDays(i+offsetDays))
	}
	return keys, nil
}
