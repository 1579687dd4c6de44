package event

// Timespan conditions encode value1/value2 as minute-of-day bounds
// (0-1439), day-of-week bounds (0-6), or absolute minute-counter bounds,
// and must handle the wraparound case where value1 > value2 (e.g. 22:00
// to 02:00 spans midnight).

func evaluateTimespan(clock Clock, startMinute, endMinute int32) bool {
	if clock == nil {
		return false
	}
	now := clock.Minute()
	return withinWrapped(now, startMinute, endMinute, 1440)
}

func evaluateTimespanWeek(clock Clock, startDay, endDay int32) bool {
	if clock == nil {
		return false
	}
	now := clock.Weekday()
	return withinWrapped(now, startDay, endDay, 7)
}

func evaluateTimespanDatetime(clock Clock, startMinute, endMinute int64) bool {
	if clock == nil {
		return false
	}
	now := clock.UnixMinute()
	if startMinute <= endMinute {
		return now >= startMinute && now <= endMinute
	}
	// absolute datetimes don't wrap; an inverted range never matches.
	return false
}

// withinWrapped reports whether now falls in [start, end] on a ring of
// size modulus, wrapping past the ring boundary when start > end.
func withinWrapped(now, start, end, modulus int32) bool {
	if start <= end {
		return now >= start && now <= end
	}
	return now >= start || now <= end
}
