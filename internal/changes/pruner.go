package changes

import "fmt"

// pruneBucketSeconds is the coarse time bucket for collapsing duplicate
// same-field changes. Dates are rounded to the nearest bucket, so two
// changes up to a minute apart can still land in the same bucket.
const pruneBucketSeconds = 60

// Prune collapses duplicate same-field changes inside the same minute
// bucket, keeping the latest occurrence. Events without a key (comments)
// are never pruned. Relative order of survivors is preserved.
func Prune(evs []Event) []Event {
	if len(evs) == 0 {
		return evs
	}

	discarded := make([]bool, len(evs))
	lastSeen := make(map[string]int)

	for i, e := range evs {
		if e.Key == "" {
			continue
		}
		code := fmt.Sprintf("%s|%d", e.Key, (e.Date+pruneBucketSeconds/2)/pruneBucketSeconds)
		if prev, ok := lastSeen[code]; ok {
			discarded[prev] = true
		}
		lastSeen[code] = i
	}

	out := make([]Event, 0, len(evs))
	for i, e := range evs {
		if !discarded[i] {
			out = append(out, e)
		}
	}
	return out
}
