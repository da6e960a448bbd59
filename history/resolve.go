package history

import (
	"sort"
	"time"
)

// Resolve returns the status that was active at the given time. records
// must be sorted ascending by (Timestamp, Seq), as the Store returns them.
// Among records sharing a timestamp the last appended one wins. found is
// false when no record is at or before at.
func Resolve(records []Record, at time.Time) (status string, found bool) {
	i := sort.Search(len(records), func(i int) bool {
		return records[i].Timestamp.After(at)
	})
	if i == 0 {
		return "", false
	}
	return records[i-1].Status, true
}
