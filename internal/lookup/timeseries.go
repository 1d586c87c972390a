package lookup

import "sort"

// IndexAtOrBefore returns the index of the last timestamp <= target,
// or -1 if every timestamp is after target. times must be ascending.
func IndexAtOrBefore(target int64, times []int64) int {
	i := sort.Search(len(times), func(i int) bool { return times[i] > target })
	return i - 1
}
