package detect

import "time"

// groupRuns performs single-pass greedy run grouping over records already
// sorted by time. A record joins the current run when its gap to the run's
// last record is strictly below g.Threshold; otherwise the run is closed and a
// new one starts. Closed runs shorter than g.MinSize are dropped.
func groupRuns[T any](records []T, at func(T) time.Duration, g Grouping) [][]T {
	var (
		runs [][]T
		cur  []T
	)
	flush := func() {
		if len(cur) >= g.MinSize {
			runs = append(runs, cur)
		}
	}
	for _, r := range records {
		if len(cur) == 0 {
			cur = []T{r}
			continue
		}
		if at(r)-at(cur[len(cur)-1]) < g.Threshold {
			cur = append(cur, r)
			continue
		}
		flush()
		cur = []T{r}
	}
	if len(cur) > 0 {
		flush()
	}
	return runs
}

// span returns the earliest and latest time in a non-empty run.
func span[T any](run []T, at func(T) time.Duration) (start, end time.Duration) {
	start, end = at(run[0]), at(run[0])
	for _, r := range run[1:] {
		t := at(r)
		if t < start {
			start = t
		}
		if t > end {
			end = t
		}
	}
	return start, end
}
