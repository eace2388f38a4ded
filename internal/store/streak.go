package store

import (
	"sort"
	"time"

	"github.com/mesh-intelligence/cling/pkg/types"
)

// Streak counts consecutive calendar days ending at the most recent day in
// days. days are DayLayout strings of positive logs in any order; repeats
// and unparseable entries are ignored. A gap of one day ends the run.
func Streak(days []string) int {
	parsed := make([]time.Time, 0, len(days))
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		if seen[d] {
			continue
		}
		seen[d] = true
		t, err := types.ParseDay(d)
		if err != nil {
			continue
		}
		parsed = append(parsed, t)
	}
	if len(parsed) == 0 {
		return 0
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].After(parsed[j]) })

	streak := 1
	expect := parsed[0].AddDate(0, 0, -1)
	for _, d := range parsed[1:] {
		if !d.Equal(expect) {
			break
		}
		streak++
		expect = expect.AddDate(0, 0, -1)
	}
	return streak
}
