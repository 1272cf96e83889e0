package diary

import (
	"sort"
	"strings"

	"github.com/pbaille/echoes/internal/domain"
)

const (
	pastThemeWindow = 10
	topThemeCount   = 5
)

// ThemeCount is a lower-cased echo theme and how often it occurs.
type ThemeCount struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

// Stats summarizes a collection for the dashboard.
type Stats struct {
	TotalEntries int          `json:"totalEntries"`
	TotalEchoes  int          `json:"totalEchoes"`
	TopThemes    []ThemeCount `json:"topThemes"`
}

// PastThemes builds the recurring-theme hint sent with a new analysis: the
// most frequent themes among the echoes of the most recent entries.
// entries are expected newest first.
func PastThemes(entries []domain.Entry) string {
	if len(entries) > pastThemeWindow {
		entries = entries[:pastThemeWindow]
	}
	top := topThemes(entries)
	names := make([]string, len(top))
	for i, t := range top {
		names[i] = t.Theme
	}
	return strings.Join(names, ", ")
}

// Summarize computes totals and the top themes over all entries.
func Summarize(entries []domain.Entry) Stats {
	s := Stats{TotalEntries: len(entries), TopThemes: topThemes(entries)}
	for _, e := range entries {
		s.TotalEchoes += len(e.Echoes)
	}
	return s
}

func topThemes(entries []domain.Entry) []ThemeCount {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, echo := range e.Echoes {
			theme := strings.ToLower(strings.TrimSpace(echo.Theme))
			if theme == "" {
				continue
			}
			counts[theme]++
		}
	}

	out := make([]ThemeCount, 0, len(counts))
	for theme, n := range counts {
		out = append(out, ThemeCount{Theme: theme, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Theme < out[j].Theme
	})
	if len(out) > topThemeCount {
		out = out[:topThemeCount]
	}
	return out
}
