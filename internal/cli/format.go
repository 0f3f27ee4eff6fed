package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fpang/synthetic-patients/internal/batch"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// Summarize renders a one-line status tally, e.g.
// "headshots: 3 cases (error=1 ok=2) in 1:05".
func Summarize(run batch.Run, elapsed time.Duration) string {
	counts := make(map[batch.Status]int)
	for _, r := range run.Processed {
		counts[r.Status]++
	}
	parts := make([]string, 0, len(counts))
	for status, n := range counts {
		parts = append(parts, fmt.Sprintf("%s=%d", status, n))
	}
	sort.Strings(parts)

	s := fmt.Sprintf("%s: %d cases", run.Pipeline, len(run.Processed))
	if len(parts) > 0 {
		s += " (" + strings.Join(parts, " ") + ")"
	}
	if len(run.Bundles) > 0 {
		s += fmt.Sprintf(", %d bundles", len(run.Bundles))
	}
	return s + " in " + FormatDurationShort(elapsed)
}
