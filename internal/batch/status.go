// Package batch discovers synthesized variant directories and drives the
// mesh rescale for each of them, in parallel, aggregating per-variant
// outcomes. One variant's failure never aborts its siblings.
package batch

import (
	"fmt"
	"sort"
	"time"
)

// Status classifies one variant's batch outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// Result is one variant's outcome. Detail carries the exit code or error
// text for non-success statuses.
type Result struct {
	Status   Status
	Detail   string
	Duration time.Duration
}

// Summary maps variant names to results. Built fresh per batch run and held
// in memory only.
type Summary map[string]Result

// Count returns how many variants finished with the given status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s {
		if r.Status == status {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every non-skipped variant succeeded and at
// least one variant ran.
func (s Summary) AllSucceeded() bool {
	ran := 0
	for _, r := range s {
		switch r.Status {
		case StatusSkipped:
		case StatusSuccess:
			ran++
		default:
			return false
		}
	}
	return ran > 0
}

// Names returns the variant names in lexicographic order.
func (s Summary) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the per-variant lines plus totals, in stable order.
func (s Summary) String() string {
	out := ""
	for _, name := range s.Names() {
		r := s[name]
		out += fmt.Sprintf("%s: %s", name, r.Status)
		if r.Detail != "" {
			out += " - " + r.Detail
		}
		out += "\n"
	}
	out += fmt.Sprintf("total %d, success %d, failed %d, skipped %d, timeout %d, error %d\n",
		len(s), s.Count(StatusSuccess), s.Count(StatusFailed), s.Count(StatusSkipped),
		s.Count(StatusTimeout), s.Count(StatusError))
	return out
}
