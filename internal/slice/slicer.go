// Package slice selects the subset of indexed commits to materialize.
package slice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/codewharf/snapmine/internal/git"
)

// Mode is a commit selection strategy.
type Mode string

const (
	ModeCommit       Mode = "commit"        // every commit
	ModeTag          Mode = "tag"           // commits carrying at least one tag
	ModeRelease      Mode = "release"       // commits carrying a release-like tag
	ModeTimeInterval Mode = "time-interval" // minimum-spacing selection
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeCommit, ModeTag, ModeRelease, ModeTimeInterval:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported slice mode: %q", s)
	}
}

// Options configures a slicing pass. Interval is only meaningful for
// ModeTimeInterval. A nil Limit means no cap; a zero or negative limit
// yields an empty result.
type Options struct {
	Mode     Mode
	Interval string
	Limit    *int
}

// ParseInterval parses an interval specifier: an integer immediately
// followed by one of d (days), w (weeks), h (hours) or m (minutes).
func ParseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("unsupported interval format: %q", s)
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("unsupported interval format: %q", s)
	}

	switch s[len(s)-1] {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("unsupported interval format: %q", s)
	}
}

// Slice returns the subset of commits selected under the given options,
// sorted by descending timestamp and truncated to the optional cap.
func Slice(commits []git.CommitRecord, opts Options) ([]git.CommitRecord, error) {
	ordered := sortedDesc(commits)

	var selected []git.CommitRecord
	switch opts.Mode {
	case ModeCommit:
		selected = ordered
	case ModeTag:
		selected = filter(ordered, func(c git.CommitRecord) bool {
			return len(c.Tags) > 0
		})
	case ModeRelease:
		selected = filter(ordered, hasReleaseTag)
	case ModeTimeInterval:
		interval, err := ParseInterval(opts.Interval)
		if err != nil {
			return nil, fmt.Errorf("time-interval mode requires a valid interval (e.g. \"30d\"): %w", err)
		}
		selected = spacedSelection(ordered, interval)
	default:
		return nil, fmt.Errorf("unsupported slice mode: %q", opts.Mode)
	}

	return applyLimit(selected, opts.Limit), nil
}

func sortedDesc(commits []git.CommitRecord) []git.CommitRecord {
	out := make([]git.CommitRecord, len(commits))
	copy(out, commits)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func filter(commits []git.CommitRecord, keep func(git.CommitRecord) bool) []git.CommitRecord {
	out := make([]git.CommitRecord, 0, len(commits))
	for _, c := range commits {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// hasReleaseTag reports whether any tag looks like a release: it starts
// with a version prefix letter or contains a digit. Deliberately loose,
// so a tag like "fix2" matches too.
func hasReleaseTag(c git.CommitRecord) bool {
	for _, tag := range c.Tags {
		lower := strings.ToLower(tag)
		if strings.HasPrefix(lower, "v") || strings.ContainsFunc(lower, unicode.IsDigit) {
			return true
		}
	}
	return false
}

// spacedSelection greedily picks commits at least interval apart, walking
// ascending from the earliest commit. The gap is measured against the last
// selected commit, not the last visited one, so selections are spaced by at
// least the interval regardless of commit density.
func spacedSelection(commits []git.CommitRecord, interval time.Duration) []git.CommitRecord {
	ascending := make([]git.CommitRecord, len(commits))
	copy(ascending, commits)
	sort.SliceStable(ascending, func(i, j int) bool {
		return ascending[i].Timestamp.Before(ascending[j].Timestamp)
	})

	var (
		selected []git.CommitRecord
		last     time.Time
	)
	for _, c := range ascending {
		if len(selected) == 0 || c.Timestamp.Sub(last) >= interval {
			selected = append(selected, c)
			last = c.Timestamp
		}
	}

	return sortedDesc(selected)
}

func applyLimit(commits []git.CommitRecord, limit *int) []git.CommitRecord {
	if limit == nil {
		return commits
	}
	n := *limit
	if n < 0 {
		n = 0
	}
	if n < len(commits) {
		return commits[:n]
	}
	return commits
}
