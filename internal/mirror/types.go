package mirror

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoCandidates indicates the sync filter left zero eligible mirrors.
var ErrNoCandidates = errors.New("no synced mirror candidates")

// ErrNoBestMirrors indicates the final selection after scoring is empty.
var ErrNoBestMirrors = errors.New("no best mirrors")

// Mirror is one entry from the mirror-status catalog. Optional upstream
// fields are pointers so "absent" is distinguishable from zero.
// TransferRate and WeightedScore are computed by this tool, never supplied
// by the status source; they stay nil until the probe and score stages run.
type Mirror struct {
	URL            string   `json:"url"`
	Protocol       string   `json:"protocol"`
	LastSync       *string  `json:"last_sync"`
	CompletionPct  *float64 `json:"completion_pct"`
	Delay          *int     `json:"delay"`
	DurationAvg    *float64 `json:"duration_avg"`
	DurationStddev *float64 `json:"duration_stddev"`
	Score          *float64 `json:"score"`
	Active         bool     `json:"active"`
	Country        string   `json:"country"`
	CountryCode    string   `json:"country_code"`
	ISOs           bool     `json:"isos"`
	IPv4           bool     `json:"ipv4"`
	IPv6           bool     `json:"ipv6"`
	Details        string   `json:"details"`

	TransferRate  *float64 `json:"transfer_rate,omitempty"`
	WeightedScore *float64 `json:"weighted_score,omitempty"`
}

// Domain returns the lowercase host portion of the mirror URL, without any
// port. Returns "" if the URL does not parse.
func (m *Mirror) Domain() string {
	u, err := url.Parse(m.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Mirrors is an ordered list of mirrors.
type Mirrors []Mirror

// Status is the mirror-status catalog document. The metadata fields are kept
// for observability only; ranking never reads them.
type Status struct {
	Cutoff         int     `json:"cutoff"`
	LastCheck      string  `json:"last_check"`
	NumChecks      int     `json:"num_checks"`
	CheckFrequency int     `json:"check_frequency"`
	Urls           Mirrors `json:"urls"`
	Version        int     `json:"version"`
}

// TargetRepo selects which package database file is fetched during probing.
type TargetRepo string

const (
	RepoCore      TargetRepo = "core"
	RepoExtra     TargetRepo = "extra"
	RepoCommunity TargetRepo = "community"
)

// ParseTargetRepo converts a case-insensitive repository name into a
// TargetRepo.
func ParseTargetRepo(s string) (TargetRepo, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core":
		return RepoCore, nil
	case "extra":
		return RepoExtra, nil
	case "community":
		return RepoCommunity, nil
	default:
		return "", fmt.Errorf("unknown target repository %q (expected core, extra, or community)", s)
	}
}

// DBPath returns the repository database path relative to a mirror base URL,
// e.g. "core/os/x86_64/core.db".
func (r TargetRepo) DBPath() string {
	return fmt.Sprintf("%s/os/x86_64/%s.db", r, r)
}

func (r TargetRepo) String() string {
	return string(r)
}
