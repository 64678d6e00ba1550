package mirror

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pacmirror/pacmirror/internal/exclude"
)

const (
	// completionEpsilon is the tolerance for "fully synced" completion.
	completionEpsilon = 1e-9

	// maxDelaySeconds is the largest acceptable sync delay behind upstream.
	maxDelaySeconds = 3600
)

// Filter returns the mirrors from status that are eligible for benchmarking:
// active, HTTP(S), fully synced, and less than an hour behind upstream.
// Mirrors matching a non-negated exclusion rule are dropped. Survivors are
// sorted by delay ascending (stable, so equal delays keep catalog order) and
// truncated to maxCheck when maxCheck > 0; maxCheck == 0 means no limit.
// Returns ErrNoCandidates when nothing survives.
func Filter(status *Status, maxCheck int, rules exclude.Rules) (Mirrors, error) {
	mirrors := make(Mirrors, 0, len(status.Urls))
	for _, m := range status.Urls {
		if !eligible(&m) {
			continue
		}
		if len(rules) > 0 && rules.Excluded(m.Domain(), strings.ToLower(m.Country), strings.ToLower(m.CountryCode)) {
			continue
		}
		mirrors = append(mirrors, m)
	}

	sort.SliceStable(mirrors, func(i, j int) bool {
		return *mirrors[i].Delay < *mirrors[j].Delay
	})

	if maxCheck > 0 && len(mirrors) > maxCheck {
		mirrors = mirrors[:maxCheck]
	}

	if len(mirrors) == 0 {
		return nil, fmt.Errorf("%w: %d catalog entries, none active, synced, and unexcluded", ErrNoCandidates, len(status.Urls))
	}

	return mirrors, nil
}

func eligible(m *Mirror) bool {
	if !m.Active {
		return false
	}
	if m.Protocol != "http" && m.Protocol != "https" {
		return false
	}
	if m.CompletionPct == nil || math.Abs(*m.CompletionPct-1.0) >= completionEpsilon {
		return false
	}
	if m.Delay == nil || *m.Delay >= maxDelaySeconds {
		return false
	}
	return true
}
