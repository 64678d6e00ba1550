package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Evaluate benchmarks all mirrors, ranks them by weighted score, and returns
// the best n. The input order must be the sync-filter order (delay
// ascending); the stable sort keeps that order for ties, so the result is a
// pure function of the measured rates and upstream scores, never of probe
// scheduling. Returns ErrNoBestMirrors when the selection is empty.
func Evaluate(ctx context.Context, mirrors Mirrors, n int, repo TargetRepo, workers int, logger *slog.Logger) (Mirrors, error) {
	best := make(Mirrors, len(mirrors))
	copy(best, mirrors)

	ProbeAll(ctx, best, repo, workers, logger)
	score(best)
	sortByWeightedScore(best)

	if n < len(best) {
		best = best[:max(n, 0)]
	}
	if len(best) == 0 {
		return nil, fmt.Errorf("%w: requested %d from %d candidates", ErrNoBestMirrors, n, len(mirrors))
	}

	return best, nil
}

// score computes each mirror's weighted score from its measured transfer
// rate and the upstream quality score (lower is better upstream, so the
// distance below the worst observed score rewards good mirrors):
//
//	weighted = rate * (maxScore - score)
//
// maxScore is the maximum of all present upstream scores, 0.0 when no mirror
// carries one. A mirror without an upstream score gets no weighted score at
// all; sortByWeightedScore ranks those last.
func score(mirrors Mirrors) {
	maxScore := 0.0
	for i := range mirrors {
		if s := mirrors[i].Score; s != nil && *s > maxScore {
			maxScore = *s
		}
	}

	for i := range mirrors {
		m := &mirrors[i]
		if m.Score == nil {
			continue
		}
		rate := 0.0
		if m.TransferRate != nil {
			rate = *m.TransferRate
		}
		weighted := rate * (maxScore - *m.Score)
		m.WeightedScore = &weighted
	}
}

// sortByWeightedScore sorts descending by weighted score. Mirrors without a
// weighted score rank after all scored ones. Equal weighted scores (the
// common case when every mirror shares the same upstream score, making all
// products zero) break on measured transfer rate descending; mirrors still
// tied after that keep their prior delay-ascending order.
func sortByWeightedScore(mirrors Mirrors) {
	sort.SliceStable(mirrors, func(i, j int) bool {
		wi, wj := mirrors[i].WeightedScore, mirrors[j].WeightedScore
		if (wi == nil) != (wj == nil) {
			return wi != nil
		}
		if wi != nil && *wi != *wj {
			return *wi > *wj
		}
		ri, rj := mirrors[i].TransferRate, mirrors[j].TransferRate
		if (ri == nil) != (rj == nil) {
			return ri != nil
		}
		if ri != nil && *ri != *rj {
			return *ri > *rj
		}
		return false
	})
}
