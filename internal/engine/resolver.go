package engine

import (
	"log/slog"

	"quiz-result-service/internal/domain"
)

// Resolution is the outcome of matching a score against candidate results.
// Found is false for NoMatch, which callers must branch on.
type Resolution struct {
	Result   domain.Result
	Found    bool
	Fallback bool // matched through the default result
}

// NoMatch reports whether no candidate and no default applied.
func (r Resolution) NoMatch() bool {
	return !r.Found
}

// ResultID returns the matched result ID, or nil for NoMatch.
func (r Resolution) ResultID() *string {
	if !r.Found {
		return nil
	}
	id := r.Result.ID
	return &id
}

// Resolver selects the result a score and demographic profile match.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the matching candidate with the lowest priority value. Ties go to the
// narrowest score range, then to input order. Without a match it falls back to the single
// default-flagged candidate. A default-flagged candidate only takes part in that fallback,
// even when it also carries range or demographic conditions. Malformed candidates never match.
func (r *Resolver) Resolve(score domain.TotalScore, demographic string, candidates []domain.Result) Resolution {
	best := -1
	var bestSpan span

	for i, candidate := range candidates {
		if err := candidate.Validate(); err != nil {
			r.logger.Warn("result can never match", "result_id", candidate.ID, "error", err)
			continue
		}
		// defaults only take part in the fallback step
		if candidate.IsDefault() {
			continue
		}
		m := compile(candidate.Conditions)
		if !m.matches(score, demographic) {
			continue
		}
		s := m.span()
		if best < 0 || outranks(candidate, s, candidates[best], bestSpan) {
			best = i
			bestSpan = s
		}
	}
	if best >= 0 {
		return Resolution{Result: candidates[best], Found: true}
	}

	fallback := -1
	defaults := 0
	for i, candidate := range candidates {
		if !candidate.IsDefault() || candidate.Validate() != nil {
			continue
		}
		defaults++
		fallback = i
	}
	switch {
	case defaults == 1:
		return Resolution{Result: candidates[fallback], Found: true, Fallback: true}
	case defaults > 1:
		r.logger.Warn("multiple default results, none used", "defaults", defaults)
	}
	return Resolution{}
}

// outranks reports whether a beats the current best b. Equal candidates keep b,
// so the earlier one in input order wins.
func outranks(a domain.Result, as span, b domain.Result, bs span) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return as.narrowerThan(bs)
}

// matcher is the compiled AND-list of a result's conditions.
type matcher struct {
	lo, hi       *int64
	demographics []string
}

func compile(conditions []domain.Condition) matcher {
	var m matcher
	for _, c := range conditions {
		switch c.Kind {
		case domain.ConditionRange:
			if c.Min != nil && (m.lo == nil || *c.Min > *m.lo) {
				m.lo = c.Min
			}
			if c.Max != nil && (m.hi == nil || *c.Max < *m.hi) {
				m.hi = c.Max
			}
		case domain.ConditionDemographic:
			m.demographics = append(m.demographics, c.Value)
		}
	}
	return m
}

func (m matcher) matches(score int64, demographic string) bool {
	for _, want := range m.demographics {
		if want != demographic {
			return false
		}
	}
	if m.lo != nil && score < *m.lo {
		return false
	}
	if m.hi != nil && score > *m.hi {
		return false
	}
	return true
}

func (m matcher) span() span {
	if m.lo == nil || m.hi == nil {
		return span{}
	}
	// hi >= lo here, so the unsigned difference is exact even across the int64 range.
	return span{bounded: true, width: uint64(*m.hi) - uint64(*m.lo)}
}

// span is the width of a matched score range; unbounded ranges are infinitely wide.
type span struct {
	bounded bool
	width   uint64
}

func (s span) narrowerThan(o span) bool {
	if !s.bounded {
		return false
	}
	if !o.bounded {
		return true
	}
	return s.width < o.width
}
