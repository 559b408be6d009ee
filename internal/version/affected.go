package version

import (
	"strings"

	"minotaur/internal/model"
)

// Affected is the set of versions an advisory declares vulnerable for one package.
type Affected struct {
	Set Set
	// Explicit holds the raw "versions" entries, matched verbatim as well as by order.
	Explicit []string
}

// Contains reports whether the raw resolved version is affected.
// A version the scheme cannot parse is only matched verbatim.
func (a Affected) Contains(scheme Scheme, raw string) bool {
	for _, e := range a.Explicit {
		if e == raw {
			return true
		}
	}
	v, err := scheme.Parse(raw)
	if err != nil {
		return false
	}
	return a.Set.Contains(v)
}

// Overlaps reports whether any version in the declared set is affected.
func (a Affected) Overlaps(declared Set) bool {
	return a.Set.Overlaps(declared)
}

// BuildAffected folds the ranges and versions of every affected entry into a
// single set.
//
// Range events are read in order: introduced opens an interval, fixed and
// limit close it exclusively, last_affected closes it inclusively. An
// interval left open extends to infinity. Bounds the scheme cannot parse widen
// the interval. GIT ranges are ignored. An entry with no usable predicate
// affects every version.
func BuildAffected(scheme Scheme, pkgs []model.AffectedPackage) Affected {
	var out Affected
	for _, p := range pkgs {
		usable := false
		for _, r := range p.Ranges {
			if strings.EqualFold(r.Type, "GIT") {
				continue
			}
			out.Set = append(out.Set, rangeIntervals(scheme, r.Events)...)
			usable = true
		}
		for _, raw := range p.Versions {
			out.Explicit = append(out.Explicit, raw)
			if v, err := scheme.Parse(raw); err == nil {
				out.Set = append(out.Set, Point(v))
			}
			usable = true
		}
		if !usable {
			out.Set = append(out.Set, Any...)
		}
	}
	return out
}

func rangeIntervals(scheme Scheme, events []model.RangeEvent) Set {
	var (
		out  Set
		cur  Interval
		open bool
	)
	for _, ev := range events {
		switch {
		case ev.Introduced != "":
			if open {
				continue
			}
			open = true
			cur = Interval{}
			if ev.Introduced == "0" {
				continue
			}
			if v, err := scheme.Parse(ev.Introduced); err == nil {
				cur.Lower = &Bound{V: v, Inclusive: true}
			}
		case ev.Fixed != "" || ev.Limit != "":
			if !open {
				continue
			}
			raw := ev.Fixed
			if raw == "" {
				raw = ev.Limit
			}
			if v, err := scheme.Parse(raw); err == nil {
				cur.Upper = &Bound{V: v, Inclusive: false}
			}
			out = append(out, cur)
			open = false
		case ev.LastAffected != "":
			if !open {
				continue
			}
			if v, err := scheme.Parse(ev.LastAffected); err == nil {
				cur.Upper = &Bound{V: v, Inclusive: true}
			}
			out = append(out, cur)
			open = false
		}
	}
	if open {
		out = append(out, cur)
	}
	return out
}
