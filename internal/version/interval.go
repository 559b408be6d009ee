package version

import "strings"

// Bound is one end of an interval.
type Bound struct {
	V         Version
	Inclusive bool
}

// Interval is a contiguous version range. A nil bound is unbounded.
type Interval struct {
	Lower *Bound
	Upper *Bound
}

// Set is a union of intervals.
type Set []Interval

// Any matches every version.
var Any = Set{Interval{}}

// Point returns the interval holding exactly v.
func Point(v Version) Interval {
	return Interval{Lower: &Bound{V: v, Inclusive: true}, Upper: &Bound{V: v, Inclusive: true}}
}

// AtLeast returns [v, ∞) or (v, ∞).
func AtLeast(v Version, inclusive bool) *Bound {
	return &Bound{V: v, Inclusive: inclusive}
}

// Empty reports whether no version satisfies the interval.
func (i Interval) Empty() bool {
	if i.Lower == nil || i.Upper == nil {
		return false
	}
	c := i.Lower.V.Compare(i.Upper.V)
	if c > 0 {
		return true
	}
	return c == 0 && !(i.Lower.Inclusive && i.Upper.Inclusive)
}

// Contains reports whether v lies inside the interval.
func (i Interval) Contains(v Version) bool {
	if i.Lower != nil {
		c := v.Compare(i.Lower.V)
		if c < 0 || (c == 0 && !i.Lower.Inclusive) {
			return false
		}
	}
	if i.Upper != nil {
		c := v.Compare(i.Upper.V)
		if c > 0 || (c == 0 && !i.Upper.Inclusive) {
			return false
		}
	}
	return true
}

// Intersect returns the overlap of i and o, which may be empty.
func (i Interval) Intersect(o Interval) Interval {
	return Interval{Lower: tighterLower(i.Lower, o.Lower), Upper: tighterUpper(i.Upper, o.Upper)}
}

// Overlaps reports whether i and o share at least one version.
func (i Interval) Overlaps(o Interval) bool {
	return !i.Intersect(o).Empty()
}

func (i Interval) String() string {
	var parts []string
	if i.Lower != nil {
		op := ">"
		if i.Lower.Inclusive {
			op = ">="
		}
		parts = append(parts, op+i.Lower.V.String())
	}
	if i.Upper != nil {
		op := "<"
		if i.Upper.Inclusive {
			op = "<="
		}
		parts = append(parts, op+i.Upper.V.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	if i.Lower != nil && i.Upper != nil && i.Lower.Inclusive && i.Upper.Inclusive && i.Lower.V.Compare(i.Upper.V) == 0 {
		return "==" + i.Lower.V.String()
	}
	return strings.Join(parts, ", ")
}

func tighterLower(a, b *Bound) *Bound {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch c := a.V.Compare(b.V); {
	case c > 0:
		return a
	case c < 0:
		return b
	case !a.Inclusive:
		return a
	default:
		return b
	}
}

func tighterUpper(a, b *Bound) *Bound {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch c := a.V.Compare(b.V); {
	case c < 0:
		return a
	case c > 0:
		return b
	case !a.Inclusive:
		return a
	default:
		return b
	}
}

// Contains reports whether any interval in the set holds v.
func (s Set) Contains(v Version) bool {
	for _, i := range s {
		if i.Contains(v) {
			return true
		}
	}
	return false
}

// Overlaps reports whether the two unions share at least one version.
func (s Set) Overlaps(o Set) bool {
	for _, a := range s {
		for _, b := range o {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

// Intersect returns the pairwise non-empty intersections of s and o.
func (s Set) Intersect(o Set) Set {
	var out Set
	for _, a := range s {
		for _, b := range o {
			if x := a.Intersect(b); !x.Empty() {
				out = append(out, x)
			}
		}
	}
	return out
}

// IsAny reports whether the set contains an unbounded interval.
func (s Set) IsAny() bool {
	for _, i := range s {
		if i.Lower == nil && i.Upper == nil {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	if len(s) == 0 {
		return "<none>"
	}
	parts := make([]string, len(s))
	for i, iv := range s {
		parts[i] = iv.String()
	}
	return strings.Join(parts, " || ")
}
