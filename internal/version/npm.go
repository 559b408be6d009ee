package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	npmOpSpace = regexp.MustCompile(`(<=|>=|<|>|=|~>|~|\^)\s+`)
	npmHyphen  = regexp.MustCompile(`^\s*(\S+)\s+-\s+(\S+)\s*$`)
)

// partial is an npm version with optional wildcard components.
type partial struct {
	nums  [3]int
	parts int
	pre   string
}

func parsePartial(s string) (partial, error) {
	var p partial
	s = strings.TrimLeft(strings.TrimSpace(s), "=v")
	if s == "" || s == "*" || s == "x" || s == "X" {
		return p, nil
	}
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i]
	}
	core := s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		core, p.pre = s[:i], s[i+1:]
	}
	fields := strings.Split(core, ".")
	if len(fields) > 3 {
		return p, fmt.Errorf("invalid version %q", s)
	}
	for i, f := range fields {
		if f == "x" || f == "X" || f == "*" {
			break
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid version %q", s)
		}
		p.nums[i] = n
		p.parts = i + 1
	}
	if p.parts < 3 {
		p.pre = ""
	}
	return p, nil
}

func (p partial) floor() string {
	v := fmt.Sprintf("%d.%d.%d", p.nums[0], p.nums[1], p.nums[2])
	if p.pre != "" {
		v += "-" + p.pre
	}
	return v
}

// ceil is the first version past the wildcard, or "" when unbounded.
func (p partial) ceil() string {
	switch p.parts {
	case 1:
		return fmt.Sprintf("%d.0.0", p.nums[0]+1)
	case 2:
		return fmt.Sprintf("%d.%d.0", p.nums[0], p.nums[1]+1)
	default:
		return ""
	}
}

// ParseNpmRange converts an npm semver range into a version set.
// Specs that name no registry version (git, file, tags, aliases) match
// every version.
func ParseNpmRange(raw string) (Set, error) {
	raw = strings.TrimSpace(raw)
	if isNonRegistrySpec(raw) {
		return Any, nil
	}
	var out Set
	for _, alt := range strings.Split(raw, "||") {
		iv, err := parseNpmComparatorSet(alt)
		if err != nil {
			return nil, err
		}
		if !iv.Empty() {
			out = append(out, iv)
		}
	}
	return out, nil
}

func isNonRegistrySpec(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "*", "x", "latest", "next":
		return true
	}
	return strings.Contains(raw, ":") || strings.Contains(raw, "/")
}

func parseNpmComparatorSet(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if m := npmHyphen.FindStringSubmatch(s); m != nil {
		return npmHyphenRange(m[1], m[2])
	}
	s = npmOpSpace.ReplaceAllString(s, "$1")
	iv := Interval{}
	for _, tok := range strings.Fields(s) {
		c, err := npmComparator(tok)
		if err != nil {
			return Interval{}, err
		}
		iv = iv.Intersect(c)
	}
	return iv, nil
}

func npmHyphenRange(lo, hi string) (Interval, error) {
	l, err := parsePartial(lo)
	if err != nil {
		return Interval{}, err
	}
	h, err := parsePartial(hi)
	if err != nil {
		return Interval{}, err
	}
	iv := Interval{}
	if l.parts > 0 {
		if iv.Lower, err = semverBound(l.floor(), true); err != nil {
			return Interval{}, err
		}
	}
	switch {
	case h.parts == 3:
		iv.Upper, err = semverBound(h.floor(), true)
	case h.parts > 0:
		iv.Upper, err = semverBound(h.ceil(), false)
	}
	return iv, err
}

func npmComparator(tok string) (Interval, error) {
	op := ""
	for _, candidate := range []string{">=", "<=", "~>", ">", "<", "=", "~", "^"} {
		if strings.HasPrefix(tok, candidate) {
			op = candidate
			tok = tok[len(candidate):]
			break
		}
	}
	p, err := parsePartial(tok)
	if err != nil {
		return Interval{}, err
	}
	if p.parts == 0 {
		if op == "<" || op == ">" {
			// "<*" and ">*" admit nothing.
			return Interval{Lower: mustSemverBound("0.0.0", true), Upper: mustSemverBound("0.0.0", false)}, nil
		}
		return Interval{}, nil
	}

	switch op {
	case "", "=":
		return npmXRange(p)
	case ">=":
		return boundedSemver(p.floor(), true, "", false)
	case ">":
		if p.parts == 3 {
			return boundedSemver(p.floor(), false, "", false)
		}
		return boundedSemver(p.ceil(), true, "", false)
	case "<":
		return boundedSemver("", false, p.floor(), false)
	case "<=":
		if p.parts == 3 {
			return boundedSemver("", false, p.floor(), true)
		}
		return boundedSemver("", false, p.ceil(), false)
	case "~", "~>":
		return npmTilde(p)
	case "^":
		return npmCaret(p)
	}
	return Interval{}, fmt.Errorf("unsupported operator %q", op)
}

func npmXRange(p partial) (Interval, error) {
	if p.parts == 3 {
		b, err := semverBound(p.floor(), true)
		if err != nil {
			return Interval{}, err
		}
		return Interval{Lower: b, Upper: &Bound{V: b.V, Inclusive: true}}, nil
	}
	return boundedSemver(p.floor(), true, p.ceil(), false)
}

func npmTilde(p partial) (Interval, error) {
	if p.parts == 1 {
		return boundedSemver(p.floor(), true, p.ceil(), false)
	}
	return boundedSemver(p.floor(), true, fmt.Sprintf("%d.%d.0", p.nums[0], p.nums[1]+1), false)
}

func npmCaret(p partial) (Interval, error) {
	var upper string
	switch {
	case p.nums[0] > 0 || p.parts == 1:
		upper = fmt.Sprintf("%d.0.0", p.nums[0]+1)
	case p.nums[1] > 0 || p.parts == 2:
		upper = fmt.Sprintf("0.%d.0", p.nums[1]+1)
	default:
		upper = fmt.Sprintf("0.0.%d", p.nums[2]+1)
	}
	return boundedSemver(p.floor(), true, upper, false)
}

func boundedSemver(lo string, loInc bool, hi string, hiInc bool) (Interval, error) {
	var (
		iv  Interval
		err error
	)
	if lo != "" {
		if iv.Lower, err = semverBound(lo, loInc); err != nil {
			return Interval{}, err
		}
	}
	if hi != "" {
		if iv.Upper, err = semverBound(hi, hiInc); err != nil {
			return Interval{}, err
		}
	}
	return iv, nil
}

func semverBound(s string, inclusive bool) (*Bound, error) {
	v, err := Semver.Parse(s)
	if err != nil {
		return nil, err
	}
	return &Bound{V: v, Inclusive: inclusive}, nil
}

func mustSemverBound(s string, inclusive bool) *Bound {
	b, err := semverBound(s, inclusive)
	if err != nil {
		panic(err)
	}
	return b
}
