package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pyClause = regexp.MustCompile(`^(===|==|!=|~=|>=|<=|>|<|\^|~|=)?\s*(.+)$`)

// ParsePythonSpecifier converts a PEP 440 specifier set, or a Poetry
// constraint, into a version set.
//
// Commas join clauses; "||" or "|" separates alternatives. Exclusions (!=)
// are dropped, which can only widen the result. A bare version means an exact
// pin.
func ParsePythonSpecifier(raw string) (Set, error) {
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return Any, nil
	}

	var out Set
	for _, alt := range strings.Split(strings.ReplaceAll(raw, "||", "|"), "|") {
		group := Any
		for _, clause := range splitClauses(alt) {
			s, err := pythonClause(clause)
			if err != nil {
				return nil, err
			}
			group = group.Intersect(s)
		}
		out = append(out, group...)
	}
	return out, nil
}

// splitClauses splits on commas, and on whitespace between Poetry clauses
// such as ">=1.2 <2.0".
func splitClauses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		var cur string
		for _, f := range fields {
			if cur != "" && startsWithOperator(f) && !isOperatorOnly(cur) {
				out = append(out, cur)
				cur = ""
			}
			cur += f
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return out
}

func startsWithOperator(s string) bool {
	return strings.ContainsAny(s[:1], "<>=!~^")
}

func isOperatorOnly(s string) bool {
	return strings.Trim(s, "<>=!~^") == ""
}

func pythonClause(clause string) (Set, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" || clause == "*" {
		return Any, nil
	}
	m := pyClause.FindStringSubmatch(clause)
	if m == nil {
		return nil, fmt.Errorf("invalid specifier %q", clause)
	}
	op, ver := m[1], strings.TrimSpace(m[2])

	if op == "!=" {
		return Any, nil
	}
	if op == "===" {
		v, err := PEP440.Parse(ver)
		if err != nil {
			// Arbitrary equality compares strings; nothing to order.
			return Any, nil
		}
		return Set{Point(v)}, nil
	}

	if strings.HasSuffix(ver, ".*") {
		if op != "" && op != "==" && op != "=" {
			return nil, fmt.Errorf("wildcard not allowed with %q", op)
		}
		return pythonPrefix(strings.TrimSuffix(ver, ".*"))
	}

	v, err := PEP440.Parse(ver)
	if err != nil {
		return nil, err
	}
	switch op {
	case "", "==", "=":
		return Set{Point(v)}, nil
	case ">=":
		return Set{{Lower: &Bound{V: v, Inclusive: true}}}, nil
	case ">":
		return Set{{Lower: &Bound{V: v, Inclusive: false}}}, nil
	case "<=":
		return Set{{Upper: &Bound{V: v, Inclusive: true}}}, nil
	case "<":
		return Set{{Upper: &Bound{V: v, Inclusive: false}}}, nil
	case "~=":
		return compatibleRelease(ver, v)
	case "^":
		return poetryCaret(ver, v)
	case "~":
		return poetryTilde(ver, v)
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

// release returns the numeric release segments of a PEP 440 version string
// and its epoch prefix ("2!" or "").
func release(s string) ([]int, string, error) {
	epoch := ""
	if i := strings.IndexByte(s, '!'); i >= 0 {
		epoch, s = s[:i+1], s[i+1:]
	}
	s = strings.TrimPrefix(strings.ToLower(s), "v")
	var nums []int
	for _, f := range strings.Split(s, ".") {
		end := 0
		for end < len(f) && f[end] >= '0' && f[end] <= '9' {
			end++
		}
		if end == 0 {
			break
		}
		n, err := strconv.Atoi(f[:end])
		if err != nil {
			return nil, "", err
		}
		nums = append(nums, n)
		if end < len(f) {
			break
		}
	}
	if len(nums) == 0 {
		return nil, "", fmt.Errorf("invalid release %q", s)
	}
	return nums, epoch, nil
}

func joinRelease(epoch string, nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return epoch + strings.Join(parts, ".")
}

// bumpAt increments segment i and drops everything after it.
func bumpAt(nums []int, i int) []int {
	out := append([]int(nil), nums[:i+1]...)
	out[i]++
	return out
}

func halfOpen(lower Version, upperRaw string) (Set, error) {
	u, err := PEP440.Parse(upperRaw)
	if err != nil {
		return nil, err
	}
	return Set{{Lower: &Bound{V: lower, Inclusive: true}, Upper: &Bound{V: u, Inclusive: false}}}, nil
}

func pythonPrefix(prefix string) (Set, error) {
	nums, epoch, err := release(prefix)
	if err != nil {
		return nil, err
	}
	lo, err := PEP440.Parse(joinRelease(epoch, nums))
	if err != nil {
		return nil, err
	}
	return halfOpen(lo, joinRelease(epoch, bumpAt(nums, len(nums)-1)))
}

func compatibleRelease(raw string, v Version) (Set, error) {
	nums, epoch, err := release(raw)
	if err != nil {
		return nil, err
	}
	if len(nums) < 2 {
		return nil, fmt.Errorf("~= requires at least two release segments: %q", raw)
	}
	return halfOpen(v, joinRelease(epoch, bumpAt(nums, len(nums)-2)))
}

func poetryCaret(raw string, v Version) (Set, error) {
	nums, epoch, err := release(raw)
	if err != nil {
		return nil, err
	}
	i := 0
	for i < len(nums)-1 && nums[i] == 0 {
		i++
	}
	return halfOpen(v, joinRelease(epoch, bumpAt(nums, i)))
}

func poetryTilde(raw string, v Version) (Set, error) {
	nums, epoch, err := release(raw)
	if err != nil {
		return nil, err
	}
	i := 1
	if len(nums) == 1 {
		i = 0
	}
	return halfOpen(v, joinRelease(epoch, bumpAt(nums, i)))
}
