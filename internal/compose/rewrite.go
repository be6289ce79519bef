package compose

import "strings"

// Rewrite replaces image declarations according to plan, a mapping from
// old "repository:tag" to new "repository:tag". A line is rewritten
// only when its full value token parses to exactly an old key; partial
// matches (a different image sharing a substring) are left alone. The
// rewritten value takes the single-quoted canonical form, keeping the
// original indentation, line ending and anything after the value.
// Every line not matched by the plan is byte-identical to the input.
// Entries whose old and new values are equal are no-ops, so applying a
// plan twice changes nothing the second time.
func Rewrite(text string, plan map[string]string) string {
	if len(plan) == 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		body := strings.TrimSuffix(line, "\r")
		m := imageLinePattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		ref, err := ParseImageValue(m[2] + m[3] + m[4])
		if err != nil {
			continue
		}
		next, ok := plan[ref.String()]
		if !ok || next == ref.String() {
			continue
		}
		rebuilt := m[1] + "'" + next + "'" + m[5]
		if strings.HasSuffix(line, "\r") {
			rebuilt += "\r"
		}
		lines[i] = rebuilt
	}
	return strings.Join(lines, "\n")
}
