// Package sgapath implements SGA's alias:\path syntax as a set of pure,
// deterministic functions, grounded on the component-cut helpers in the
// teacher's root-level pathops.go (plen/pcut/ptrim), adapted from
// forward-slash POSIX paths to SGA's backslash-separated, lowercased
// path space.
package sgapath

import "strings"

// Separator is the canonical on-disk path separator.
const Separator = '\\'

// Parsed is the result of splitting an alias-qualified path into its
// alias (if any) and its backslash-separated components.
type Parsed struct {
	Alias      string
	HasAlias   bool
	Components []string
}

// Parse splits p on the first ':' into (alias, rest), then splits rest
// into backslash-separated components. Forward slashes are accepted
// and normalized to backslashes before splitting, per §4.3.
func Parse(p string) Parsed {
	alias, hasAlias, rest := cutAlias(p)
	rest = FixSeparators(rest)
	rest = strings.Trim(rest, string(Separator))

	var components []string
	if rest != "" {
		for _, c := range strings.Split(rest, string(Separator)) {
			if c != "" {
				components = append(components, c)
			}
		}
	}
	return Parsed{Alias: alias, HasAlias: hasAlias, Components: components}
}

func cutAlias(p string) (alias string, hasAlias bool, rest string) {
	i := strings.IndexByte(p, ':')
	if i < 0 {
		return "", false, p
	}
	return p[:i], true, p[i+1:]
}

// FixSeparators rewrites every forward slash to a backslash.
func FixSeparators(p string) string {
	return strings.ReplaceAll(p, "/", string(Separator))
}

// FixCase lowercases p, matching the on-disk storage convention.
func FixCase(p string) string {
	return strings.ToLower(p)
}

// Join concatenates components with Separator, collapsing adjacent
// separators. If a later component begins with Separator, it resets
// the accumulator to that component (an absolute component discards
// everything joined so far), mirroring §4.3's join semantics.
func Join(parts ...string) string {
	var acc string
	for _, p := range parts {
		if p == "" {
			continue
		}
		p = FixSeparators(p)
		if strings.HasPrefix(p, string(Separator)) {
			acc = p
			continue
		}
		if acc == "" || strings.HasSuffix(acc, string(Separator)) {
			acc += p
		} else {
			acc += string(Separator) + p
		}
	}
	return collapseSeparators(acc)
}

func collapseSeparators(s string) string {
	var b strings.Builder
	lastWasSep := false
	for _, r := range s {
		if r == Separator {
			if lastWasSep {
				continue
			}
			lastWasSep = true
		} else {
			lastWasSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Split divides p at its last separator into (parent, basename).
func Split(p string) (parent, basename string) {
	p = FixSeparators(p)
	trimmed := strings.TrimRight(p, string(Separator))
	i := strings.LastIndexByte(trimmed, Separator)
	if i < 0 {
		return "", trimmed
	}
	return trimmed[:i], trimmed[i+1:]
}

// StripRoot removes a single leading separator, if present.
func StripRoot(p string) string {
	p = FixSeparators(p)
	return strings.TrimPrefix(p, string(Separator))
}

// Build reassembles components into an alias-qualified path string,
// inserting a leading separator (and the alias prefix) when alias is
// non-empty.
func Build(components []string, alias string) string {
	body := strings.Join(components, string(Separator))
	if alias == "" {
		return body
	}
	if body == "" {
		return alias + ":" + string(Separator)
	}
	return alias + ":" + string(Separator) + body
}

// Equal reports whether two paths refer to the same location under
// SGA's case-folded, separator-normalized comparison rule.
func Equal(a, b string) bool {
	return FixCase(FixSeparators(a)) == FixCase(FixSeparators(b))
}
