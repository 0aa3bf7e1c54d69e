// Package auth implements the connection-accept authentication hook of
// spec.md §4.9: subvolume-scoped allow/reject address evaluation and
// the privileged-port gate.
package auth

import (
	"path"
	"strings"
)

// Decision is the outcome of evaluating a peer address against a
// subvolume's allow/reject lists.
type Decision int

const (
	DontCare Decision = iota
	Accept
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "ACCEPT"
	case Reject:
		return "REJECT"
	default:
		return "DONT_CARE"
	}
}

// Rule is one parsed clause of an allow/reject option list: a subdir
// (default "/" for a bare pattern) and the address patterns that apply
// to it (spec.md §4.9: "either (a) a subdir-qualified clause
// <path>(<addr-list>) or (b) a bare address pattern").
type Rule struct {
	Subdir   string
	Patterns []string
}

// ParseRules parses an option value (comma-separated entries, each
// either a bare pattern or a `<path>(<addr-list>)` clause whose
// addr-list is itself comma-separated) into Rules.
func ParseRules(s string) []Rule {
	var rules []Rule
	for _, entry := range splitTopLevel(s) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if i := strings.IndexByte(entry, '('); i >= 0 && strings.HasSuffix(entry, ")") {
			subdir := strings.TrimSpace(entry[:i])
			if subdir == "" {
				subdir = "/"
			}
			inner := entry[i+1 : len(entry)-1]
			rules = append(rules, Rule{Subdir: subdir, Patterns: splitTopLevel(inner)})
			continue
		}
		rules = append(rules, Rule{Subdir: "/", Patterns: []string{entry}})
	}
	return rules
}

// splitTopLevel splits s on commas that are not nested inside
// parentheses, trimming whitespace from each piece.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if start < len(s) {
		out = append(out, strings.TrimSpace(s[start:]))
	}
	return out
}

// matchAddr tests pattern against addr, honoring a leading '!'
// negation and glob-style wildcards (spec.md §4.9: "a leading `!`
// negates"). DNS names, dotted-quad globs, and IPv6 strings are all
// matched the same way: as a shell glob over the literal string.
func matchAddr(pattern, addr string) bool {
	neg := strings.HasPrefix(pattern, "!")
	if neg {
		pattern = pattern[1:]
	}
	matched, err := path.Match(pattern, addr)
	if err != nil {
		matched = pattern == addr
	}
	if neg {
		return !matched
	}
	return matched
}

func anyMatches(rules []Rule, subdir, addr string) bool {
	for _, r := range rules {
		if r.Subdir != subdir {
			continue
		}
		for _, p := range r.Patterns {
			if matchAddr(p, addr) {
				return true
			}
		}
	}
	return false
}

// Evaluate applies spec.md §4.9's evaluation order: reject takes
// precedence over allow, and a peer matching neither list is
// DontCare.
func Evaluate(subdir, peerAddr string, allow, reject []Rule) Decision {
	if anyMatches(reject, subdir, peerAddr) {
		return Reject
	}
	if anyMatches(allow, subdir, peerAddr) {
		return Accept
	}
	return DontCare
}

// CheckInsecurePort applies spec.md §4.9's port-privilege gate: a peer
// on a non-privileged port (>= 1024) is rejected unless allowInsecure
// is set; AF_UNIX peers (isUnix) bypass the check entirely.
func CheckInsecurePort(peerPort int, isUnix, allowInsecure bool) bool {
	if isUnix {
		return true
	}
	if allowInsecure {
		return true
	}
	return peerPort > 0 && peerPort < 1024
}
