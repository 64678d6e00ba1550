// Package exclude implements the mirror exclusion rule set. Rules are an
// ordered list evaluated last-match-wins, so a later, more specific rule can
// override an earlier blanket one (ban a country, then un-ban one mirror
// in it with a negated domain rule).
package exclude

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// Kind identifies what part of a mirror record a rule matches against.
type Kind int

const (
	KindDomain Kind = iota
	KindCountry
	KindCountryCode
)

func (k Kind) String() string {
	switch k {
	case KindDomain:
		return "domain"
	case KindCountry:
		return "country"
	case KindCountryCode:
		return "country_code"
	}
	return "unknown"
}

// Rule is a single exclusion rule. Value is always lowercase. A negated rule
// explicitly keeps a matching mirror instead of excluding it.
type Rule struct {
	Kind   Kind
	Value  string
	Negate bool
}

// Rules is an ordered rule list. Definition order matters: Excluded scans in
// reverse so the last matching rule decides.
type Rules []Rule

// ParseLine converts one line of rule text into a Rule. The second return
// value is false for blank and comment-only lines, which produce no rule.
//
// Grammar: ["!"] (bare-domain | "domain" "=" value | "country" "=" value |
// "country_code" "=" value), with "#" or ";" starting a trailing comment.
// Comparison is case-insensitive; a bare token with no recognized keyword is
// treated as a domain rule.
func ParseLine(line string) (Rule, bool) {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		line = line[:i]
	}
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return Rule{}, false
	}

	negate := false
	if strings.HasPrefix(line, "!") {
		negate = true
		line = strings.TrimSpace(strings.TrimPrefix(line, "!"))
		if line == "" {
			return Rule{}, false
		}
	}

	if key, value, found := strings.Cut(line, "="); found {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if strings.HasPrefix(key, "!") {
			negate = true
			key = strings.TrimSpace(strings.TrimPrefix(key, "!"))
		}
		switch key {
		case "domain":
			return Rule{Kind: KindDomain, Value: value, Negate: negate}, true
		case "country":
			return Rule{Kind: KindCountry, Value: value, Negate: negate}, true
		case "country_code":
			return Rule{Kind: KindCountryCode, Value: value, Negate: negate}, true
		}
	}

	// No recognized keyword: the whole token is a domain.
	return Rule{Kind: KindDomain, Value: line, Negate: negate}, true
}

// Parse reads rules from r, one per line, in definition order.
func Parse(r io.Reader) (Rules, error) {
	var rules Rules
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if rule, ok := ParseLine(scanner.Text()); ok {
			rules = append(rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclusion rules: %w", err)
	}
	return rules, nil
}

// LoadFile reads an exclusion rule file from fs.
func LoadFile(fs afero.Fs, path string) (Rules, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening exclusion file %s: %w", path, err)
	}
	defer f.Close()

	rules, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing exclusion file %s: %w", path, err)
	}
	return rules, nil
}

// Add appends literal rules (e.g. from CLI flags) after any file-loaded
// rules, so literals override the file on conflict.
func (rs Rules) Add(literals ...string) Rules {
	for _, lit := range literals {
		if rule, ok := ParseLine(lit); ok {
			rs = append(rs, rule)
		}
	}
	return rs
}

// Excluded reports whether a mirror with the given lowercase match keys is
// excluded. Rules are scanned last-first; the first rule whose kind matches
// one of the keys decides: plain rule excludes, negated rule keeps. With no
// match the mirror is not excluded.
func (rs Rules) Excluded(domain, country, countryCode string) bool {
	for i := len(rs) - 1; i >= 0; i-- {
		rule := rs[i]
		var key string
		switch rule.Kind {
		case KindDomain:
			key = domain
		case KindCountry:
			key = country
		case KindCountryCode:
			key = countryCode
		}
		if key != "" && key == rule.Value {
			return !rule.Negate
		}
	}
	return false
}
