package exclude

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Rule
		ok   bool
	}{
		{"empty", "", Rule{}, false},
		{"comment hash", "# This is comment", Rule{}, false},
		{"comment hash leading space", " # This is comment", Rule{}, false},
		{"comment semicolon", "; This is comment", Rule{}, false},
		{"domain no space", "domain=ban.this.mirror", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"domain trailing comment", "domain=ban.this.mirror # Comment", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"domain spaces", "domain = ban.this.mirror", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"domain spaces and comment", "domain = ban.this.mirror # Comment", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"country lowercased", "country = SomeCountry", Rule{KindCountry, "somecountry", false}, true},
		{"country code", "country_code = SC", Rule{KindCountryCode, "sc", false}, true},
		{"bare token", "ban.this.mirror", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"bare token with comment", "ban.this.mirror # Comment", Rule{KindDomain, "ban.this.mirror", false}, true},
		{"negated line", "!domain=keep.this.mirror", Rule{KindDomain, "keep.this.mirror", true}, true},
		{"negated with space", "! domain = keep.this.mirror", Rule{KindDomain, "keep.this.mirror", true}, true},
		{"negated country", "!country=somecountry", Rule{KindCountry, "somecountry", true}, true},
		{"negated bare token", "!keep.this.mirror", Rule{KindDomain, "keep.this.mirror", true}, true},
		{"negation only", "!", Rule{}, false},
		{"negation then comment", "! # nothing", Rule{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, rule)
			}
		})
	}
}

func TestParseKeepsDefinitionOrder(t *testing.T) {
	input := `
# banned mirrors
country = SomeCountry
!domain=keep.this.mirror   ; override the country ban
ban.this-mirror.also
`
	rules, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, Rule{KindCountry, "somecountry", false}, rules[0])
	assert.Equal(t, Rule{KindDomain, "keep.this.mirror", true}, rules[1])
	assert.Equal(t, Rule{KindDomain, "ban.this-mirror.also", false}, rules[2])
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/excluded.conf", []byte(
		"ban.this.mirror\ncountry_code = sc # comment\n"), 0644))

	rules, err := LoadFile(fs, "/etc/excluded.conf")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, KindCountryCode, rules[1].Kind)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(afero.NewMemMapFs(), "/nope.conf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nope.conf")
}

func TestExcludedLastMatchWins(t *testing.T) {
	// Plain then negated: the later negated rule keeps the mirror.
	rules := Rules{
		{KindDomain, "a", false},
		{KindDomain, "a", true},
	}
	assert.False(t, rules.Excluded("a", "", ""))

	// Reversed order: the later plain rule excludes it.
	rules = Rules{
		{KindDomain, "a", true},
		{KindDomain, "a", false},
	}
	assert.True(t, rules.Excluded("a", "", ""))
}

func TestExcludedCountryOverride(t *testing.T) {
	// Ban a whole country, then un-ban one mirror in it.
	rules := Rules{
		{KindCountry, "somecountry", false},
		{KindDomain, "keep.this.mirror", true},
	}

	assert.True(t, rules.Excluded("other.mirror", "somecountry", "sc"))
	assert.False(t, rules.Excluded("keep.this.mirror", "somecountry", "sc"))
	assert.False(t, rules.Excluded("unrelated.mirror", "elsewhere", "el"))
}

func TestExcludedNoMatch(t *testing.T) {
	var rules Rules
	assert.False(t, rules.Excluded("any.mirror", "anywhere", "aw"))

	rules = Rules{{KindCountryCode, "sc", false}}
	assert.False(t, rules.Excluded("any.mirror", "anywhere", "aw"))
	assert.True(t, rules.Excluded("any.mirror", "anywhere", "sc"))
}

func TestExcludedEmptyKeyNeverMatches(t *testing.T) {
	// A mirror with an unparseable URL has an empty domain key; an empty
	// rule value must not match it.
	rules := Rules{{KindDomain, "", false}}
	assert.False(t, rules.Excluded("", "somewhere", "sw"))
}

func TestAddLiteralsAfterFileRules(t *testing.T) {
	rules := Rules{{KindCountry, "somecountry", false}}
	rules = rules.Add("!domain=keep.this.mirror", "# comment only", "")

	require.Len(t, rules, 2)
	assert.Equal(t, Rule{KindDomain, "keep.this.mirror", true}, rules[1])
}
