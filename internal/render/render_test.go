package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name     string
		template string
		bindings map[string]string
		want     string
	}{
		{"unknown kept", "{{a}} {{b}}", map[string]string{"a": "X"}, "X {{b}}"},
		{"inner spaces", "Bonjour {{ locataire }},", map[string]string{"locataire": "Awa"}, "Bonjour Awa,"},
		{"case insensitive", "{{Montant}}", map[string]string{"montant": "45 000 F CFA"}, "45 000 F CFA"},
		{"repeated", "{{date}}/{{date}}", map[string]string{"date": "01/03/2099"}, "01/03/2099/01/03/2099"},
		{"no placeholders", "plain text", map[string]string{"a": "X"}, "plain text"},
		{"empty binding", "[{{note}}]", map[string]string{"note": ""}, "[]"},
		{"malformed left alone", "{{ a b }} {a}", map[string]string{"a": "X"}, "{{ a b }} {a}"},
		{"values are literal", "{{a}}", map[string]string{"a": "{{b}} $1 ${a}", "b": "nope"}, "{{b}} $1 ${a}"},
		{"template syntax is inert", "{{printf \"%s\" .}}", nil, "{{printf \"%s\" .}}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render(tc.template, tc.bindings))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{locataire}} doit {{montant}} avant le {{date}} ({{ LOCATAIRE }})")
	assert.Equal(t, []string{"locataire", "montant", "date"}, got)
}
