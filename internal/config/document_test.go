package config

import (
	"testing"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
)

func TestParseDocument_Basic(t *testing.T) {
	doc, err := ParseDocument([]byte(`[
		{"conf": true, "extends": "common", "extendFail": "ignore"},
		{"url": "https://example.com/a.ics", "name": "a", "cache": 10},
		{"url": "https://example.com/b.ics", "name": "b", "encoding": "ISO-8859-1"}
	]`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}

	if doc.Options == nil {
		t.Fatal("Options should be set")
	}
	if doc.Options.Extends != "common" {
		t.Errorf("Extends = %q, want %q", doc.Options.Extends, "common")
	}
	if doc.Options.ExtendFail != ExtendFailIgnore {
		t.Errorf("ExtendFail = %q, want %q", doc.Options.ExtendFail, ExtendFailIgnore)
	}
	if len(doc.Feeds) != 2 {
		t.Fatalf("len(Feeds) = %d, want 2", len(doc.Feeds))
	}
	if doc.Feeds[0].CacheTTLMinutes() != 10 {
		t.Errorf("CacheTTLMinutes = %d, want 10", doc.Feeds[0].CacheTTLMinutes())
	}
	if doc.Feeds[1].CacheTTLMinutes() != 0 {
		t.Errorf("CacheTTLMinutes without cache = %d, want 0", doc.Feeds[1].CacheTTLMinutes())
	}
}

func TestParseDocument_NoMarker(t *testing.T) {
	doc, err := ParseDocument([]byte(`[{"url": "https://example.com/a.ics", "name": "a"}]`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if doc.Options != nil {
		t.Error("Options should be nil without a marker entry")
	}
	if len(doc.Feeds) != 1 {
		t.Errorf("len(Feeds) = %d, want 1", len(doc.Feeds))
	}
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code apperr.Code
	}{
		{
			name: "not an array",
			raw:  `{"url": "x"}`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "marker not first",
			raw:  `[{"url": "u", "name": "a"}, {"conf": true}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "marker with conf false",
			raw:  `[{"conf": false}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "unknown extendFail value",
			raw:  `[{"conf": true, "extends": "x", "extendFail": "retry"}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "unknown key in feed entry",
			raw:  `[{"url": "u", "name": "a", "caching": 10}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "missing name",
			raw:  `[{"url": "u"}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "unknown encoding",
			raw:  `[{"url": "u", "name": "a", "encoding": "not-a-charset"}]`,
			code: apperr.CodeConfigResolution,
		},
		{
			name: "exclude and includeOnly on one field",
			raw:  `[{"url": "u", "name": "a", "filters": {"name": {"exclude": "x", "includeOnly": "y"}}}]`,
			code: apperr.CodeFilterRule,
		},
		{
			name: "malformed regex",
			raw:  `[{"url": "u", "name": "a", "filters": {"description": {"exclude": "("}}}]`,
			code: apperr.CodeFilterRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !apperr.Is(err, tt.code) {
				t.Errorf("error code = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFilterRuleCompile(t *testing.T) {
	pat := "Lunch"
	rule := &FilterRule{Exclude: &pat, IgnoreCase: true}

	re, err := rule.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !re.MatchString("Team LUNCH break") {
		t.Error("ignoreCase pattern should match regardless of case")
	}

	caseSensitive := &FilterRule{Exclude: &pat}
	re, err = caseSensitive.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if re.MatchString("team lunch") {
		t.Error("case-sensitive pattern should not match lowercase")
	}

	// Dotall: patterns cross line boundaries, as in the reference service.
	dot := "start.end"
	re, err = (&FilterRule{IncludeOnly: &dot}).Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !re.MatchString("start\nend") {
		t.Error("pattern should match across newlines")
	}

	empty := &FilterRule{IgnoreCase: true}
	re, err = empty.Compile()
	if err != nil || re != nil {
		t.Errorf("empty rule should compile to nil, got %v, %v", re, err)
	}
}
