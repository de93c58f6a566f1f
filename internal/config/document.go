package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
)

// A Document is the parsed form of one endpoint's JSON configuration: an
// optional GlobalOptions marker followed by FeedSpecs. Documents are
// immutable once parsed; resolution builds new ones rather than mutating.
type Document struct {
	Options *GlobalOptions
	Feeds   []FeedSpec
}

// GlobalOptions is the `{"conf": true}` marker entry. It may only appear
// as the first entry of a document.
type GlobalOptions struct {
	Conf       bool   `json:"conf"`
	Extends    string `json:"extends,omitempty"`
	ExtendFail string `json:"extendFail,omitempty"`
}

const (
	ExtendFailFail   = "fail"
	ExtendFailIgnore = "ignore"
)

// FeedSpec describes one remote calendar source and the filter/modify rules
// applied to its events. Identity is Name.
type FeedSpec struct {
	URL      string     `json:"url"`
	Name     string     `json:"name"`
	Cache    *int       `json:"cache,omitempty"` // TTL in minutes; absent or <=0 means never cached
	Encoding string     `json:"encoding,omitempty"`
	Filters  *FilterSet `json:"filters,omitempty"`
	Modify   *ModifySet `json:"modify,omitempty"`
}

// CacheTTLMinutes returns the cache TTL, or 0 when the feed is not cached.
func (f FeedSpec) CacheTTLMinutes() int {
	if f.Cache == nil || *f.Cache <= 0 {
		return 0
	}
	return *f.Cache
}

// FilterSet holds the per-field filter rules. Only the name and description
// fields of an event can be filtered on.
type FilterSet struct {
	Name        *FilterRule `json:"name,omitempty"`
	Description *FilterRule `json:"description,omitempty"`
}

// FilterRule is a single include/exclude regex rule for one field.
// Exclude and IncludeOnly are mutually exclusive.
type FilterRule struct {
	Exclude     *string `json:"exclude,omitempty"`
	IncludeOnly *string `json:"includeOnly,omitempty"`
	IgnoreCase  bool    `json:"ignoreCase,omitempty"`
}

// Compile builds the rule's regex. Patterns always run in dotall mode, with
// case folding when IgnoreCase is set, matching the reference behaviour.
func (r *FilterRule) Compile() (*regexp.Regexp, error) {
	pattern := ""
	switch {
	case r.Exclude != nil:
		pattern = *r.Exclude
	case r.IncludeOnly != nil:
		pattern = *r.IncludeOnly
	default:
		return nil, nil
	}

	flags := "(?s)"
	if r.IgnoreCase {
		flags = "(?si)"
	}
	return regexp.Compile(flags + pattern)
}

// ModifySet holds the per-field modification rules.
type ModifySet struct {
	Time        *TimeModify `json:"time,omitempty"`
	Name        *TextModify `json:"name,omitempty"`
	Description *TextModify `json:"description,omitempty"`
	Location    *TextModify `json:"location,omitempty"`
}

// TextModify rewrites one text field. RedactAs, when set, replaces the value
// outright and prefix/suffix are ignored.
type TextModify struct {
	AddPrefix string  `json:"addPrefix,omitempty"`
	AddSuffix string  `json:"addSuffix,omitempty"`
	RedactAs  *string `json:"redactAs,omitempty"`
}

// TimeModify wraps the timestamp shift rule.
type TimeModify struct {
	Shift *TimeShift `json:"shift,omitempty"`
}

// TimeShift is the calendar offset applied to DTSTART and DTEND. All
// components default to 0 and are additive.
type TimeShift struct {
	Year   int `json:"year,omitempty"`
	Month  int `json:"month,omitempty"`
	Day    int `json:"day,omitempty"`
	Hour   int `json:"hour,omitempty"`
	Minute int `json:"minute,omitempty"`
}

// IsZero reports whether the shift is a no-op.
func (s TimeShift) IsZero() bool {
	return s.Year == 0 && s.Month == 0 && s.Day == 0 && s.Hour == 0 && s.Minute == 0
}

// ParseDocument parses and validates one endpoint's raw JSON document.
// Unknown keys, a misplaced GlobalOptions marker, missing url/name,
// conflicting filter modes and malformed regexes are all rejected here so
// that a bad document never reaches the merge path.
func ParseDocument(data []byte) (Document, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return Document{}, apperr.WrapConfigResolution("document is not a JSON array", err)
	}

	var doc Document
	for i, raw := range entries {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return Document{}, apperr.WrapConfigResolution(fmt.Sprintf("entry %d is not an object", i), err)
		}

		if _, isMarker := probe["conf"]; isMarker {
			if i != 0 {
				return Document{}, apperr.NewConfigResolution("global options entry must be first in the document")
			}
			var opts GlobalOptions
			if err := strictUnmarshal(raw, &opts); err != nil {
				return Document{}, apperr.WrapConfigResolution("invalid global options entry", err)
			}
			if !opts.Conf {
				return Document{}, apperr.NewConfigResolution(`global options entry must set "conf": true`)
			}
			switch opts.ExtendFail {
			case "", ExtendFailFail, ExtendFailIgnore:
			default:
				return Document{}, apperr.NewConfigResolution(fmt.Sprintf("unknown extendFail value %q", opts.ExtendFail))
			}
			doc.Options = &opts
			continue
		}

		var spec FeedSpec
		if err := strictUnmarshal(raw, &spec); err != nil {
			return Document{}, apperr.WrapConfigResolution(fmt.Sprintf("invalid feed entry %d", i), err)
		}
		if err := spec.validate(); err != nil {
			return Document{}, err
		}
		doc.Feeds = append(doc.Feeds, spec)
	}

	return doc, nil
}

func (f FeedSpec) validate() error {
	if f.Name == "" {
		return apperr.NewConfigResolution("feed entry is missing a name")
	}
	// URL presence is checked after resolution: an extending document may
	// legitimately carry a partial spec that overrides a base feed.

	if f.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(f.Encoding)
		if err != nil || enc == nil {
			return apperr.NewConfigResolution(fmt.Sprintf("feed %q: unknown encoding %q", f.Name, f.Encoding))
		}
	}

	if f.Filters != nil {
		if err := validateFilter(f.Name, "name", f.Filters.Name); err != nil {
			return err
		}
		if err := validateFilter(f.Name, "description", f.Filters.Description); err != nil {
			return err
		}
	}

	return nil
}

func validateFilter(feed, field string, rule *FilterRule) error {
	if rule == nil {
		return nil
	}
	if rule.Exclude != nil && rule.IncludeOnly != nil {
		return apperr.NewFilterRule(fmt.Sprintf("feed %q: cannot set both exclude and includeOnly on %s", feed, field))
	}
	if _, err := rule.Compile(); err != nil {
		return apperr.NewFilterRule(fmt.Sprintf("feed %q: invalid %s pattern: %v", feed, field, err))
	}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
