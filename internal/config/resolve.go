package config

import (
	"fmt"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
)

// ResolveName loads the named document from the store and flattens its
// extends chain into the ordered FeedSpec list the orchestrator consumes.
func ResolveName(name string, store Store) ([]FeedSpec, error) {
	doc, err := store.LoadByName(name)
	if err != nil {
		return nil, err
	}
	return resolve(doc, store, map[string]bool{name: true})
}

// Resolve flattens the extends chain of an already-loaded document.
func Resolve(doc Document, store Store) ([]FeedSpec, error) {
	return resolve(doc, store, map[string]bool{})
}

// resolve is a pure function over immutable documents: it never mutates doc
// or anything returned by the store. visited carries the names already on
// the extends chain for cycle detection.
func resolve(doc Document, store Store, visited map[string]bool) ([]FeedSpec, error) {
	if doc.Options == nil || doc.Options.Extends == "" {
		return finish(doc.Feeds)
	}

	base := doc.Options.Extends
	if visited[base] {
		return nil, apperr.NewConfigResolution(fmt.Sprintf("extends cycle through %q", base))
	}
	visited[base] = true

	baseDoc, err := store.LoadByName(base)
	if err != nil {
		// Lookup failure (missing base or parse error) honours extendFail:
		// "ignore" treats the document as if extends were absent, anything
		// else is fatal.
		if doc.Options.ExtendFail == ExtendFailIgnore {
			return finish(doc.Feeds)
		}
		return nil, apperr.WrapConfigResolution(fmt.Sprintf("resolving base configuration %q", base), err)
	}

	baseFeeds, err := resolve(baseDoc, store, visited)
	if err != nil {
		return nil, err
	}

	return finish(merge(baseFeeds, doc.Feeds))
}

// merge overlays the extending document's feeds onto the resolved base.
// Same-named specs are overridden per top-level key (url, cache, encoding,
// filters, modify each replaced wholesale when present in the override, never
// deep-merged). Base-only specs pass through in base order; new specs are
// appended in declaration order. An extending document cannot delete a base
// spec.
func merge(base, overlay []FeedSpec) []FeedSpec {
	overlayByName := make(map[string]FeedSpec, len(overlay))
	for _, spec := range overlay {
		overlayByName[spec.Name] = spec
	}

	out := make([]FeedSpec, 0, len(base)+len(overlay))
	seen := make(map[string]bool, len(base))
	for _, b := range base {
		seen[b.Name] = true
		if o, ok := overlayByName[b.Name]; ok {
			out = append(out, override(b, o))
			continue
		}
		out = append(out, b)
	}

	for _, o := range overlay {
		if !seen[o.Name] {
			out = append(out, o)
		}
	}

	return out
}

func override(base, over FeedSpec) FeedSpec {
	out := base
	if over.URL != "" {
		out.URL = over.URL
	}
	if over.Cache != nil {
		out.Cache = over.Cache
	}
	if over.Encoding != "" {
		out.Encoding = over.Encoding
	}
	if over.Filters != nil {
		out.Filters = over.Filters
	}
	if over.Modify != nil {
		out.Modify = over.Modify
	}
	return out
}

// finish copies and final-checks the resolved list. URL presence can only be
// verified here, once overrides have been folded in.
func finish(specs []FeedSpec) ([]FeedSpec, error) {
	out := append([]FeedSpec(nil), specs...)
	for _, spec := range out {
		if spec.URL == "" {
			return nil, apperr.NewConfigResolution(fmt.Sprintf("feed %q has no url after resolution", spec.Name))
		}
	}
	return out, nil
}
