package command

import (
	"mime"
	"sort"
	"strconv"
	"strings"
)

// DefaultMediaType is negotiated when the caller expresses no preference.
const DefaultMediaType = "application/xml"

const wildcard = "*/*"

// typeAliases are the short names accepted by the override parameters.
var typeAliases = map[string]string{
	"xml":  "application/xml",
	"json": "application/json",
	"csv":  "text/csv",
}

// expandAliases rewrites short type names in an Accept-style list to their
// media types, keeping any parameters.
func expandAliases(value string) string {
	parts := strings.Split(value, ",")
	for i, part := range parts {
		name, params, _ := strings.Cut(part, ";")
		if mt, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			parts[i] = mt
			if params != "" {
				parts[i] += ";" + params
			}
		}
	}
	return strings.Join(parts, ",")
}

// ParseAccept parses an Accept header value into media ranges ordered by
// descending quality. Ranges with equal quality keep header order. Parameters
// other than q are dropped, malformed entries are skipped.
func ParseAccept(header string) []string {
	type ranked struct {
		value string
		q     float64
	}
	var items []ranked
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(part)
		if err != nil || !strings.Contains(mt, "/") {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		items = append(items, ranked{value: mt, q: q})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].q > items[j].q })

	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.value)
	}
	return out
}

// MediaMatches reports whether the concrete media type satisfies the range
// ("*/*", "type/*" or an exact type).
func MediaMatches(mediaRange, concrete string) bool {
	mediaRange = strings.ToLower(mediaRange)
	concrete = strings.ToLower(concrete)
	if mediaRange == wildcard || mediaRange == concrete {
		return true
	}
	rt, rs, ok := strings.Cut(mediaRange, "/")
	if !ok || rs != "*" {
		return false
	}
	ct, _, _ := strings.Cut(concrete, "/")
	return rt == ct
}

// normalizeAcceptable substitutes the canonical type for bare wildcards and
// falls back to it when no range was given.
func normalizeAcceptable(ranges []string) []string {
	out := make([]string, 0, len(ranges))
	seen := make(map[string]struct{}, len(ranges))
	for _, r := range ranges {
		r = strings.ToLower(r)
		if r == wildcard {
			r = DefaultMediaType
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return []string{DefaultMediaType}
	}
	return out
}
