package command

import (
	"net/url"
	"strings"
)

// Properties is an ordered multi-map of string keys to string values. Keys
// keep their first-insertion order and values keep their arrival order.
type Properties struct {
	keys   []string
	values map[string][]string
}

func (p *Properties) Add(key, value string) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], value)
}

// Keys returns keys in insertion order.
func (p Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Values returns a copy of all values stored for key.
func (p Properties) Values(key string) []string {
	return append([]string(nil), p.values[key]...)
}

// First returns the first value for key.
func (p Properties) First(key string) (string, bool) {
	vs := p.values[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func (p Properties) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p Properties) Len() int { return len(p.keys) }

// Equal reports whether both multi-maps hold the same keys in the same order
// with the same value sequences.
func (p Properties) Equal(o Properties) bool {
	if len(p.keys) != len(o.keys) {
		return false
	}
	for i, k := range p.keys {
		if o.keys[i] != k {
			return false
		}
		a, b := p.values[k], o.values[k]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Encode serializes the properties as a URL query string preserving key and
// value order, so that ParsePairs(Encode()) rebuilds an equal multi-map.
func (p Properties) Encode() string {
	var b strings.Builder
	for _, k := range p.keys {
		for _, v := range p.values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Pair is a single key/value occurrence in transport order.
type Pair struct {
	Key   string
	Value string
}

// ParsePairs decodes an application/x-www-form-urlencoded string keeping the
// order of occurrences, which url.ParseQuery discards.
func ParsePairs(raw string) ([]Pair, error) {
	var out []Pair
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		out = append(out, Pair{Key: key, Value: value})
	}
	return out, nil
}
