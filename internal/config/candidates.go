// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

// CandidateList is an ordered list of identifiers. Config files may spell it
// as a delimited string ("a, b") or as a sequence; both decode to the same
// normalized slice.
type CandidateList []string

// ParseCandidates splits a delimited identifier string. Full-width and
// ideographic commas count as separators, whitespace is trimmed, empty and
// repeated entries are dropped.
func ParseCandidates(s string) []string {
	return normalizeCandidates([]string{s})
}

var ideographicComma = strings.NewReplacer("\u3001", ",", "\uff64", ",")

func normalizeCandidates(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = ideographicComma.Replace(item)
		item = width.Narrow.String(item)
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (c *CandidateList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = ParseCandidates(s)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*c = normalizeCandidates(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// MarshalYAML always writes the sequence form.
func (c CandidateList) MarshalYAML() (any, error) {
	return []string(c), nil
}

// UnmarshalTOML accepts a string or an array of strings.
func (c *CandidateList) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*c = ParseCandidates(v)
		return nil
	case []any:
		items := make([]string, 0, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return fmt.Errorf("element %d: expected string, got %T", i, e)
			}
			items = append(items, s)
		}
		*c = normalizeCandidates(items)
		return nil
	default:
		return fmt.Errorf("expected a string or an array of strings, got %T", data)
	}
}
