// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package extract turns message text into category-specific structured
// records. Every field is filled by an ordered chain of pure rules where the
// first match wins; unmatched fields are left absent.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// Extractor is the extractor variant for a single category.
type Extractor struct {
	spec Spec
}

// NewExtractor creates an extractor for spec.
func NewExtractor(spec Spec) *Extractor {
	return &Extractor{spec: spec}
}

// Category returns the category the extractor handles.
func (e *Extractor) Category() models.Category {
	return e.spec.Category
}

// Extract runs every field chain against in. It never fails: a record with
// no fields is a valid, low-confidence result.
func (e *Extractor) Extract(in Input, src models.SourceRef) models.ExtractedRecord {
	rec := models.ExtractedRecord{
		Category: e.spec.Category,
		Source:   src,
		Fields:   make(map[string]string),
	}

	for _, f := range e.spec.Fields {
		v, ok := f.Chain.First(in)
		if !ok {
			continue
		}
		if f.List {
			items := SplitList(v)
			if len(items) == 0 {
				continue
			}
			if rec.Lists == nil {
				rec.Lists = make(map[string][]string)
			}
			rec.Lists[f.Name] = items
			continue
		}
		rec.Fields[f.Name] = v
	}

	if e.spec.DateField != "" {
		if start, end, ok := ParseDate(rec.Fields[e.spec.DateField]); ok {
			rec.Fields[models.FieldStartDate] = start.Format(DateLayout)
			if !end.IsZero() {
				rec.Fields[models.FieldEndDate] = end.Format(DateLayout)
			}
		}
	}

	return rec
}

// Set holds one extractor per category.
type Set struct {
	byCategory map[models.Category]*Extractor
}

// NewSet builds the extractor set from specs, replacing the chain of any
// field named in overrides ("category.field" -> ordered regexes). A pattern
// with a capture group yields group 1, otherwise the whole match.
func NewSet(specs []Spec, overrides map[string][]string) (*Set, error) {
	s := &Set{byCategory: make(map[models.Category]*Extractor, len(specs))}

	for _, spec := range specs {
		fields := make([]FieldSpec, len(spec.Fields))
		copy(fields, spec.Fields)

		for i, f := range fields {
			patterns, ok := overrides[string(spec.Category)+"."+f.Name]
			if !ok || len(patterns) == 0 {
				continue
			}
			chain, err := compileChain(patterns)
			if err != nil {
				return nil, fmt.Errorf("field pattern %s.%s: %w", spec.Category, f.Name, err)
			}
			fields[i].Chain = chain
		}

		spec.Fields = fields
		s.byCategory[spec.Category] = NewExtractor(spec)
	}

	for key := range overrides {
		cat, _, found := strings.Cut(key, ".")
		if !found {
			return nil, fmt.Errorf("field pattern key %q must be category.field", key)
		}
		if _, ok := s.byCategory[models.Category(cat)]; !ok {
			return nil, fmt.Errorf("field pattern key %q names unknown category", key)
		}
	}

	return s, nil
}

// DefaultSet returns the built-in extractors with no overrides.
func DefaultSet() *Set {
	s, err := NewSet(DefaultSpecs(), nil)
	if err != nil {
		panic(err)
	}
	return s
}

// Extract runs the extractor for cat against msg.
func (s *Set) Extract(cat models.Category, msg models.RawMessage) (models.ExtractedRecord, error) {
	return s.ExtractInput(cat, NewInput(msg), msg.Source())
}

// ExtractInput runs the extractor for cat against a prepared input.
func (s *Set) ExtractInput(cat models.Category, in Input, src models.SourceRef) (models.ExtractedRecord, error) {
	e, ok := s.byCategory[cat]
	if !ok {
		return models.ExtractedRecord{}, fmt.Errorf("no extractor for category %q", cat)
	}
	return e.Extract(in, src), nil
}

func compileChain(patterns []string) (Chain, error) {
	chain := make(Chain, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		group := 0
		if re.NumSubexp() > 0 {
			group = 1
		}
		chain = append(chain, Pattern(re, group))
	}
	return chain, nil
}
