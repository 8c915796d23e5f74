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

// Package classifier scores message text against per-category keyword
// lexicons and reports which content categories were detected.
package classifier

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// DetectionThreshold is the score a category must exceed to be detected.
const DetectionThreshold = 0.2

// ReasonUnrecognized is recorded when no category is detected.
const ReasonUnrecognized = "no recognizable content type"

// Classifier scores text against category lexicons. It is safe for
// concurrent use.
type Classifier struct {
	lexicons map[models.Category][]string
}

// New creates a Classifier. Keywords are case-folded once up front.
func New(lexicons Lexicons) *Classifier {
	fold := cases.Fold()
	folded := make(map[models.Category][]string, len(lexicons))
	for c, kws := range lexicons {
		seen := make(map[string]bool, len(kws))
		for _, kw := range kws {
			kw = strings.TrimSpace(fold.String(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			folded[c] = append(folded[c], kw)
		}
	}
	return &Classifier{lexicons: folded}
}

// Score returns one CategoryScore per category, in priority order, computed
// as matched keywords divided by lexicon size.
func (c *Classifier) Score(text string) []models.CategoryScore {
	haystack := cases.Fold().String(text)

	scores := make([]models.CategoryScore, 0, len(models.Categories))
	for _, cat := range models.Categories {
		kws := c.lexicons[cat]
		s := models.CategoryScore{Category: cat}
		if len(kws) > 0 {
			for _, kw := range kws {
				if strings.Contains(haystack, kw) {
					s.Matched = append(s.Matched, kw)
				}
			}
			s.Confidence = float64(len(s.Matched)) / float64(len(kws))
		}
		scores = append(scores, s)
	}
	return scores
}

// Classify returns the detected categories, highest confidence first. Ties
// are broken by the fixed category priority. An empty result means the
// message has no recognizable content type.
func (c *Classifier) Classify(text string) []models.CategoryScore {
	var detected []models.CategoryScore
	for _, s := range c.Score(text) {
		if s.Confidence > DetectionThreshold {
			detected = append(detected, s)
		}
	}

	sort.SliceStable(detected, func(i, j int) bool {
		if detected[i].Confidence != detected[j].Confidence {
			return detected[i].Confidence > detected[j].Confidence
		}
		return detected[i].Category.Priority() < detected[j].Category.Priority()
	})
	return detected
}

// ScoreFor returns the confidence of one category in scores, or 0.
func ScoreFor(scores []models.CategoryScore, cat models.Category) float64 {
	for _, s := range scores {
		if s.Category == cat {
			return s.Confidence
		}
	}
	return 0
}
