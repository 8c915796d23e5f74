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

package classifier

import "github.com/theChristopher16/pack1703-portal-sub005/internal/models"

// Lexicons maps each category to its keyword set.
type Lexicons map[models.Category][]string

// DefaultLexicons returns the built-in keyword sets. The event set is kept
// to nine keywords so that two hits, such as a labeled date and location,
// are enough to detect it.
func DefaultLexicons() Lexicons {
	return Lexicons{
		models.CategoryEvent: {
			"meeting", "event", "join us", "rsvp", "campout",
			"location", "center", "date:", "time:",
		},
		models.CategoryAnnouncement: {
			"announcement", "announce", "reminder", "update", "news",
			"important", "attention", "please note", "policy", "change",
		},
		models.CategoryResource: {
			"resource", "handbook", "guide", "form", "download",
			"link", "document", "attached", "reference", "website",
		},
		models.CategoryVolunteer: {
			"volunteer", "help needed", "sign up", "signup", "helpers",
			"needed", "slots", "shift", "chaperone", "parents",
		},
		models.CategoryFundraising: {
			"fundraiser", "fundraising", "donate", "donation", "popcorn",
			"sponsor", "goal", "raise", "pledge", "support our",
		},
	}
}

// Merge returns a copy of l with the categories in overrides replaced.
// Unknown categories and empty keyword lists are ignored.
func (l Lexicons) Merge(overrides map[string][]string) Lexicons {
	out := make(Lexicons, len(l))
	for c, kws := range l {
		out[c] = kws
	}
	for name, kws := range overrides {
		c := models.Category(name)
		if !c.Valid() || len(kws) == 0 {
			continue
		}
		out[c] = kws
	}
	return out
}
