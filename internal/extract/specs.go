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

package extract

import (
	"regexp"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

var (
	timeRange    = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?)\s*(?:-|–|to|until)\s*(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)
	timeOfDay    = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?`)
	venueName    = regexp.MustCompile(`\b((?:[A-Z][A-Za-z'&.-]*[ \t]+){0,4}(?:Center|Centre|Park|Hall|School|Church|Library|Lodge|Campground|Camp|Field|Building|Gym|Auditorium|Recreation Area|Pavilion|Cafeteria|Scout Hut))\b`)
	streetAddr   = regexp.MustCompile(`\b\d{1,6}\s+(?:[A-Z0-9][\w.'-]*\s+){0,4}(?:St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard|Dr|Drive|Ln|Lane|Way|Ct|Court|Pkwy|Parkway|Hwy|Highway|Pl|Place|Trail|Cir|Circle)\b\.?(?:,\s*[A-Z][A-Za-z .'-]*[A-Za-z])?(?:,\s*[A-Z]{2})?(?:\s+\d{5}(?:-\d{4})?)?`)
	currency     = regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)
	freeEvent    = regexp.MustCompile(`(?i)\bfree (?:event|admission|of charge)\b`)
	email        = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phone        = regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}\b`)
	rsvpBy       = regexp.MustCompile(`(?i)\b(?:register|registration|rsvp|sign[ -]?up)[^.\n]{0,40}?\b(?:by|before|no later than)\s+([^.\n]+)`)
	anyURL       = regexp.MustCompile(`https?://[^\s<>"')]+`)
	signupURL    = regexp.MustCompile(`(?i)https?://[^\s<>"')]*(?:signup|sign-up|volunteer)[^\s<>"')]*`)
	resourceKind = regexp.MustCompile(`(?i)\b(handbook|guide|form|checklist|document|spreadsheet|flyer|newsletter|packet|map)\b`)
	volunteerFor = regexp.MustCompile(`(?i)\bvolunteers?\s+(?:are\s+)?(?:needed\s+)?(?:for|to)\s+([^.\n]+)`)
	slotCount    = regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:more\s+)?(?:volunteers?|helpers?|adults?|parents?|drivers?|chaperones?|people|slots?)\b`)
	goalAmount   = regexp.MustCompile(`(?i)\bgoal\b[^$\n]{0,40}(\$\s?[\d,]+(?:\.\d{2})?)`)
	endsBy       = regexp.MustCompile(`(?i)\b(?:by|before|ends?|until|through)\s+((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?)`)
	proceedsTo   = regexp.MustCompile(`(?i)\b(?:proceeds|funds)\s+(?:will\s+)?(?:go\s+|support\s+|benefit\s+)(?:to(?:wards?)?\s+)?([^.\n]+)`)
)

// FieldSpec describes one extracted field and its rule chain.
type FieldSpec struct {
	Name  string
	Chain Chain
	// List splits the value into items stored under Lists[Name].
	List bool
}

// Spec describes the extractor variant for one category.
type Spec struct {
	Category models.Category
	Fields   []FieldSpec
	// DateField names the field parsed into start_date/end_date.
	DateField string
}

func titleChain(labels ...string) Chain {
	return Chain{Labeled(labels...), Subject()}
}

func contactChain() Chain {
	return Chain{
		Refine(Labeled("contact", "email", "questions"), email),
		Pattern(email, 0),
		Sender(),
	}
}

// DefaultSpecs returns the built-in extractor variants for every category.
func DefaultSpecs() []Spec {
	return []Spec{
		{
			Category:  models.CategoryEvent,
			DateField: models.FieldDate,
			Fields: []FieldSpec{
				{Name: models.FieldTitle, Chain: titleChain("title", "event", "event name")},
				{Name: models.FieldDate, Chain: DateChain("date", "dates", "when", "event date")},
				{Name: models.FieldStartTime, Chain: Chain{
					Refine(Labeled("time", "start time", "starts"), timeOfDay),
					Pattern(timeRange, 1),
					Pattern(timeOfDay, 0),
				}},
				{Name: models.FieldEndTime, Chain: Chain{
					Refine(Labeled("end time", "ends"), timeOfDay),
					Pattern(timeRange, 2),
				}},
				{Name: models.FieldLocationName, Chain: Chain{
					Labeled("location", "venue", "where", "place"),
					Pattern(venueName, 1),
				}},
				{Name: models.FieldLocationAddress, Chain: Chain{
					Labeled("address"),
					Pattern(streetAddr, 0),
				}},
				{Name: models.FieldCost, Chain: Chain{
					Labeled("cost", "fee", "price", "dues"),
					Pattern(currency, 0),
					Pattern(freeEvent, 0),
				}},
				{Name: models.FieldContactEmail, Chain: contactChain()},
				{Name: models.FieldContactPhone, Chain: Chain{Pattern(phone, 0)}},
				{Name: models.ListRequirements, List: true, Chain: Chain{
					Labeled("what to bring", "bring", "requirements", "required", "please bring", "packing list"),
					BulletsAfter("what to bring", "requirements", "packing list", "please bring"),
				}},
				{Name: models.FieldRegistrationDeadline, Chain: Chain{
					Labeled("registration deadline", "register by", "rsvp by", "deadline"),
					Pattern(rsvpBy, 1),
				}},
				{Name: models.FieldDescription, Chain: Chain{FirstParagraph(500)}},
			},
		},
		{
			Category:  models.CategoryAnnouncement,
			DateField: models.FieldDate,
			Fields: []FieldSpec{
				{Name: models.FieldTitle, Chain: titleChain("title", "headline")},
				{Name: models.FieldSummary, Chain: Chain{FirstParagraph(280)}},
				{Name: models.FieldDate, Chain: DateChain("date", "effective", "effective date")},
				{Name: models.FieldAudience, Chain: Chain{Labeled("audience", "attention", "attn")}},
				{Name: models.FieldContactEmail, Chain: contactChain()},
			},
		},
		{
			Category: models.CategoryResource,
			Fields: []FieldSpec{
				{Name: models.FieldTitle, Chain: titleChain("title", "resource")},
				{Name: models.FieldURL, Chain: Chain{Refine(Labeled("link", "url"), anyURL), Pattern(anyURL, 0)}},
				{Name: models.FieldResourceType, Chain: Chain{
					Labeled("type", "resource type"),
					Pattern(resourceKind, 1),
				}},
				{Name: models.FieldDescription, Chain: Chain{FirstParagraph(500)}},
			},
		},
		{
			Category:  models.CategoryVolunteer,
			DateField: models.FieldDate,
			Fields: []FieldSpec{
				{Name: models.FieldTitle, Chain: titleChain("title", "opportunity")},
				{Name: models.FieldRole, Chain: Chain{
					Labeled("role", "position", "volunteer role", "help with"),
					Pattern(volunteerFor, 1),
				}},
				{Name: models.FieldSlots, Chain: Chain{Labeled("slots", "spots"), Pattern(slotCount, 1)}},
				{Name: models.FieldDate, Chain: DateChain("date", "when", "shift")},
				{Name: models.FieldURL, Chain: Chain{Pattern(signupURL, 0), Pattern(anyURL, 0)}},
				{Name: models.FieldContactEmail, Chain: contactChain()},
			},
		},
		{
			Category: models.CategoryFundraising,
			Fields: []FieldSpec{
				{Name: models.FieldTitle, Chain: titleChain("title", "campaign", "fundraiser")},
				{Name: models.FieldGoal, Chain: Chain{Labeled("goal", "target"), Pattern(goalAmount, 1)}},
				{Name: models.FieldDeadline, Chain: Chain{Labeled("deadline", "ends", "due"), Pattern(endsBy, 1)}},
				{Name: models.FieldURL, Chain: Chain{Refine(Labeled("donate", "link"), anyURL), Pattern(anyURL, 0)}},
				{Name: models.FieldCause, Chain: Chain{Labeled("cause", "benefit", "proceeds", "supporting"), Pattern(proceedsTo, 1)}},
				{Name: models.FieldContactEmail, Chain: contactChain()},
			},
		},
	}
}
