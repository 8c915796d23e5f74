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
	"strings"
	"unicode/utf8"

	"github.com/theChristopher16/pack1703-portal-sub005/internal/models"
)

// Input is the text an extractor works on. Text is the subject, body and
// every attachment text joined together.
type Input struct {
	Subject string
	Sender  string
	Body    string
	Text    string
}

// NewInput builds the extraction input for a message.
func NewInput(msg models.RawMessage) Input {
	return Input{
		Subject: normalizeNewlines(msg.Subject),
		Sender:  msg.From.Address,
		Body:    normalizeNewlines(msg.Body),
		Text:    normalizeNewlines(msg.CombinedText()),
	}
}

// TextInput builds an input from loose text and attachment texts.
func TextInput(subject, text string, attachments []string) Input {
	joined := strings.Join(append([]string{subject, text}, attachments...), "\n")
	return Input{
		Subject: normalizeNewlines(subject),
		Body:    normalizeNewlines(text),
		Text:    normalizeNewlines(joined),
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Rule extracts a single field value. It reports false when it finds nothing.
type Rule func(in Input) (string, bool)

// Chain is an ordered list of rules; the first rule that matches wins.
type Chain []Rule

// First runs the chain and returns the first match.
func (c Chain) First(in Input) (string, bool) {
	for _, r := range c {
		if v, ok := r(in); ok {
			return v, true
		}
	}
	return "", false
}

// Labeled matches a "Label: value" line for any of the given labels,
// case-insensitively, and returns the value.
func Labeled(labels ...string) Rule {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	re := regexp.MustCompile(`(?im)^[ \t>*•-]*(?:` + strings.Join(quoted, "|") + `)[ \t]*:[ \t]*(\S.*?)[ \t]*$`)
	return Pattern(re, 1)
}

// Pattern returns capture group `group` of the first match of re in the
// input text.
func Pattern(re *regexp.Regexp, group int) Rule {
	return func(in Input) (string, bool) {
		m := re.FindStringSubmatch(in.Text)
		if m == nil || group >= len(m) {
			return "", false
		}
		v := cleanValue(m[group])
		return v, v != ""
	}
}

// Refine narrows the value produced by r to the first match of re within it.
func Refine(r Rule, re *regexp.Regexp) Rule {
	return func(in Input) (string, bool) {
		v, ok := r(in)
		if !ok {
			return "", false
		}
		m := re.FindString(v)
		return m, m != ""
	}
}

var replyPrefix = regexp.MustCompile(`(?i)^\s*(?:(?:re|fw|fwd|aw)\s*:\s*)+`)

// Subject returns the message subject with reply and forward prefixes removed.
func Subject() Rule {
	return func(in Input) (string, bool) {
		v := cleanValue(replyPrefix.ReplaceAllString(in.Subject, ""))
		return v, v != ""
	}
}

// Sender returns the sender address.
func Sender() Rule {
	return func(in Input) (string, bool) {
		v := strings.TrimSpace(in.Sender)
		return v, v != ""
	}
}

// FirstParagraph returns the first non-empty paragraph of the body,
// truncated to max runes.
func FirstParagraph(max int) Rule {
	return func(in Input) (string, bool) {
		for _, p := range strings.Split(in.Body, "\n\n") {
			p = strings.Join(strings.Fields(p), " ")
			if p == "" {
				continue
			}
			return truncate(p, max), true
		}
		return "", false
	}
}

var bullet = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+?)\s*$`)

// BulletsAfter collects the bulleted lines that follow a heading line such
// as "What to bring:". Items are joined with "; ".
func BulletsAfter(headings ...string) Rule {
	quoted := make([]string, len(headings))
	for i, h := range headings {
		quoted[i] = regexp.QuoteMeta(h)
	}
	heading := regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(quoted, "|") + `)\s*:?\s*$`)

	return func(in Input) (string, bool) {
		lines := strings.Split(in.Text, "\n")
		for i, line := range lines {
			if !heading.MatchString(line) {
				continue
			}
			var items []string
			for _, next := range lines[i+1:] {
				m := bullet.FindStringSubmatch(next)
				if m == nil {
					if strings.TrimSpace(next) == "" && len(items) == 0 {
						continue
					}
					break
				}
				items = append(items, m[1])
			}
			if len(items) > 0 {
				return strings.Join(items, "; "), true
			}
		}
		return "", false
	}
}

// SplitList splits a list value on commas and semicolons.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "and ")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, " \t,;")
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max])) + "…"
}
