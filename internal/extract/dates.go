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
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout used for the derived start_date and end_date fields.
const DateLayout = "2006-01-02"

var (
	monthDayYear = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s*(?:-|–|to|through)\s*(\d{1,2})(?:st|nd|rd|th)?)?,?\s+(\d{4})\b`)
	numericDate  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDate      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// DateChain is the default rule chain for a date field: a labeled value,
// then "Month Day, Year", then MM/DD/YYYY, then YYYY-MM-DD.
func DateChain(labels ...string) Chain {
	return Chain{
		Labeled(labels...),
		Pattern(monthDayYear, 0),
		Pattern(numericDate, 0),
		Pattern(isoDate, 0),
	}
}

// ParseDate finds a calendar date in raw. For ranges such as
// "October 15-17, 2025" end is the last day of the range; otherwise end is
// the zero time. ok is false when no valid calendar date is found.
func ParseDate(raw string) (start, end time.Time, ok bool) {
	if m := monthDayYear.FindStringSubmatch(raw); m != nil {
		month := months[strings.ToLower(m[1])]
		year, _ := strconv.Atoi(m[4])
		day, _ := strconv.Atoi(m[2])
		start, ok = calendarDate(year, month, day)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		if m[3] != "" {
			lastDay, _ := strconv.Atoi(m[3])
			if e, valid := calendarDate(year, month, lastDay); valid && e.After(start) {
				end = e
			}
		}
		return start, end, true
	}

	if m := numericDate.FindStringSubmatch(raw); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		start, ok = calendarDate(year, time.Month(month), day)
		return start, time.Time{}, ok
	}

	if m := isoDate.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		start, ok = calendarDate(year, time.Month(month), day)
		return start, time.Time{}, ok
	}

	return time.Time{}, time.Time{}, false
}

// calendarDate rejects dates time.Date would silently normalise, such as
// February 30.
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || year < 1900 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
