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

package mailbox

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var textExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".ics":  true,
	".md":   true,
	".html": true,
	".htm":  true,
}

// DecodeText returns the readable text of an attachment, or "" for binary
// and unsupported types.
func DecodeText(name, contentType string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	ct := strings.ToLower(contentType)
	if !strings.HasPrefix(ct, "text/") && !textExtensions[ext] {
		return ""
	}

	text := ensureUTF8(data)
	if ct == "text/html" || ext == ".html" || ext == ".htm" {
		return StripHTML(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

// ensureUTF8 decodes data as Windows-1252 when it is not valid UTF-8.
func ensureUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(out)
}

var (
	htmlSkip   = regexp.MustCompile(`(?is)<(?:script|style|head)\b.*?</(?:script|style|head)>`)
	htmlBreak  = regexp.MustCompile(`(?i)<(?:br\s*/?|/p|/div|/li|/h[1-6]|/tr)\s*>`)
	htmlItem   = regexp.MustCompile(`(?i)<li\b[^>]*>`)
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts an HTML fragment into plain text, keeping line breaks at
// block boundaries so labeled lines survive.
func StripHTML(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = htmlSkip.ReplaceAllString(s, "")
	s = htmlItem.ReplaceAllString(s, "\n- ")
	s = htmlBreak.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
