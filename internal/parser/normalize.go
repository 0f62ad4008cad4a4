package parser

import (
	"encoding/base64"
	"html"
	"log"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPartDepth caps MIME-tree recursion against malformed or adversarial
// payloads. Real messages rarely nest more than a handful of levels.
const maxPartDepth = 32

var (
	stripPolicy   = bluemonday.StrictPolicy()
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// DecodeBase64 decodes URL-safe base64 body data as delivered by the Gmail
// API, which often omits the trailing padding. Decoding never fails hard:
// undecodable input yields an empty string and invalid UTF-8 byte sequences
// are replaced with U+FFFD.
func DecodeBase64(data string) string {
	if data == "" {
		return ""
	}

	if pad := len(data) % 4; pad != 0 {
		data += strings.Repeat("=", 4-pad)
	}

	raw, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		log.Printf("Failed to decode base64 body data: %v", err)
		return ""
	}

	return strings.ToValidUTF8(string(raw), "�")
}

// StripMarkup converts HTML content into clean plaintext. Script and style
// elements disappear including their content; <br> and </p> become line
// breaks so paragraph structure survives before the remaining tags are
// stripped; entities are unescaped; whitespace runs collapse to single
// spaces.
func StripMarkup(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	text := lineBreakTags.ReplaceAllString(htmlContent, "\n")

	// StrictPolicy removes every tag and skips the content of script and
	// style elements entirely.
	text = stripPolicy.Sanitize(text)
	text = html.UnescapeString(text)

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ExtractPlaintext searches the payload tree for the best available
// plaintext representation of the body. Preference order: the payload itself
// as a text/plain leaf, a non-empty text/plain child, a non-empty text/html
// child run through StripMarkup, the first non-empty result from recursing
// into nested children, and finally the payload's own inline data. The
// search short-circuits on the first satisfying branch.
func ExtractPlaintext(payload *Part) string {
	return extractPlaintext(payload, 0)
}

func extractPlaintext(payload *Part, depth int) string {
	if payload == nil || depth > maxPartDepth {
		return ""
	}

	// A bare text/plain payload is returned immediately, even when empty.
	if payload.MimeType == "text/plain" && len(payload.Parts) == 0 {
		return DecodeBase64(payload.data())
	}

	for _, part := range payload.Parts {
		if part != nil && part.MimeType == "text/plain" && part.data() != "" {
			return DecodeBase64(part.data())
		}
	}

	for _, part := range payload.Parts {
		if part != nil && part.MimeType == "text/html" && part.data() != "" {
			if text := StripMarkup(DecodeBase64(part.data())); text != "" {
				return text
			}
		}
	}

	for _, part := range payload.Parts {
		if part != nil && len(part.Parts) > 0 {
			if nested := extractPlaintext(part, depth+1); nested != "" {
				return nested
			}
		}
	}

	// Last resort: inline data on the payload itself.
	if payload.data() != "" {
		return DecodeBase64(payload.data())
	}

	return ""
}
