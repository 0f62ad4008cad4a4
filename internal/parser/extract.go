package parser

import (
	"log"
	"regexp"
	"strings"

	"github.com/larez/mailsift/internal/rules"
)

// regexMeta marks a configured delimiter as a prebuilt pattern fragment when
// any of these characters appear in it.
const regexMeta = `\.+*?()|[]{}^$`

// ExtractKeyValue scans text for any of the rule's key patterns followed by
// the rule's delimiter and returns the labeled value, trimmed. Key patterns
// are matched as literal substrings, case-insensitively; the value capture
// runs lazily to the first line break or end of input. An empty string means
// the field was not found.
func ExtractKeyValue(text string, rule rules.Rule) string {
	if text == "" || len(rule.KeyPatterns) == 0 {
		return ""
	}

	keys := make([]string, 0, len(rule.KeyPatterns))
	for _, k := range rule.KeyPatterns {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, regexp.QuoteMeta(k))
		}
	}
	if len(keys) == 0 {
		return ""
	}

	delimiter := rule.Delimiter
	if delimiter == "" {
		delimiter = ":"
	}

	pattern := `(?i)(?:` + strings.Join(keys, "|") + `)\s*` + delimiterFragment(delimiter) + `\s*(.+?)(?:[\r\n]|$)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Printf("key_value rule %q: bad delimiter pattern: %v", rule.OutputField, err)
		return ""
	}

	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// delimiterFragment decides whether a configured delimiter is already a
// regular expression fragment or a literal. A leading whitespace-class token
// or any regex metacharacter means the configuration supplied a ready-made
// fragment (e.g. `\s*[:\-\#]\s*`) that must not be escaped again; anything
// else is quoted as a literal.
func delimiterFragment(delimiter string) string {
	if strings.HasPrefix(delimiter, `\s`) || strings.ContainsAny(delimiter, regexMeta) {
		return delimiter
	}
	return regexp.QuoteMeta(delimiter)
}

// ExtractRegex applies the rule's own pattern to the text, case-insensitively
// and with `.` matching across line breaks, and returns the first capture
// group trimmed. A pattern that does not match, has no capture group, or
// fails to compile yields an empty string; a bad pattern never aborts the
// run.
func ExtractRegex(text string, rule rules.Rule) string {
	if text == "" || rule.Pattern == "" {
		return ""
	}

	re, err := regexp.Compile(`(?is)` + rule.Pattern)
	if err != nil {
		log.Printf("regex_pattern rule %q: invalid pattern: %v", rule.OutputField, err)
		return ""
	}

	match := re.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// HeaderValue returns the value of the first header whose name matches
// case-insensitively, or an empty string.
func HeaderValue(headers []Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
