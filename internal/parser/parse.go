package parser

import (
	"regexp"
	"strings"

	"github.com/larez/mailsift/internal/rules"
)

// ParseMessage runs the full extraction pass over one message: standard
// header fields, the normalized body, every rule in declared order, and the
// priority classifier. It never fails; missing structure simply produces
// empty fields. The rule set and keyword list are read-only, so ParseMessage
// is safe to call concurrently across messages.
func ParseMessage(msg *Message, set rules.Set, keywords []string) *ParsedEmail {
	if msg == nil {
		msg = &Message{}
	}

	subject := HeaderValue(msg.Headers, "Subject")
	from := HeaderValue(msg.Headers, "From")
	date := HeaderValue(msg.Headers, "Date")
	body := ExtractPlaintext(msg.Payload)

	parsed := &ParsedEmail{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Subject:   subject,
		From:      from,
		Date:      date,
		Body:      body,
		Priority:  PriorityNormal,
		Extracted: make(map[string]string),
	}

	for _, rule := range set.Rules() {
		var value string
		switch rule.Method {
		case rules.MethodHeader:
			value = HeaderValue(msg.Headers, rule.HeaderName)
		case rules.MethodKeyValue:
			value = ExtractKeyValue(body, rule)
		case rules.MethodRegex:
			value = ExtractRegex(body, rule)
		}

		// Rule fields are present only on a successful extraction.
		if value != "" && rule.OutputField != "" {
			parsed.Extracted[rule.OutputField] = value
		}
	}

	if matchesKeyword(subject+" "+body+" "+from, keywords) {
		parsed.Priority = PriorityHigh
	}

	return parsed
}

// matchesKeyword reports whether any keyword appears as a whole word in the
// content, case-insensitively. Matching stops at the first hit.
func matchesKeyword(content string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	content = strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(content), " "))

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(kw)) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(content) {
			return true
		}
	}
	return false
}
