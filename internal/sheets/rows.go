package sheets

import (
	"time"

	"github.com/larez/mailsift/internal/parser"
	"github.com/larez/mailsift/internal/rules"
)

// maxBodyLen caps the body cell; sheet cells reject very large values.
const maxBodyLen = 10000

// FinalHeader returns the sheet column order: the seven standard fields
// followed by every rule output field in declared order.
func FinalHeader(set rules.Set) []string {
	header := make([]string, 0, len(parser.StandardFields)+set.Len())
	header = append(header, parser.StandardFields...)
	header = append(header, set.OutputFields()...)
	return header
}

// BuildRow flattens a parsed email into sheet cells following the header
// order. Fields the extraction did not produce become empty cells; the body
// is truncated and a missing date falls back to the current UTC time so every
// row is placeable on a timeline.
func BuildRow(parsed *parser.ParsedEmail, header []string) []interface{} {
	row := make([]interface{}, 0, len(header))

	for _, name := range header {
		value := parsed.Field(name)
		switch name {
		case parser.FieldBody:
			value = truncate(value, maxBodyLen)
		case parser.FieldDate:
			if value == "" {
				value = time.Now().UTC().Format(time.RFC3339)
			}
		}
		row = append(row, value)
	}
	return row
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
