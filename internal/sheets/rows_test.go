package sheets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larez/mailsift/internal/parser"
	"github.com/larez/mailsift/internal/rules"
)

func testSet(t *testing.T) rules.Set {
	t.Helper()

	set, err := rules.NewSet([]rules.Rule{
		{OutputField: "Order Status", Method: rules.MethodKeyValue, KeyPatterns: []string{"Status"}, Delimiter: ":"},
		{OutputField: "Total Amount", Method: rules.MethodKeyValue, KeyPatterns: []string{"Total"}, Delimiter: ":"},
	})
	require.NoError(t, err)
	return set
}

// TestFinalHeader tests the deterministic column order
func TestFinalHeader(t *testing.T) {
	header := FinalHeader(testSet(t))

	assert.Equal(t, []string{
		"Date", "From", "Subject", "Body (plain)", "Priority", "Message ID", "Thread ID",
		"Order Status", "Total Amount",
	}, header)
}

// TestBuildRow tests flattening in header order with empty fallbacks
func TestBuildRow(t *testing.T) {
	parsed := &parser.ParsedEmail{
		MessageID: "m1",
		ThreadID:  "t1",
		Subject:   "Order",
		From:      "store@example.com",
		Date:      "Fri, 05 Jan 2024 10:00:00 +0000",
		Body:      "Status: Shipped",
		Priority:  parser.PriorityNormal,
		Extracted: map[string]string{"Order Status": "Shipped"},
	}

	row := BuildRow(parsed, FinalHeader(testSet(t)))

	require.Len(t, row, 9)
	assert.Equal(t, "Fri, 05 Jan 2024 10:00:00 +0000", row[0])
	assert.Equal(t, "store@example.com", row[1])
	assert.Equal(t, "Order", row[2])
	assert.Equal(t, "Status: Shipped", row[3])
	assert.Equal(t, "Normal", row[4])
	assert.Equal(t, "m1", row[5])
	assert.Equal(t, "t1", row[6])
	assert.Equal(t, "Shipped", row[7])
	assert.Equal(t, "", row[8], "unmatched rule field becomes an empty cell")
}

// TestBuildRow_DateFallback tests the timestamp substitute for a missing date
func TestBuildRow_DateFallback(t *testing.T) {
	parsed := &parser.ParsedEmail{Priority: parser.PriorityNormal}

	row := BuildRow(parsed, FinalHeader(testSet(t)))

	date, ok := row[0].(string)
	require.True(t, ok)
	assert.NotEmpty(t, date, "missing date should fall back to the current timestamp")
}

// TestBuildRow_BodyTruncation tests the body cell cap
func TestBuildRow_BodyTruncation(t *testing.T) {
	parsed := &parser.ParsedEmail{
		Body:     strings.Repeat("é", maxBodyLen+500),
		Priority: parser.PriorityNormal,
	}

	row := BuildRow(parsed, []string{parser.FieldBody})

	body, ok := row[0].(string)
	require.True(t, ok)
	assert.Equal(t, maxBodyLen, len([]rune(body)), "body should be truncated on rune boundaries")
}
