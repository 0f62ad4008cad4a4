package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larez/mailsift/internal/rules"
)

func writeEML(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestReadEMLFile_PlainText tests converting a simple message
func TestReadEMLFile_PlainText(t *testing.T) {
	eml := "From: store@example.com\r\n" +
		"To: customer@example.com\r\n" +
		"Subject: Your order has shipped\r\n" +
		"Message-Id: <abc123@example.com>\r\n" +
		"Date: Fri, 05 Jan 2024 10:00:00 +0000\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Order Status: Shipped\r\nTotal: 20\r\n"

	msg, err := ReadEMLFile(writeEML(t, "order.eml", eml))

	require.NoError(t, err)
	assert.Equal(t, "abc123@example.com", msg.ID)
	assert.Equal(t, "Your order has shipped", HeaderValue(msg.Headers, "Subject"))
	assert.Equal(t, "store@example.com", HeaderValue(msg.Headers, "From"))

	body := ExtractPlaintext(msg.Payload)
	assert.Contains(t, body, "Order Status: Shipped")
}

// TestReadEMLFile_MultipartAlternative tests that the MIME structure survives conversion
func TestReadEMLFile_MultipartAlternative(t *testing.T) {
	eml := "From: store@example.com\r\n" +
		"Subject: Rich order update\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"SEP\"\r\n" +
		"\r\n" +
		"--SEP\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Plain body\r\n" +
		"--SEP\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<b>Rich body</b>\r\n" +
		"--SEP--\r\n"

	msg, err := ReadEMLFile(writeEML(t, "rich.eml", eml))

	require.NoError(t, err)
	require.NotNil(t, msg.Payload)
	require.Len(t, msg.Payload.Parts, 2)

	// The plaintext part must still win the priority search.
	assert.Equal(t, "Plain body", ExtractPlaintext(msg.Payload))
}

// TestReadEMLFile_MissingMessageID tests the file-name fallback identifier
func TestReadEMLFile_MissingMessageID(t *testing.T) {
	eml := "From: a@example.com\r\n" +
		"Subject: No id\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"body\r\n"

	msg, err := ReadEMLFile(writeEML(t, "no-id.eml", eml))

	require.NoError(t, err)
	assert.Equal(t, "no-id", msg.ID)
}

// TestReadEMLFile_EndToEnd tests an .eml message through the full extraction pass
func TestReadEMLFile_EndToEnd(t *testing.T) {
	eml := "From: store@example.com\r\n" +
		"Subject: URGENT order update\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Status: Delayed\r\n"

	msg, err := ReadEMLFile(writeEML(t, "urgent.eml", eml))
	require.NoError(t, err)

	set, err := rules.NewSet([]rules.Rule{{
		OutputField: "Order Status",
		Method:      rules.MethodKeyValue,
		KeyPatterns: []string{"Status"},
		Delimiter:   ":",
	}})
	require.NoError(t, err)

	parsed := ParseMessage(msg, set, []string{"urgent"})

	assert.Equal(t, "Delayed", parsed.Extracted["Order Status"])
	assert.Equal(t, PriorityHigh, parsed.Priority)
}

// TestReadEMLFile_Missing tests error handling for non-existent files
func TestReadEMLFile_Missing(t *testing.T) {
	_, err := ReadEMLFile(filepath.Join(t.TempDir(), "does-not-exist.eml"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")
}
