package parser

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// ReadEMLFile parses an .eml file into the same Message shape the Gmail API
// delivers, so rule files can be exercised offline against local messages.
func ReadEMLFile(filePath string) (*Message, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	msg, err := ReadEML(f)
	if err != nil {
		return nil, err
	}

	// Fall back to the file name when the message carries no Message-Id.
	if msg.ID == "" {
		msg.ID = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	return msg, nil
}

// ReadEML parses an RFC 5322 message from a reader. Inline text parts are
// re-encoded as base64url body data; attachments are skipped since field
// extraction only looks at the readable body.
func ReadEML(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	msg := &Message{}

	header := mr.Header
	if id, err := header.MessageID(); err == nil {
		msg.ID = id
	}

	subject, _ := header.Subject()
	msg.Headers = []Header{
		{Name: "Subject", Value: subject},
		{Name: "From", Value: header.Get("From")},
		{Name: "Date", Value: header.Get("Date")},
	}

	container := &Part{MimeType: "multipart/alternative"}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := inline.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}

		container.Parts = append(container.Parts, &Part{
			MimeType: contentType,
			Body:     &Body{Data: base64.RawURLEncoding.EncodeToString(body)},
		})
	}

	if len(container.Parts) == 1 {
		msg.Payload = container.Parts[0]
	} else {
		msg.Payload = container
	}
	return msg, nil
}
