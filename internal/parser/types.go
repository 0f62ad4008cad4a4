package parser

// Body carries the inline content of a MIME part, base64url-encoded the way
// the Gmail API delivers it.
type Body struct {
	Data string `json:"data,omitempty"`
}

// Part is a node in a message's MIME tree. A part is either a leaf with body
// data or a container with child parts; children are kept in document order.
type Part struct {
	MimeType string  `json:"mimeType"`
	Body     *Body   `json:"body,omitempty"`
	Parts    []*Part `json:"parts,omitempty"`
}

func (p *Part) data() string {
	if p == nil || p.Body == nil {
		return ""
	}
	return p.Body.Data
}

// Header is a single name/value header pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is the input to the extraction engine: opaque identifiers, the flat
// header list, and the payload tree.
type Message struct {
	ID       string
	ThreadID string
	Headers  []Header
	Payload  *Part
}

// Standard field names seeded into every parsed email. The order of
// StandardFields is the fixed leading column order of the output row.
const (
	FieldDate      = "Date"
	FieldFrom      = "From"
	FieldSubject   = "Subject"
	FieldBody      = "Body (plain)"
	FieldPriority  = "Priority"
	FieldMessageID = "Message ID"
	FieldThreadID  = "Thread ID"
)

// StandardFields lists the seven fixed fields in column order.
var StandardFields = []string{
	FieldDate, FieldFrom, FieldSubject, FieldBody,
	FieldPriority, FieldMessageID, FieldThreadID,
}

// Priority values assigned by the keyword classifier.
const (
	PriorityNormal = "Normal"
	PriorityHigh   = "High"
)

// ParsedEmail is the result of one extraction pass: the seven standard fields
// plus every rule field that extracted a value. It is built fresh per message
// and must not be modified once returned.
type ParsedEmail struct {
	MessageID string
	ThreadID  string
	Subject   string
	From      string
	Date      string
	Body      string
	Priority  string

	// Extracted maps rule output fields to their values. A key is present
	// only when its rule matched; absence means "not found".
	Extracted map[string]string
}

// Field returns the value for a standard or rule-derived field name. Unknown
// or unmatched fields yield an empty string.
func (p *ParsedEmail) Field(name string) string {
	switch name {
	case FieldMessageID:
		return p.MessageID
	case FieldThreadID:
		return p.ThreadID
	case FieldSubject:
		return p.Subject
	case FieldFrom:
		return p.From
	case FieldDate:
		return p.Date
	case FieldBody:
		return p.Body
	case FieldPriority:
		return p.Priority
	default:
		return p.Extracted[name]
	}
}

// Fields flattens the parsed email into a single name/value mapping.
func (p *ParsedEmail) Fields() map[string]string {
	out := make(map[string]string, len(StandardFields)+len(p.Extracted))
	for _, name := range StandardFields {
		out[name] = p.Field(name)
	}
	for name, value := range p.Extracted {
		out[name] = value
	}
	return out
}
