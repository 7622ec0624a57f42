package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/blueberrycongee/forge/session"
	"github.com/blueberrycongee/forge/tools"
	"github.com/blueberrycongee/forge/trace"
)

// document is the wire shape of a Snapshot: a structured JSON document with
// stable top-level keys. Readers ignore unknown keys; writers never remove a
// known key within a major version.
type document struct {
	Version     int             `json:"version"`
	Messages    []messageDoc    `json:"messages"`
	ToolCalls   []toolCallDoc   `json:"tool_calls"`
	Compactions []compactionDoc `json:"compactions"`
	Trace       []trace.Entry   `json:"trace"`
	RunLogRefs  []string        `json:"run_log_refs,omitempty"`
}

type partDoc struct {
	Kind       session.PartKind `json:"kind"`
	Text       string           `json:"text,omitempty"`
	CallID     string           `json:"call_id,omitempty"`
	Output     *tools.Output    `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	Attachment any              `json:"attachment,omitempty"`
	Tokens     int              `json:"tokens,omitempty"`
}

type messageDoc struct {
	Role  session.Role `json:"role"`
	Parts []partDoc    `json:"parts"`
}

type toolCallDoc struct {
	CallID   string        `json:"call_id"`
	ToolName string        `json:"tool_name"`
	Status   tools.State   `json:"status"`
	Output   *tools.Output `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type compactionDoc struct {
	Summary string    `json:"summary"`
	Tokens  int       `json:"tokens,omitempty"`
	At      time.Time `json:"at"`
}

func toDocument(s *Snapshot) document {
	doc := document{
		Version:     s.Version,
		Messages:    make([]messageDoc, 0, len(s.Messages)),
		ToolCalls:   make([]toolCallDoc, 0, len(s.ToolCalls)),
		Compactions: make([]compactionDoc, 0, len(s.Compactions)),
		RunLogRefs:  s.RunLogRefs,
	}
	for _, m := range s.Messages {
		parts := make([]partDoc, 0, len(m.Parts))
		for _, p := range m.Parts {
			var out *tools.Output
			if p.Kind == session.PartToolResult {
				o := p.Output
				out = &o
			}
			parts = append(parts, partDoc{
				Kind: p.Kind, Text: p.Text, CallID: p.CallID, Output: out,
				Error: p.Error, Attachment: p.Attachment, Tokens: p.Tokens,
			})
		}
		doc.Messages = append(doc.Messages, messageDoc{Role: m.Role, Parts: parts})
	}
	for _, rec := range s.ToolCalls {
		doc.ToolCalls = append(doc.ToolCalls, toolCallDoc{
			CallID: rec.CallID, ToolName: rec.ToolName, Status: rec.Status,
			Output: rec.Output, Error: rec.Error,
		})
	}
	for _, c := range s.Compactions {
		doc.Compactions = append(doc.Compactions, compactionDoc{Summary: c.Summary, Tokens: c.Tokens, At: c.At})
	}
	if s.Trace != nil {
		doc.Trace = s.Trace.Entries()
	}
	return doc
}

func fromDocument(doc document) (*Snapshot, error) {
	if err := CheckVersion(doc.Version); err != nil {
		return nil, err
	}
	s := &Snapshot{
		Version:    doc.Version,
		ToolCalls:  make(map[string]tools.CallRecord, len(doc.ToolCalls)),
		RunLogRefs: doc.RunLogRefs,
		Trace:      trace.New(),
	}
	for _, md := range doc.Messages {
		parts := make([]session.Part, 0, len(md.Parts))
		for _, pd := range md.Parts {
			part := session.Part{Kind: pd.Kind, Text: pd.Text, CallID: pd.CallID, Error: pd.Error, Attachment: pd.Attachment, Tokens: pd.Tokens}
			if pd.Output != nil {
				part.Output = *pd.Output
			}
			parts = append(parts, part)
		}
		s.Messages = append(s.Messages, session.Message{Role: md.Role, Parts: parts})
	}
	for _, tc := range doc.ToolCalls {
		s.ToolCalls[tc.CallID] = tools.CallRecord{
			CallID: tc.CallID, ToolName: tc.ToolName, Status: tc.Status, Output: tc.Output, Error: tc.Error,
		}
	}
	for _, c := range doc.Compactions {
		s.Compactions = append(s.Compactions, CompactionRecord{Summary: c.Summary, Tokens: c.Tokens, At: c.At})
	}
	for _, e := range doc.Trace {
		s.Trace.Append(e)
	}
	return s, nil
}

// EncodeJSON renders s as the structured snapshot document.
func EncodeJSON(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(toDocument(s))
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode document: %w", err)
	}
	return data, nil
}

// DecodeJSON parses a structured snapshot document. It rejects documents
// whose version exceeds CurrentVersion with *ErrUnsupportedVersion.
func DecodeJSON(data []byte) (*Snapshot, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: decode document: %w", err)
	}
	return fromDocument(doc)
}
