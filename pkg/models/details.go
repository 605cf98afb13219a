package models

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/emersion/go-message/textproto"
)

// TimestampLayout is the ISO-8601 form used for MessageDetails.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// MessageDetails is the metadata view of a single email message.
type MessageDetails struct {
	MessageID string  `json:"messageId" yaml:"messageId"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Details   Details `json:"details" yaml:"details"`
}

// Details holds headers, transit hops and scoring for a message.
type Details struct {
	Headers               map[string]string     `json:"headers" yaml:"headers"`
	Routing               []RoutingHop          `json:"routing" yaml:"routing"`
	Size                  string                `json:"size" yaml:"size"`
	Priority              string                `json:"priority" yaml:"priority"`
	Sensitivity           string                `json:"sensitivity" yaml:"sensitivity"`
	SpamScore             string                `json:"spam_score" yaml:"spam_score"`
	AuthenticationResults AuthenticationResults `json:"authentication_results" yaml:"authentication_results"`
}

// RoutingHop is one stage of message transit.
type RoutingHop struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Server    string `json:"server" yaml:"server"`
	Action    string `json:"action" yaml:"action"`
	Details   string `json:"details" yaml:"details"`
}

type AuthenticationResults struct {
	SPF   string `json:"spf" yaml:"spf"`
	DKIM  string `json:"dkim" yaml:"dkim"`
	DMARC string `json:"dmarc" yaml:"dmarc"`
}

// HeaderBlock renders the headers as an RFC 5322 header section,
// CRLF-terminated and followed by the empty separator line.
// Field names are canonicalized and written in sorted order.
func (d MessageDetails) HeaderBlock() ([]byte, error) {
	names := make([]string, 0, len(d.Details.Headers))
	for name := range d.Details.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	// textproto.Header inserts new fields at the top.
	var h textproto.Header
	for i := len(names) - 1; i >= 0; i-- {
		h.Add(names[i], d.Details.Headers[names[i]])
	}

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, h); err != nil {
		return nil, fmt.Errorf("failed to write header block: %w", err)
	}
	return buf.Bytes(), nil
}
