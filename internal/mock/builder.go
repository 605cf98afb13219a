// Package mock builds fixture message details for stubbing UIs and APIs.
package mock

import (
	"fmt"
	"time"

	"go-message-details/pkg/models"
)

// Builder produces MessageDetails fixtures. The zero value is not usable;
// create one with NewBuilder.
type Builder struct {
	now func() time.Time
}

type Option func(*Builder)

// WithClock overrides the clock used for the generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var defaultBuilder = NewBuilder()

// BuildMessageDetails returns the fixture for messageID stamped with the
// current time. Any string is accepted, including the empty one.
func BuildMessageDetails(messageID string) models.MessageDetails {
	return defaultBuilder.Build(messageID)
}

// Build returns a freshly allocated fixture for messageID.
func (b *Builder) Build(messageID string) models.MessageDetails {
	return models.MessageDetails{
		MessageID: messageID,
		Timestamp: b.now().UTC().Format(models.TimestampLayout),
		Details: models.Details{
			Headers: map[string]string{
				models.HeaderMessageID:                          fmt.Sprintf("<%s@example.com>", messageID),
				"x-originating-ip":                              "192.168.1.100",
				"x-ms-exchange-transport-fromentityheader":      "Hosted",
				"content-type":                                  "multipart/mixed",
				"x-ms-exchange-organization-authsource":         "DM6PR03MB6035.namprd03.prod.outlook.com",
				"x-ms-has-attach":                               "yes",
				"x-ms-exchange-organization-network-message-id": "d189f8a0-1234-5678-90ab-cd1234567890",
				"x-ms-exchange-organization-scl":                "1",
			},
			Routing: []models.RoutingHop{
				{
					Timestamp: "2024-03-20T10:15:25Z",
					Server:    "EXCHVS01.internal.com",
					Action:    "Received",
					Details:   "from client submission",
				},
				{
					Timestamp: "2024-03-20T10:15:26Z",
					Server:    "EXCHRT02.internal.com",
					Action:    "Processed",
					Details:   "message routing",
				},
				{
					Timestamp: "2024-03-20T10:15:27Z",
					Server:    "EXCHSEC01.internal.com",
					Action:    "Scanned",
					Details:   "security check completed",
				},
			},
			Size:        "234567",
			Priority:    "normal",
			Sensitivity: "none",
			SpamScore:   "1.2",
			AuthenticationResults: models.AuthenticationResults{
				SPF:   "pass",
				DKIM:  "pass",
				DMARC: "pass",
			},
		},
	}
}
