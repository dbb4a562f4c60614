package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// FrameKind discriminates the tagged frames a validator can send.
type FrameKind int

const (
	// FrameUnrecognized is any well-formed JSON object without a known tag.
	// It is skipped, never treated as an error.
	FrameUnrecognized FrameKind = iota
	// FrameRegisterValidator declares the validator's identity and location.
	FrameRegisterValidator
	// FrameWebsiteStatus reports one completed check.
	FrameWebsiteStatus
)

// RegisterValidator is the payload of a register_validator frame.
type RegisterValidator struct {
	ValidatorID string    `json:"validator_id"`
	Location    *Location `json:"location,omitempty"`
}

// WebsiteStatus is the payload of a website_status frame.
type WebsiteStatus struct {
	WebsiteID   string       `json:"website_id"`
	URL         string       `json:"url,omitempty"`
	ValidatorID string       `json:"validator_id"`
	Timestamp   time.Time    `json:"timestamp"`
	Details     *Measurement `json:"details,omitempty"`
}

// ClientFrame is the parse-or-reject result for one inbound socket frame.
// Exactly one of Register/Status is set, matching Kind.
type ClientFrame struct {
	Kind     FrameKind
	Register *RegisterValidator
	Status   *WebsiteStatus
}

// ParseClientFrame decodes one inbound frame. Malformed JSON and frames
// missing required fields return an error; a valid object with no known tag
// comes back as FrameUnrecognized with a nil error.
func ParseClientFrame(data []byte) (ClientFrame, error) {
	var raw struct {
		Register *RegisterValidator `json:"register_validator"`
		Status   *WebsiteStatus     `json:"website_status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ClientFrame{}, fmt.Errorf("malformed frame: %w", err)
	}

	switch {
	case raw.Register != nil:
		if raw.Register.ValidatorID == "" {
			return ClientFrame{}, fmt.Errorf("register_validator frame missing validator_id")
		}
		return ClientFrame{Kind: FrameRegisterValidator, Register: raw.Register}, nil
	case raw.Status != nil:
		if raw.Status.WebsiteID == "" {
			return ClientFrame{}, fmt.Errorf("website_status frame missing website_id")
		}
		return ClientFrame{Kind: FrameWebsiteStatus, Status: raw.Status}, nil
	default:
		return ClientFrame{Kind: FrameUnrecognized}, nil
	}
}
