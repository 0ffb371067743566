package models

import "time"

// Direction tells whether a message travels from the user to the bot or back.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Verdict is the result of running text through the content filter.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Label renders the verdict as the string persisted in a conversation record.
func (v Verdict) Label() string {
	if v.Allowed {
		return "allowed"
	}
	return "rejected:" + v.Reason
}

// Message is a single piece of text moving through the pipeline.
// Messages are immutable once created.
type Message struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	Verdict   Verdict   `json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
}

// Record pairs an inbound message with its outbound reply (or a rejection
// marker when the pipeline stopped early). Records are append-only.
type Record struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	InboundText     string    `json:"inbound_text"`
	OutboundText    string    `json:"outbound_text"`
	VerdictInbound  string    `json:"verdict_inbound"`
	VerdictOutbound string    `json:"verdict_outbound"`
	FallbackUsed    bool      `json:"fallback_used"`
	CreatedAt       time.Time `json:"created_at"`
}
