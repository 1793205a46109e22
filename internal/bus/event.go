package bus

import (
	"encoding/json"
	"time"
)

// Event signals that cached results for a poll are stale. It is delivered
// at-least-once and consumed idempotently; the option/vote fields let remote
// instances emit the realtime delta for votes they did not serve themselves.
type Event struct {
	PollID      int64     `json:"pollId"`
	OptionOrder int       `json:"optionOrder,omitempty"`
	VoteID      int64     `json:"voteId,omitempty"`
	VoterID     *int64    `json:"voterUserId,omitempty"`
	Origin      string    `json:"origin,omitempty"`
	At          time.Time `json:"ts"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

func decodeEvent(b []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(b, &e)
	return e, err
}
