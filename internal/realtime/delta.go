package realtime

import "time"

// Delta is the structured change notification pushed to live clients. The
// field set mirrors what the web client consumes; unused fields are omitted
// per delta type.
type Delta struct {
	Type        string `json:"type"`
	PollID      int64  `json:"pollId"`
	OptionOrder int    `json:"optionOrder,omitempty"`
	VoteID      int64  `json:"voteId,omitempty"`
	VoterUserID *int64 `json:"voterUserId,omitempty"`
	CommentID   int64  `json:"commentId,omitempty"`
	ParentID    *int64 `json:"parentId,omitempty"`
	TS          int64  `json:"ts"`
}

func VoteDelta(pollID int64, order int, voteID int64, voterID *int64) Delta {
	return Delta{
		Type:        "vote-delta",
		PollID:      pollID,
		OptionOrder: order,
		VoteID:      voteID,
		VoterUserID: voterID,
		TS:          time.Now().UnixMilli(),
	}
}

// PollDelta builds poll-created, poll-updated and poll-deleted payloads.
func PollDelta(typ string, pollID int64) Delta {
	return Delta{Type: typ, PollID: pollID, TS: time.Now().UnixMilli()}
}

// CommentDelta builds comment-created, comment-updated and comment-deleted
// payloads.
func CommentDelta(typ string, pollID, commentID int64, parentID *int64) Delta {
	return Delta{
		Type:      typ,
		PollID:    pollID,
		CommentID: commentID,
		ParentID:  parentID,
		TS:        time.Now().UnixMilli(),
	}
}
