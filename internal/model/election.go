package model

import "time"

// Election represents a ranked-choice election. The candidate list is fixed
// at creation time; only the coordinator flips Active back to false.
type Election struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Candidates []string  `json:"candidates"`
	Seats      int       `json:"seats"`
	Active     bool      `json:"active"`
	SinkRef    string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CastingToken is a single-use credential binding one voter to one
// opportunity to cast a ballot. The voter is present only as a one-way hash.
type CastingToken struct {
	Token      string    `json:"-"`
	ElectionID string    `json:"electionId"`
	VoterHash  string    `json:"-"`
	Used       bool      `json:"used"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// Ballot is an anonymized ranking. It deliberately has no column that can be
// joined back to a CastingToken or ParticipationRecord row.
type Ballot struct {
	ID            int64    `json:"-"`
	ElectionID    string   `json:"electionId"`
	RankedChoices []string `json:"rankedChoices"`
}

// ParticipationRecord marks that a voter has voted in an election, without
// reference to ballot content. Its presence blocks token reissuance.
type ParticipationRecord struct {
	ElectionID string
	VoterHash  string
}

// TallyJob is a durable scheduler entry: run the tally for ElectionID at or
// after RunAt. The row is removed only once the tally has run to completion,
// so a restart never drops a pending tally.
type TallyJob struct {
	ID         string
	ElectionID string
	RunAt      time.Time
}

// VoteDetailsResponse is the API response for a vote-details lookup.
type VoteDetailsResponse struct {
	Title      string   `json:"title"`
	Candidates []string `json:"candidates"`
}

// CastRequest is the API request body for submitting a ballot.
type CastRequest struct {
	Token         string   `json:"token"`
	RankedChoices []string `json:"rankedChoices"`
}

// CastResponse is the API response after a successful cast.
type CastResponse struct {
	Success bool `json:"success"`
}
