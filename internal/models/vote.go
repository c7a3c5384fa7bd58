package models

import "time"

type VoteKind string

const (
	VoteKindPlayer   VoteKind = "player"
	VoteKindAudience VoteKind = "audience"
)

// Vote is one cast preference per (participant, game prompt, target answer).
// Rank is set only for ranked-choice votes (1..MaxRanks). Stars is set only
// for audience votes; audience votes are cosmetic and never feed quorum or
// winner computation.
type Vote struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GamePromptID  uint      `gorm:"not null;uniqueIndex:idx_vote_unique" json:"game_prompt_id"`
	ParticipantID uint      `gorm:"not null;uniqueIndex:idx_vote_unique" json:"participant_id"`
	AnswerID      uint      `gorm:"not null;uniqueIndex:idx_vote_unique;index" json:"answer_id"`
	Kind          VoteKind  `gorm:"size:16;not null;default:'player'" json:"kind"`
	Rank          *int      `json:"rank,omitempty"`
	Stars         int       `gorm:"not null;default:0" json:"stars,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
