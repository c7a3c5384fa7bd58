package models

import "time"

type RoomStatus string

const (
	RoomStatusWaiting      RoomStatus = "waiting_room"
	RoomStatusAnswering    RoomStatus = "answering"
	RoomStatusVoting       RoomStatus = "voting"
	RoomStatusResults      RoomStatus = "results"
	RoomStatusFinalResults RoomStatus = "final_results"
)

type VotingStyle string

const (
	VotingStyleSingle   VotingStyle = "single_choice"
	VotingStyleRanked   VotingStyle = "ranked_choice"
	VotingStyleAudience VotingStyle = "audience"
)

// Room owns the authoritative phase status. ActiveGameID is nil exactly
// while the room sits in the waiting room.
type Room struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	CreatorID     uint          `gorm:"not null;index" json:"creator_id"`
	Creator       Creator       `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Code          string        `gorm:"size:6;index" json:"code"`
	Status        RoomStatus    `gorm:"size:20;not null;default:'waiting_room'" json:"status"`
	ActiveGameID  *uint         `json:"active_game_id,omitempty"`
	ActiveGame    *Game         `gorm:"foreignKey:ActiveGameID" json:"active_game,omitempty"`
	AnswerSeconds int           `gorm:"not null;default:60" json:"answer_seconds"`
	VoteSeconds   int           `gorm:"not null;default:30" json:"vote_seconds"`
	VotingStyle   VotingStyle   `gorm:"size:20;not null;default:'single_choice'" json:"voting_style"`
	MaxRanks      int           `gorm:"not null;default:3" json:"max_ranks"`
	SmoothAnswers bool          `gorm:"not null;default:false" json:"smooth_answers"`
	Participants  []Participant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Timed reports whether a phase runs against a deadline. Only Answering and
// Voting are timed; Results and FinalResults wait on the creator.
func (s RoomStatus) Timed() bool {
	return s == RoomStatusAnswering || s == RoomStatusVoting
}
