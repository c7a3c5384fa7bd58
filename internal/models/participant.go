package models

import "time"

type ParticipantRole string

const (
	RolePlayer   ParticipantRole = "player"
	RoleAudience ParticipantRole = "audience"
)

// ParticipantStatus is derived per participant against the current game
// prompt; it is never stored. Advancing the prompt resets everyone
// implicitly because the underlying submissions are scoped to the prompt.
type ParticipantStatus string

const (
	StatusAnswering ParticipantStatus = "answering"
	StatusAnswered  ParticipantStatus = "answered"
	StatusVoting    ParticipantStatus = "voting"
	StatusVoted     ParticipantStatus = "voted"
)

type Participant struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	RoomID    uint            `gorm:"not null;index" json:"room_id"`
	Nickname  string          `gorm:"size:100;not null" json:"nickname"`
	Role      ParticipantRole `gorm:"size:20;not null;default:'player'" json:"role"`
	IsCreator bool            `gorm:"not null;default:false" json:"is_creator"`
	IsSystem  bool            `gorm:"not null;default:false" json:"-"`
	WebToken  string          `gorm:"size:64;index" json:"web_token,omitempty"`
	JoinedAt  time.Time       `json:"joined_at"`
}
