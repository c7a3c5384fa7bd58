package models

import "time"

// Answer is one submission per (participant, game prompt). Append-only
// except for the single Won flip performed by winner selection; at most one
// answer per game prompt ends up with Won = true.
type Answer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	GamePromptID  uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"game_prompt_id"`
	ParticipantID uint      `gorm:"not null;uniqueIndex:idx_answer_unique" json:"participant_id"`
	Text          string    `gorm:"size:500;not null" json:"text"`
	SmoothedText  string    `gorm:"size:500" json:"smoothed_text,omitempty"`
	Won           bool      `gorm:"not null;default:false" json:"won"`
	CreatedAt     time.Time `json:"created_at"`
}

// DisplayText prefers the smoothed rendition when the async smoothing task
// has produced one; the raw text stays authoritative otherwise.
func (a Answer) DisplayText() string {
	if a.SmoothedText != "" {
		return a.SmoothedText
	}
	return a.Text
}
