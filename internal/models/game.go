package models

import "time"

// Game is one play-through of a room. CurrentPromptID advances monotonically
// through the game's ordered prompts and is nil once the game has finished.
// PhaseDeadline is set only while a timed phase is running.
type Game struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	RoomID          uint        `gorm:"not null;index" json:"room_id"`
	StoryID         uint        `gorm:"not null" json:"story_id"`
	Story           Story       `gorm:"foreignKey:StoryID" json:"story,omitempty"`
	CurrentPromptID *uint       `json:"current_prompt_id,omitempty"`
	CurrentPrompt   *GamePrompt `gorm:"foreignKey:CurrentPromptID" json:"current_prompt,omitempty"`
	PhaseDeadline   *time.Time  `json:"phase_deadline,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// GamePrompt binds one prompt and one blank into an ordered round slot.
// Immutable once created.
type GamePrompt struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	GameID     uint   `gorm:"not null;uniqueIndex:idx_game_prompt_order" json:"game_id"`
	OrderIndex int    `gorm:"not null;uniqueIndex:idx_game_prompt_order" json:"order_index"`
	PromptID   uint   `gorm:"not null" json:"prompt_id"`
	Prompt     Prompt `gorm:"foreignKey:PromptID" json:"prompt,omitempty"`
	BlankID    uint   `gorm:"not null" json:"blank_id"`
	Blank      Blank  `gorm:"foreignKey:BlankID" json:"blank,omitempty"`
}
