package models

import "time"

// Story text carries numbered blank markers like "A {1} walked into a {2}.".
type Story struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Blanks    []Blank   `gorm:"foreignKey:StoryID" json:"blanks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Blank is one substitution slot in a story; Marker is the n in {n}.
type Blank struct {
	ID      uint     `gorm:"primaryKey" json:"id"`
	StoryID uint     `gorm:"not null;uniqueIndex:idx_blank_marker" json:"story_id"`
	Marker  int      `gorm:"not null;uniqueIndex:idx_blank_marker" json:"marker"`
	Prompts []Prompt `gorm:"foreignKey:BlankID" json:"prompts,omitempty"`
}

// Prompt is the writing question shown to players for a blank.
type Prompt struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BlankID uint   `gorm:"not null;index" json:"blank_id"`
	Text    string `gorm:"size:500;not null" json:"text"`
}
