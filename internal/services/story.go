package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"gorm.io/gorm"
)

type StoryService struct {
	db *gorm.DB
}

func NewStoryService(db *gorm.DB) *StoryService {
	return &StoryService{db: db}
}

func (s *StoryService) ListStories() ([]models.Story, error) {
	var stories []models.Story
	if err := s.db.Order("created_at DESC").Find(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}

func (s *StoryService) GetStory(storyID uint) (*models.Story, error) {
	var story models.Story
	if err := s.db.Preload("Blanks", func(db *gorm.DB) *gorm.DB {
		return db.Order("marker ASC")
	}).Preload("Blanks.Prompts").First(&story, storyID).Error; err != nil {
		return nil, errors.New("story not found")
	}
	return &story, nil
}

type BlankInput struct {
	Marker  int      `json:"marker" binding:"required"`
	Prompts []string `json:"prompts" binding:"required,min=1"`
}

func (s *StoryService) CreateStory(title, text string, blanks []BlankInput) (*models.Story, error) {
	if len(blanks) == 0 {
		return nil, errors.New("story needs at least one blank")
	}
	seen := make(map[int]bool)
	for _, b := range blanks {
		if seen[b.Marker] {
			return nil, fmt.Errorf("duplicate blank marker %d", b.Marker)
		}
		seen[b.Marker] = true
		if !strings.Contains(text, fmt.Sprintf("{%d}", b.Marker)) {
			return nil, fmt.Errorf("marker {%d} does not appear in the story text", b.Marker)
		}
	}

	story := models.Story{Title: title, Text: text}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&story).Error; err != nil {
			return err
		}
		for _, b := range blanks {
			blank := models.Blank{StoryID: story.ID, Marker: b.Marker}
			if err := tx.Create(&blank).Error; err != nil {
				return err
			}
			for _, p := range b.Prompts {
				if err := tx.Create(&models.Prompt{BlankID: blank.ID, Text: p}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetStory(story.ID)
}

// Seed inserts a starter story so a fresh install has something playable.
func (s *StoryService) Seed() error {
	var count int64
	if err := s.db.Model(&models.Story{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := s.CreateStory(
		"The Birthday Disaster",
		"Richard woke up on his birthday and found {1} in the kitchen. "+
			"Naturally, he decided to {2}. "+
			"By noon the whole town was talking about {3}.",
		[]BlankInput{
			{Marker: 1, Prompts: []string{"Something you'd hate to find in your kitchen"}},
			{Marker: 2, Prompts: []string{"The worst possible reaction to a surprise"}},
			{Marker: 3, Prompts: []string{"A rumor that spreads instantly"}},
		},
	)
	return err
}
