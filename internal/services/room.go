package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

type RoomSettings struct {
	AnswerSeconds int                `json:"answer_seconds"`
	VoteSeconds   int                `json:"vote_seconds"`
	VotingStyle   models.VotingStyle `json:"voting_style"`
	MaxRanks      int                `json:"max_ranks"`
	SmoothAnswers bool               `json:"smooth_answers"`
}

func (s *RoomService) CreateRoom(creatorID uint, settings RoomSettings) (*models.Room, error) {
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}

	room := models.Room{
		CreatorID:     creatorID,
		Code:          s.generateUniqueCode(),
		Status:        models.RoomStatusWaiting,
		AnswerSeconds: settings.AnswerSeconds,
		VoteSeconds:   settings.VoteSeconds,
		VotingStyle:   settings.VotingStyle,
		MaxRanks:      settings.MaxRanks,
		SmoothAnswers: settings.SmoothAnswers,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		// the narrator owns default winners when a round ends with no votes
		narrator := models.Participant{
			RoomID:   room.ID,
			Nickname: "narrator",
			Role:     models.RoleAudience,
			IsSystem: true,
			JoinedAt: time.Now(),
		}
		return tx.Create(&narrator).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func validateSettings(settings *RoomSettings) error {
	switch settings.VotingStyle {
	case models.VotingStyleSingle, models.VotingStyleRanked, models.VotingStyleAudience:
	case "":
		settings.VotingStyle = models.VotingStyleSingle
	default:
		return fmt.Errorf("unknown voting style %q", settings.VotingStyle)
	}
	if settings.AnswerSeconds <= 0 {
		settings.AnswerSeconds = 60
	}
	if settings.VoteSeconds <= 0 {
		settings.VoteSeconds = 30
	}
	if settings.MaxRanks <= 0 {
		settings.MaxRanks = 3
	}
	return nil
}

func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, errors.New("room not found")
	}
	return &room, nil
}

func (s *RoomService) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("code = ?", code).First(&room).Error; err != nil {
		return nil, errors.New("room not found")
	}
	return &room, nil
}

func (s *RoomService) GetCreatorRoom(roomID, creatorID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("id = ? AND creator_id = ?", roomID, creatorID).
		First(&room).Error; err != nil {
		return nil, errors.New("room not found")
	}
	return &room, nil
}

// UpdateSettings edits phase durations and voting configuration; only
// allowed while the room waits for a game to start.
func (s *RoomService) UpdateSettings(roomID, creatorID uint, settings RoomSettings) (*models.Room, error) {
	room, err := s.GetCreatorRoom(roomID, creatorID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, errors.New("settings can only change in the waiting room")
	}
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}

	room.AnswerSeconds = settings.AnswerSeconds
	room.VoteSeconds = settings.VoteSeconds
	room.VotingStyle = settings.VotingStyle
	room.MaxRanks = settings.MaxRanks
	room.SmoothAnswers = settings.SmoothAnswers
	if err := s.db.Save(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

type RoomJoinResult struct {
	Room        models.Room        `json:"room"`
	Participant models.Participant `json:"participant"`
	IsRejoin    bool               `json:"is_rejoin"`
}

func (s *RoomService) JoinRoom(code, nickname, webToken string, role models.ParticipantRole) (*RoomJoinResult, error) {
	room, err := s.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}

	if webToken != "" {
		var existing models.Participant
		if err := s.db.Where("room_id = ? AND web_token = ?", room.ID, webToken).
			First(&existing).Error; err == nil {
			if nickname != "" && nickname != existing.Nickname {
				existing.Nickname = nickname
				s.db.Save(&existing)
			}
			return &RoomJoinResult{Room: *room, Participant: existing, IsRejoin: true}, nil
		}
	}

	if role != models.RoleAudience {
		role = models.RolePlayer
	}

	participant := models.Participant{
		RoomID:   room.ID,
		Nickname: nickname,
		Role:     role,
		WebToken: uuid.NewString(),
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(&participant).Error; err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return &RoomJoinResult{Room: *room, Participant: participant}, nil
}

func (s *RoomService) Reconnect(webToken, code string) (*RoomJoinResult, error) {
	room, err := s.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}

	var participant models.Participant
	if err := s.db.Where("room_id = ? AND web_token = ?", room.ID, webToken).
		First(&participant).Error; err != nil {
		return nil, errors.New("participant not found")
	}

	return &RoomJoinResult{Room: *room, Participant: participant, IsRejoin: true}, nil
}

func (s *RoomService) GetParticipantByToken(roomID uint, webToken string) (*models.Participant, error) {
	var participant models.Participant
	if err := s.db.Where("room_id = ? AND web_token = ?", roomID, webToken).
		First(&participant).Error; err != nil {
		return nil, errors.New("participant not found")
	}
	return &participant, nil
}

func (s *RoomService) ListParticipants(roomID uint) ([]models.Participant, error) {
	var participants []models.Participant
	err := s.db.Where("room_id = ? AND is_system = ?", roomID, false).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (s *RoomService) generateUniqueCode() string {
	for {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		var count int64
		s.db.Model(&models.Room{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			return code
		}
	}
}
