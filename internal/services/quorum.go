package services

import (
	"errors"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"gorm.io/gorm"
)

type QuorumService struct {
	db *gorm.DB
}

func NewQuorumService(db *gorm.DB) *QuorumService {
	return &QuorumService{db: db}
}

// RequiredRanks is how many distinct ranked votes a participant must cast
// before counting as Voted. A participant cannot rank more answers than
// exist minus their own, so the requirement adapts downward when a round
// produced fewer answers than the configured rank depth.
func RequiredRanks(totalAnswers, maxRanks int) int {
	required := totalAnswers - 1
	if required > maxRanks {
		required = maxRanks
	}
	if required < 0 {
		required = 0
	}
	return required
}

// IsQuorumMet reports whether every eligible player has completed the given
// phase for the game prompt. Audience participants are never eligible and
// audience votes never count.
func (s *QuorumService) IsQuorumMet(gamePromptID uint, phase models.RoomStatus) (bool, error) {
	var gp models.GamePrompt
	if err := s.db.First(&gp, gamePromptID).Error; err != nil {
		return false, err
	}
	var game models.Game
	if err := s.db.First(&game, gp.GameID).Error; err != nil {
		return false, err
	}
	var room models.Room
	if err := s.db.First(&room, game.RoomID).Error; err != nil {
		return false, err
	}

	var players []models.Participant
	if err := s.db.Where("room_id = ? AND role = ?", room.ID, models.RolePlayer).
		Find(&players).Error; err != nil {
		return false, err
	}
	if len(players) == 0 {
		return false, nil
	}

	switch phase {
	case models.RoomStatusAnswering:
		var answered int64
		if err := s.db.Model(&models.Answer{}).
			Where("game_prompt_id = ?", gamePromptID).
			Distinct("participant_id").
			Count(&answered).Error; err != nil {
			return false, err
		}
		return answered >= int64(len(players)), nil

	case models.RoomStatusVoting:
		for _, p := range players {
			voted, err := s.HasVoted(&room, gamePromptID, p.ID)
			if err != nil {
				return false, err
			}
			if !voted {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, errors.New("quorum is only defined for answering and voting")
	}
}

// HasVoted reports whether one player counts as Voted for the prompt under
// the room's voting style.
func (s *QuorumService) HasVoted(room *models.Room, gamePromptID, participantID uint) (bool, error) {
	var votes []models.Vote
	if err := s.db.Where("game_prompt_id = ? AND participant_id = ? AND kind = ?",
		gamePromptID, participantID, models.VoteKindPlayer).
		Find(&votes).Error; err != nil {
		return false, err
	}

	if room.VotingStyle != models.VotingStyleRanked {
		return len(votes) > 0, nil
	}

	var totalAnswers int64
	if err := s.db.Model(&models.Answer{}).
		Where("game_prompt_id = ?", gamePromptID).
		Count(&totalAnswers).Error; err != nil {
		return false, err
	}

	ranks := make(map[int]bool)
	for _, v := range votes {
		if v.Rank != nil {
			ranks[*v.Rank] = true
		}
	}
	return len(ranks) >= RequiredRanks(int(totalAnswers), room.MaxRanks), nil
}

// HasAnswered reports whether a participant submitted an answer for the prompt.
func (s *QuorumService) HasAnswered(gamePromptID, participantID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Answer{}).
		Where("game_prompt_id = ? AND participant_id = ?", gamePromptID, participantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ParticipantPhaseStatus derives a participant's completion state for the
// active phase. History is never mutated; advancing the prompt resets
// everyone because submissions are scoped per prompt.
func (s *QuorumService) ParticipantPhaseStatus(room *models.Room, gamePromptID, participantID uint) (models.ParticipantStatus, error) {
	switch room.Status {
	case models.RoomStatusAnswering:
		answered, err := s.HasAnswered(gamePromptID, participantID)
		if err != nil {
			return "", err
		}
		if answered {
			return models.StatusAnswered, nil
		}
		return models.StatusAnswering, nil
	case models.RoomStatusVoting:
		voted, err := s.HasVoted(room, gamePromptID, participantID)
		if err != nil {
			return "", err
		}
		if voted {
			return models.StatusVoted, nil
		}
		return models.StatusVoting, nil
	default:
		return "", nil
	}
}
