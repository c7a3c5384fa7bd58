package services

import (
	"context"
	"errors"
	"math/rand"

	"github.com/zachjustice/richard-bday-sub001/internal/models"
	"github.com/zachjustice/richard-bday-sub001/internal/tasks"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WinnerService struct {
	db          *gorm.DB
	queue       tasks.Queue
	defaultText string
}

func NewWinnerService(db *gorm.DB, queue tasks.Queue, defaultText string) *WinnerService {
	if queue == nil {
		queue = tasks.NoopQueue{}
	}
	return &WinnerService{db: db, queue: queue, defaultText: defaultText}
}

// SelectWinner picks the round's winning answer in its own transaction.
// Safe to call any number of times.
func (s *WinnerService) SelectWinner(gamePromptID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.SelectWinnerTx(tx, gamePromptID)
	})
}

// SelectWinnerTx runs winner selection inside the caller's transaction. The
// game prompt row is the lock anchor: concurrent callers for the same round
// serialize here, and the winner-exists check under that lock makes every
// repeat call a no-op. Tie-break among equally-voted answers is uniform
// random; that is game design, not an accident.
func (s *WinnerService) SelectWinnerTx(tx *gorm.DB, gamePromptID uint) error {
	var gp models.GamePrompt
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&gp, gamePromptID).Error; err != nil {
		return err
	}

	var existing int64
	if err := tx.Model(&models.Answer{}).
		Where("game_prompt_id = ? AND won = ?", gamePromptID, true).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var game models.Game
	if err := tx.First(&game, gp.GameID).Error; err != nil {
		return err
	}
	var room models.Room
	if err := tx.First(&room, game.RoomID).Error; err != nil {
		return err
	}

	var votes []models.Vote
	if err := tx.Where("game_prompt_id = ?", gamePromptID).Find(&votes).Error; err != nil {
		return err
	}

	scores := TallyPlayerVotes(votes, room.VotingStyle, room.MaxRanks)
	candidates := TopAnswers(scores)
	if len(candidates) == 0 {
		// zero votes cast: every round still gets exactly one winner so
		// story assembly never hits a missing blank
		return s.insertDefaultWinner(tx, &room, gamePromptID)
	}

	winnerID := candidates[rand.Intn(len(candidates))]
	if err := tx.Model(&models.Answer{}).
		Where("id = ?", winnerID).
		Update("won", true).Error; err != nil {
		return err
	}

	log.Info().
		Uint("game_prompt_id", gamePromptID).
		Uint("answer_id", winnerID).
		Int("tied", len(candidates)).
		Msg("winner selected")

	if room.SmoothAnswers {
		// fire and forget; smoothing is cosmetic and must never block or
		// fail winner selection
		if err := s.queue.EnqueueSmoothing(context.Background(), winnerID); err != nil {
			log.Warn().Err(err).Uint("answer_id", winnerID).Msg("failed to enqueue smoothing task")
		}
	}
	return nil
}

func (s *WinnerService) insertDefaultWinner(tx *gorm.DB, room *models.Room, gamePromptID uint) error {
	var owner models.Participant
	err := tx.Where("room_id = ? AND is_system = ?", room.ID, true).First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("room has no system participant for the default winner")
	}
	if err != nil {
		return err
	}

	answer := models.Answer{
		GamePromptID:  gamePromptID,
		ParticipantID: owner.ID,
		Text:          s.defaultText,
		Won:           true,
	}
	if err := tx.Create(&answer).Error; err != nil {
		return err
	}

	log.Info().
		Uint("game_prompt_id", gamePromptID).
		Uint("answer_id", answer.ID).
		Msg("no votes cast, default winner inserted")
	return nil
}
