package services

import (
	"errors"
	"fmt"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"gorm.io/gorm"
)

// SubmissionService persists answers and votes, then hands the fact to the
// phase machine for quorum checking.
type SubmissionService struct {
	db    *gorm.DB
	phase *PhaseService
}

func NewSubmissionService(db *gorm.DB, phase *PhaseService) *SubmissionService {
	return &SubmissionService{db: db, phase: phase}
}

func (s *SubmissionService) SubmitAnswer(code, webToken, text string) (*models.Answer, error) {
	_, participant, gamePromptID, err := s.resolve(code, webToken, models.RoomStatusAnswering)
	if err != nil {
		return nil, err
	}
	if participant.Role != models.RolePlayer {
		return nil, errors.New("audience members cannot submit answers")
	}

	var existing models.Answer
	if err := s.db.Where("game_prompt_id = ? AND participant_id = ?",
		gamePromptID, participant.ID).First(&existing).Error; err == nil {
		return nil, errors.New("answer already submitted for this round")
	}

	answer := models.Answer{
		GamePromptID:  gamePromptID,
		ParticipantID: participant.ID,
		Text:          text,
	}
	if err := s.db.Create(&answer).Error; err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	s.phase.OnAnswerSubmitted(answer)
	return &answer, nil
}

type VoteInput struct {
	AnswerID uint
	Rank     *int
	Stars    int
}

func (s *SubmissionService) CastVote(code, webToken string, in VoteInput) (*models.Vote, error) {
	room, participant, gamePromptID, err := s.resolve(code, webToken, models.RoomStatusVoting)
	if err != nil {
		return nil, err
	}

	var answer models.Answer
	if err := s.db.Where("id = ? AND game_prompt_id = ?", in.AnswerID, gamePromptID).
		First(&answer).Error; err != nil {
		return nil, errors.New("answer does not belong to the current round")
	}

	vote := models.Vote{
		GamePromptID:  gamePromptID,
		ParticipantID: participant.ID,
		AnswerID:      in.AnswerID,
	}

	if participant.Role == models.RoleAudience {
		stars := in.Stars
		if stars < 1 {
			stars = 1
		}
		if stars > 5 {
			stars = 5
		}
		vote.Kind = models.VoteKindAudience
		vote.Stars = stars
	} else {
		if answer.ParticipantID == participant.ID {
			return nil, errors.New("cannot vote for your own answer")
		}
		vote.Kind = models.VoteKindPlayer
		if err := s.validatePlayerVote(room, participant.ID, gamePromptID, in, &vote); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(&vote).Error; err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	s.phase.OnVoteCast(vote)
	return &vote, nil
}

func (s *SubmissionService) validatePlayerVote(room *models.Room, participantID, gamePromptID uint, in VoteInput, vote *models.Vote) error {
	var prior []models.Vote
	if err := s.db.Where("game_prompt_id = ? AND participant_id = ? AND kind = ?",
		gamePromptID, participantID, models.VoteKindPlayer).
		Find(&prior).Error; err != nil {
		return err
	}

	if room.VotingStyle != models.VotingStyleRanked {
		if len(prior) > 0 {
			return errors.New("vote already cast for this round")
		}
		return nil
	}

	if in.Rank == nil {
		return errors.New("ranked-choice votes require a rank")
	}
	rank := *in.Rank
	if rank < 1 || rank > room.MaxRanks {
		return fmt.Errorf("rank must be between 1 and %d", room.MaxRanks)
	}
	for _, v := range prior {
		if v.Rank != nil && *v.Rank == rank {
			return fmt.Errorf("rank %d already used", rank)
		}
		if v.AnswerID == in.AnswerID {
			return errors.New("answer already ranked")
		}
	}
	vote.Rank = &rank
	return nil
}

// resolve loads the room by code, checks the phase the submission targets,
// and returns the caller's participant and the active prompt.
func (s *SubmissionService) resolve(code, webToken string, want models.RoomStatus) (*models.Room, *models.Participant, uint, error) {
	var room models.Room
	if err := s.db.Where("code = ?", code).First(&room).Error; err != nil {
		return nil, nil, 0, errors.New("room not found")
	}
	if room.Status != want {
		return nil, nil, 0, fmt.Errorf("room is not in the %s phase", want)
	}
	if room.ActiveGameID == nil {
		return nil, nil, 0, errors.New("room has no active game")
	}

	var game models.Game
	if err := s.db.First(&game, *room.ActiveGameID).Error; err != nil {
		return nil, nil, 0, err
	}
	if game.CurrentPromptID == nil {
		return nil, nil, 0, errors.New("room has no active round")
	}

	var participant models.Participant
	if err := s.db.Where("room_id = ? AND web_token = ?", room.ID, webToken).
		First(&participant).Error; err != nil {
		return nil, nil, 0, errors.New("participant not found")
	}

	return &room, &participant, *game.CurrentPromptID, nil
}
