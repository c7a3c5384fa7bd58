package services

import (
	"errors"
	"math/rand"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AdvanceReason string

const (
	ReasonQuorumReached   AdvanceReason = "quorum_reached"
	ReasonDeadlineExpired AdvanceReason = "deadline_expired"
	ReasonManualAdvance   AdvanceReason = "manual_advance"
)

// Scheduler is the deadline-trigger collaborator. Delivery may overshoot
// the timestamp but must not undershoot it.
type Scheduler interface {
	ScheduleAt(at time.Time, roomID, gamePromptID uint, phase models.RoomStatus)
	Cancel(roomID uint)
}

// Notifier is the push-notification sink. Fire-and-forget; the phase
// machine never waits on it and never retries through it.
type Notifier interface {
	NotifyRoom(roomID uint, event string, payload interface{})
}

// PhaseService drives the room phase machine:
//
//	WaitingRoom → Answering → Voting → Results → (Answering | FinalResults)
//	FinalResults → WaitingRoom
//
// Quorum-driven submissions and deadline timers race to advance the same
// edge; both funnel into TryAdvance, which serializes on a row lock over the
// game record and re-validates state under that lock so exactly one caller
// applies the transition and the rest observe already-advanced state and
// exit harmlessly.
type PhaseService struct {
	db        *gorm.DB
	quorum    *QuorumService
	winner    *WinnerService
	projector *ProjectorService
	clock     Scheduler
	notifier  Notifier
	margin    time.Duration
}

func NewPhaseService(
	db *gorm.DB,
	quorum *QuorumService,
	winner *WinnerService,
	projector *ProjectorService,
	clock Scheduler,
	notifier Notifier,
	forgivenessMargin time.Duration,
) *PhaseService {
	return &PhaseService{
		db:        db,
		quorum:    quorum,
		winner:    winner,
		projector: projector,
		clock:     clock,
		notifier:  notifier,
		margin:    forgivenessMargin,
	}
}

// promptPicker selects which of a blank's prompts fills it.
var promptPicker = rand.Intn

// transition captures one applied edge so side effects can run after the
// lock is released.
type transition struct {
	from     models.RoomStatus
	to       models.RoomStatus
	promptID *uint
	deadline *time.Time
}

// OnAnswerSubmitted reacts to a persisted answer: if it completed the
// answering quorum, it tries to advance the room.
func (s *PhaseService) OnAnswerSubmitted(answer models.Answer) {
	met, err := s.quorum.IsQuorumMet(answer.GamePromptID, models.RoomStatusAnswering)
	if err != nil {
		log.Error().Err(err).Uint("game_prompt_id", answer.GamePromptID).Msg("answer quorum check failed")
		return
	}
	if !met {
		return
	}

	roomID, err := s.roomIDForPrompt(answer.GamePromptID)
	if err != nil {
		log.Error().Err(err).Uint("game_prompt_id", answer.GamePromptID).Msg("room lookup failed")
		return
	}
	if err := s.TryAdvance(roomID, answer.GamePromptID, ReasonQuorumReached); err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("quorum-driven advance failed")
	}
}

// OnVoteCast reacts to a persisted vote. Audience votes never affect quorum.
func (s *PhaseService) OnVoteCast(vote models.Vote) {
	if vote.Kind == models.VoteKindAudience {
		return
	}

	met, err := s.quorum.IsQuorumMet(vote.GamePromptID, models.RoomStatusVoting)
	if err != nil {
		log.Error().Err(err).Uint("game_prompt_id", vote.GamePromptID).Msg("vote quorum check failed")
		return
	}
	if !met {
		return
	}

	roomID, err := s.roomIDForPrompt(vote.GamePromptID)
	if err != nil {
		log.Error().Err(err).Uint("game_prompt_id", vote.GamePromptID).Msg("room lookup failed")
		return
	}
	if err := s.TryAdvance(roomID, vote.GamePromptID, ReasonQuorumReached); err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("quorum-driven advance failed")
	}
}

// HandleDeadline is the clock's delivery callback.
func (s *PhaseService) HandleDeadline(roomID, gamePromptID uint, phase models.RoomStatus) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("deadline: room lookup failed")
		return
	}
	if room.Status != phase {
		// quorum won the race; routine
		log.Debug().
			Uint("room_id", roomID).
			Str("expected", string(phase)).
			Str("actual", string(room.Status)).
			Msg("stale deadline trigger ignored")
		return
	}
	if err := s.TryAdvance(roomID, gamePromptID, ReasonDeadlineExpired); err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("deadline-driven advance failed")
	}
}

// TryAdvance applies the room's next phase edge for the given prompt. A
// trigger referencing a prompt the room has already moved past is a silent
// no-op, never an error: that is how the loser of the quorum/deadline race
// exits. Calling again after the transition happened is likewise a no-op
// with no duplicate notification.
func (s *PhaseService) TryAdvance(roomID, gamePromptID uint, reason AdvanceReason) error {
	// cheap fast-path rejection before taking any lock
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return err
	}
	if room.ActiveGameID == nil {
		return nil
	}
	var game models.Game
	if err := s.db.First(&game, *room.ActiveGameID).Error; err != nil {
		return err
	}
	if game.CurrentPromptID == nil || *game.CurrentPromptID != gamePromptID {
		log.Debug().
			Uint("room_id", roomID).
			Uint("game_prompt_id", gamePromptID).
			Str("reason", string(reason)).
			Msg("stale trigger ignored")
		return nil
	}

	switch room.Status {
	case models.RoomStatusAnswering, models.RoomStatusVoting:
	case models.RoomStatusResults:
		if reason != ReasonManualAdvance {
			return nil
		}
	default:
		return nil
	}

	var applied *transition
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = s.advanceLocked(tx, roomID, game.ID, gamePromptID, room.Status)
		return err
	})
	if err != nil || applied == nil {
		return err
	}

	s.afterTransition(roomID, applied, reason)
	return nil
}

// advanceLocked holds the game row lock across the check-then-act sequence.
// Winner selection for the Voting→Results edge happens inside this critical
// section so the winner flip and the status flip are atomic with respect to
// other callers.
func (s *PhaseService) advanceLocked(tx *gorm.DB, roomID, gameID, gamePromptID uint, expected models.RoomStatus) (*transition, error) {
	var game models.Game
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&game, gameID).Error; err != nil {
		return nil, err
	}

	// re-validate under the lock; a racing caller may have advanced already
	var room models.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		return nil, err
	}
	if room.Status != expected || game.CurrentPromptID == nil || *game.CurrentPromptID != gamePromptID {
		return nil, nil
	}

	t := &transition{from: room.Status}
	switch room.Status {
	case models.RoomStatusAnswering:
		t.to = models.RoomStatusVoting
		t.promptID = game.CurrentPromptID

	case models.RoomStatusVoting:
		if err := s.winner.SelectWinnerTx(tx, gamePromptID); err != nil {
			return nil, err
		}
		t.to = models.RoomStatusResults
		t.promptID = game.CurrentPromptID

	case models.RoomStatusResults:
		var current models.GamePrompt
		if err := tx.First(&current, gamePromptID).Error; err != nil {
			return nil, err
		}
		var next models.GamePrompt
		err := tx.Where("game_id = ? AND order_index > ?", game.ID, current.OrderIndex).
			Order("order_index ASC").
			First(&next).Error
		switch {
		case err == nil:
			t.to = models.RoomStatusAnswering
			t.promptID = &next.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
			t.to = models.RoomStatusFinalResults
			t.promptID = nil
		default:
			return nil, err
		}

	default:
		return nil, nil
	}

	if t.to.Timed() {
		seconds := room.AnswerSeconds
		if t.to == models.RoomStatusVoting {
			seconds = room.VoteSeconds
		}
		at := time.Now().Add(time.Duration(seconds)*time.Second + s.margin)
		t.deadline = &at
	}

	if err := tx.Model(&models.Game{}).Where("id = ?", game.ID).
		Updates(map[string]interface{}{
			"current_prompt_id": t.promptID,
			"phase_deadline":    t.deadline,
		}).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Room{}).Where("id = ?", roomID).
		Update("status", t.to).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// afterTransition runs side effects outside the critical section: timer
// scheduling and the single room_updated push. Notification must not extend
// lock hold time across a potentially slow sink.
func (s *PhaseService) afterTransition(roomID uint, t *transition, reason AdvanceReason) {
	log.Info().
		Uint("room_id", roomID).
		Str("from", string(t.from)).
		Str("to", string(t.to)).
		Str("reason", string(reason)).
		Msg("phase advanced")

	if t.deadline != nil && t.promptID != nil {
		s.clock.ScheduleAt(*t.deadline, roomID, *t.promptID, t.to)
	}

	s.notify(roomID)
}

func (s *PhaseService) notify(roomID uint) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("notify: room lookup failed")
		return
	}
	view, err := s.projector.Project(&room)
	if err != nil {
		log.Error().Err(err).Uint("room_id", roomID).Msg("notify: projection failed")
		return
	}
	s.notifier.NotifyRoom(roomID, "room_updated", view)
}

// StartGame performs the special-cased WaitingRoom→Answering transition:
// it creates the game, one ordered prompt slot per story blank, and opens
// the first answering phase.
func (s *PhaseService) StartGame(roomID, storyID uint) (*models.Game, error) {
	var created models.Game
	var firstPromptID uint
	var deadline time.Time

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, roomID).Error; err != nil {
			return errors.New("room not found")
		}
		if room.Status != models.RoomStatusWaiting {
			return errors.New("room is not in the waiting room")
		}

		var story models.Story
		if err := tx.Preload("Blanks", func(db *gorm.DB) *gorm.DB {
			return db.Order("marker ASC")
		}).Preload("Blanks.Prompts").First(&story, storyID).Error; err != nil {
			return errors.New("story not found")
		}
		if len(story.Blanks) == 0 {
			return errors.New("story has no blanks")
		}

		game := models.Game{RoomID: room.ID, StoryID: story.ID}
		if err := tx.Create(&game).Error; err != nil {
			return err
		}

		for i, blank := range story.Blanks {
			if len(blank.Prompts) == 0 {
				return errors.New("story blank has no prompts")
			}
			prompt := blank.Prompts[promptPicker(len(blank.Prompts))]
			gp := models.GamePrompt{
				GameID:     game.ID,
				OrderIndex: i,
				PromptID:   prompt.ID,
				BlankID:    blank.ID,
			}
			if err := tx.Create(&gp).Error; err != nil {
				return err
			}
			if i == 0 {
				firstPromptID = gp.ID
			}
		}

		deadline = time.Now().Add(time.Duration(room.AnswerSeconds)*time.Second + s.margin)
		if err := tx.Model(&models.Game{}).Where("id = ?", game.ID).
			Updates(map[string]interface{}{
				"current_prompt_id": firstPromptID,
				"phase_deadline":    deadline,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Room{}).Where("id = ?", room.ID).
			Updates(map[string]interface{}{
				"status":         models.RoomStatusAnswering,
				"active_game_id": game.ID,
			}).Error; err != nil {
			return err
		}

		created = game
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("room_id", roomID).Uint("game_id", created.ID).Msg("game started")
	s.clock.ScheduleAt(deadline, roomID, firstPromptID, models.RoomStatusAnswering)
	s.notify(roomID)

	if err := s.db.First(&created, created.ID).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

// NextRound is the creator's manual advance out of Results.
func (s *PhaseService) NextRound(roomID uint) error {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return errors.New("room not found")
	}
	if room.Status != models.RoomStatusResults || room.ActiveGameID == nil {
		return errors.New("no finished round to advance from")
	}
	var game models.Game
	if err := s.db.First(&game, *room.ActiveGameID).Error; err != nil {
		return err
	}
	if game.CurrentPromptID == nil {
		return errors.New("no active round")
	}
	return s.TryAdvance(roomID, *game.CurrentPromptID, ReasonManualAdvance)
}

// EndGame closes the loop: FinalResults→WaitingRoom, detaching the game.
func (s *PhaseService) EndGame(roomID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, roomID).Error; err != nil {
			return errors.New("room not found")
		}
		if room.Status != models.RoomStatusFinalResults {
			return errors.New("game is not finished")
		}
		return tx.Model(&models.Room{}).Where("id = ?", room.ID).
			Updates(map[string]interface{}{
				"status":         models.RoomStatusWaiting,
				"active_game_id": nil,
			}).Error
	})
	if err != nil {
		return err
	}

	log.Info().Uint("room_id", roomID).Msg("game ended")
	s.clock.Cancel(roomID)
	s.notify(roomID)
	return nil
}

// CloseRoom deletes the room outright, whatever phase it is in. Pending
// deadline triggers are dropped; one last room_closed push tells clients to
// leave.
func (s *PhaseService) CloseRoom(roomID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, roomID).Error; err != nil {
			return errors.New("room not found")
		}
		return tx.Delete(&models.Room{}, roomID).Error
	})
	if err != nil {
		return err
	}

	log.Info().Uint("room_id", roomID).Msg("room closed")
	s.clock.Cancel(roomID)
	s.notifier.NotifyRoom(roomID, "room_closed", nil)
	return nil
}

func (s *PhaseService) roomIDForPrompt(gamePromptID uint) (uint, error) {
	var gp models.GamePrompt
	if err := s.db.First(&gp, gamePromptID).Error; err != nil {
		return 0, err
	}
	var game models.Game
	if err := s.db.First(&game, gp.GameID).Error; err != nil {
		return 0, err
	}
	return game.RoomID, nil
}
