package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProjectorService builds the phase-specific view bundle that renderers and
// the push channel consume. It only reads persisted state.
type ProjectorService struct {
	db     *gorm.DB
	quorum *QuorumService
}

func NewProjectorService(db *gorm.DB, quorum *QuorumService) *ProjectorService {
	return &ProjectorService{db: db, quorum: quorum}
}

type RoomView struct {
	RoomID       uint               `json:"room_id"`
	Code         string             `json:"code"`
	Status       models.RoomStatus  `json:"status"`
	VotingStyle  models.VotingStyle `json:"voting_style"`
	MaxRanks     int                `json:"max_ranks,omitempty"`
	Deadline     *time.Time         `json:"deadline,omitempty"`
	Participants []ParticipantView  `json:"participants"`
	Round        *RoundView         `json:"round,omitempty"`
	Story        *StoryView         `json:"story,omitempty"`
}

type ParticipantView struct {
	ID       uint                     `json:"id"`
	Nickname string                   `json:"nickname"`
	Role     models.ParticipantRole   `json:"role"`
	Status   models.ParticipantStatus `json:"status,omitempty"`
}

type RoundView struct {
	GamePromptID uint         `json:"game_prompt_id"`
	OrderIndex   int          `json:"order_index"`
	PromptText   string       `json:"prompt_text"`
	AnswerCount  int          `json:"answer_count"`
	Answers      []AnswerView `json:"answers,omitempty"`
	Winner       *AnswerView  `json:"winner,omitempty"`
	TieSet       []AnswerView `json:"tie_set,omitempty"`
}

type AnswerView struct {
	ID            uint   `json:"id"`
	ParticipantID uint   `json:"participant_id"`
	Text          string `json:"text"`
	Score         int    `json:"score,omitempty"`
	AudienceStars int    `json:"audience_stars,omitempty"`
	Won           bool   `json:"won,omitempty"`
}

type StoryView struct {
	Title         string   `json:"title"`
	AssembledText string   `json:"assembled_text"`
	Sentences     []string `json:"sentences"`
}

// Project builds the view for the room's current phase.
func (s *ProjectorService) Project(room *models.Room) (*RoomView, error) {
	view := &RoomView{
		RoomID:      room.ID,
		Code:        room.Code,
		Status:      room.Status,
		VotingStyle: room.VotingStyle,
	}
	if room.VotingStyle == models.VotingStyleRanked {
		view.MaxRanks = room.MaxRanks
	}

	var game *models.Game
	if room.ActiveGameID != nil {
		game = &models.Game{}
		if err := s.db.First(game, *room.ActiveGameID).Error; err != nil {
			return nil, err
		}
		view.Deadline = game.PhaseDeadline
	}

	var participants []models.Participant
	if err := s.db.Where("room_id = ? AND is_system = ?", room.ID, false).
		Order("joined_at ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	for _, p := range participants {
		pv := ParticipantView{ID: p.ID, Nickname: p.Nickname, Role: p.Role}
		if room.Status.Timed() && p.Role == models.RolePlayer && game != nil && game.CurrentPromptID != nil {
			status, err := s.quorum.ParticipantPhaseStatus(room, *game.CurrentPromptID, p.ID)
			if err != nil {
				return nil, err
			}
			pv.Status = status
		}
		view.Participants = append(view.Participants, pv)
	}

	switch room.Status {
	case models.RoomStatusAnswering, models.RoomStatusVoting, models.RoomStatusResults:
		if game == nil || game.CurrentPromptID == nil {
			return view, nil
		}
		round, err := s.buildRound(room, *game.CurrentPromptID)
		if err != nil {
			return nil, err
		}
		view.Round = round

	case models.RoomStatusFinalResults:
		if game == nil {
			return view, nil
		}
		story, err := s.buildFinalStory(game)
		if err != nil {
			return nil, err
		}
		view.Story = story
	}

	return view, nil
}

func (s *ProjectorService) buildRound(room *models.Room, gamePromptID uint) (*RoundView, error) {
	var gp models.GamePrompt
	if err := s.db.Preload("Prompt").First(&gp, gamePromptID).Error; err != nil {
		return nil, err
	}

	var answers []models.Answer
	if err := s.db.Where("game_prompt_id = ?", gamePromptID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	round := &RoundView{
		GamePromptID: gp.ID,
		OrderIndex:   gp.OrderIndex,
		PromptText:   gp.Prompt.Text,
		AnswerCount:  len(answers),
	}

	// answer texts stay hidden while players are still writing
	if room.Status == models.RoomStatusAnswering {
		return round, nil
	}

	var votes []models.Vote
	if err := s.db.Where("game_prompt_id = ?", gamePromptID).Find(&votes).Error; err != nil {
		return nil, err
	}

	scores := TallyPlayerVotes(votes, room.VotingStyle, room.MaxRanks)
	stars := TallyAudienceStars(votes)
	showTally := room.Status == models.RoomStatusResults

	for _, a := range answers {
		av := AnswerView{ID: a.ID, ParticipantID: a.ParticipantID, Text: a.DisplayText()}
		if showTally {
			av.Score = scores[a.ID]
			av.AudienceStars = stars[a.ID]
			av.Won = a.Won
		}
		round.Answers = append(round.Answers, av)

		if showTally && a.Won {
			winner := av
			round.Winner = &winner
		}
	}

	if showTally {
		for _, id := range TopAnswers(scores) {
			for _, av := range round.Answers {
				if av.ID == id {
					round.TieSet = append(round.TieSet, av)
				}
			}
		}
	}

	return round, nil
}

func (s *ProjectorService) buildFinalStory(game *models.Game) (*StoryView, error) {
	var story models.Story
	if err := s.db.First(&story, game.StoryID).Error; err != nil {
		return nil, err
	}

	var prompts []models.GamePrompt
	if err := s.db.Where("game_id = ?", game.ID).
		Preload("Blank").
		Order("order_index ASC").
		Find(&prompts).Error; err != nil {
		return nil, err
	}

	winners := make(map[int]string)
	var winnerTexts []string
	for _, gp := range prompts {
		var won models.Answer
		err := s.db.Where("game_prompt_id = ? AND won = ?", gp.ID, true).First(&won).Error
		if err != nil {
			// diagnostic only; assembly continues best-effort
			log.Error().Err(err).
				Uint("game_prompt_id", gp.ID).
				Int("blank_marker", gp.Blank.Marker).
				Msg("story assembly: round has no winning answer")
			continue
		}
		winners[gp.Blank.Marker] = won.DisplayText()
		winnerTexts = append(winnerTexts, won.DisplayText())
	}

	assembled := AssembleStory(story.Text, winners)
	for _, anomaly := range CheckAssembly(assembled, winnerTexts) {
		log.Error().
			Uint("game_id", game.ID).
			Uint("story_id", story.ID).
			Str("anomaly", anomaly).
			Msg("story assembly integrity anomaly")
	}

	return &StoryView{
		Title:         story.Title,
		AssembledText: assembled,
		Sentences:     SplitSentences(assembled),
	}, nil
}

var blankMarkerRe = regexp.MustCompile(`\{\d+\}`)

// AssembleStory substitutes each {n} marker with its winning answer's text.
func AssembleStory(text string, winnersByMarker map[int]string) string {
	for marker, winner := range winnersByMarker {
		text = strings.ReplaceAll(text, fmt.Sprintf("{%d}", marker), winner)
	}
	return text
}

// CheckAssembly returns descriptions of integrity anomalies in an assembled
// story: leftover blank markers and winner texts that never made it into the
// output. Both indicate a blank/answer mismatch upstream; neither is fatal.
func CheckAssembly(assembled string, winnerTexts []string) []string {
	var anomalies []string
	for _, marker := range blankMarkerRe.FindAllString(assembled, -1) {
		anomalies = append(anomalies, fmt.Sprintf("unsubstituted blank marker %s", marker))
	}
	for _, text := range winnerTexts {
		if !strings.Contains(assembled, text) {
			anomalies = append(anomalies, fmt.Sprintf("winning answer %q missing from assembled text", text))
		}
	}
	return anomalies
}

// SplitSentences breaks assembled text into sentences for rendering.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
