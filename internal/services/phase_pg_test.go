package services_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/database"
	"github.com/zachjustice/richard-bday-sub001/internal/models"
	"github.com/zachjustice/richard-bday-sub001/internal/services"
	"github.com/zachjustice/richard-bday-sub001/internal/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	testDB, err = gorm.Open(gormpg.Open(connString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	database.AutoMigrate(testDB)

	code := m.Run()

	container.Terminate(ctx)
	os.Exit(code)
}

// recordingNotifier counts pushes per event type.
type recordingNotifier struct {
	mu     sync.Mutex
	events map[string]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string]int)}
}

func (n *recordingNotifier) NotifyRoom(roomID uint, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[event]++
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[event]
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = make(map[string]int)
}

// manualScheduler swallows deadline scheduling so tests drive every trigger
// by hand.
type manualScheduler struct{}

func (manualScheduler) ScheduleAt(at time.Time, roomID, gamePromptID uint, phase models.RoomStatus) {
}
func (manualScheduler) Cancel(roomID uint) {}

type testStack struct {
	phase      *services.PhaseService
	submission *services.SubmissionService
	winner     *services.WinnerService
	rooms      *services.RoomService
	projector  *services.ProjectorService
	notifier   *recordingNotifier
}

func newTestStack() *testStack {
	notifier := newRecordingNotifier()
	quorum := services.NewQuorumService(testDB)
	winner := services.NewWinnerService(testDB, tasks.NoopQueue{}, "something unspeakable")
	projector := services.NewProjectorService(testDB, quorum)
	phase := services.NewPhaseService(testDB, quorum, winner, projector, manualScheduler{}, notifier, 0)
	return &testStack{
		phase:      phase,
		submission: services.NewSubmissionService(testDB, phase),
		winner:     winner,
		rooms:      services.NewRoomService(testDB),
		projector:  projector,
		notifier:   notifier,
	}
}

var fixtureSeq int

func nextFixtureName(prefix string) string {
	fixtureSeq++
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), fixtureSeq)
}

func seedCreator(t *testing.T) *models.Creator {
	t.Helper()
	creator := models.Creator{Username: nextFixtureName("creator"), PasswordHash: "x"}
	require.NoError(t, testDB.Create(&creator).Error)
	return &creator
}

func seedStory(t *testing.T, blanks int) *models.Story {
	t.Helper()
	text := ""
	for i := 1; i <= blanks; i++ {
		text += fmt.Sprintf("Sentence %d has a {%d}. ", i, i)
	}
	story := models.Story{Title: nextFixtureName("story"), Text: text}
	require.NoError(t, testDB.Create(&story).Error)
	for i := 1; i <= blanks; i++ {
		blank := models.Blank{StoryID: story.ID, Marker: i}
		require.NoError(t, testDB.Create(&blank).Error)
		prompt := models.Prompt{BlankID: blank.ID, Text: fmt.Sprintf("Name a thing #%d", i)}
		require.NoError(t, testDB.Create(&prompt).Error)
	}
	return &story
}

type fixture struct {
	stack   *testStack
	room    *models.Room
	story   *models.Story
	players []models.Participant
}

func newFixture(t *testing.T, settings services.RoomSettings, players, blanks int) *fixture {
	t.Helper()
	stack := newTestStack()
	creator := seedCreator(t)
	room, err := stack.rooms.CreateRoom(creator.ID, settings)
	require.NoError(t, err)

	f := &fixture{stack: stack, room: room, story: seedStory(t, blanks)}
	for i := 0; i < players; i++ {
		result, err := stack.rooms.JoinRoom(room.Code, fmt.Sprintf("player%d", i), "", models.RolePlayer)
		require.NoError(t, err)
		f.players = append(f.players, result.Participant)
	}
	return f
}

func (f *fixture) reload(t *testing.T) *models.Room {
	t.Helper()
	var room models.Room
	require.NoError(t, testDB.First(&room, f.room.ID).Error)
	return &room
}

func (f *fixture) currentPromptID(t *testing.T) uint {
	t.Helper()
	room := f.reload(t)
	require.NotNil(t, room.ActiveGameID)
	var game models.Game
	require.NoError(t, testDB.First(&game, *room.ActiveGameID).Error)
	require.NotNil(t, game.CurrentPromptID)
	return *game.CurrentPromptID
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	_, err := f.stack.phase.StartGame(f.room.ID, f.story.ID)
	require.NoError(t, err)
	f.stack.notifier.reset()
}

func (f *fixture) answerAll(t *testing.T) {
	t.Helper()
	for i, p := range f.players {
		_, err := f.stack.submission.SubmitAnswer(f.room.Code, p.WebToken, fmt.Sprintf("answer %d from %s", i, p.Nickname))
		require.NoError(t, err)
	}
}

// voteAll has every player vote for the next player's answer.
func (f *fixture) voteAll(t *testing.T) {
	t.Helper()
	gpID := f.currentPromptID(t)
	var answers []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ?", gpID).Find(&answers).Error)
	byParticipant := make(map[uint]uint)
	for _, a := range answers {
		byParticipant[a.ParticipantID] = a.ID
	}

	for i, p := range f.players {
		target := f.players[(i+1)%len(f.players)]
		_, err := f.stack.submission.CastVote(f.room.Code, p.WebToken, services.VoteInput{
			AnswerID: byParticipant[target.ID],
		})
		require.NoError(t, err)
	}
}

func TestStartGameOpensFirstAnsweringPhase(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 2)

	game, err := f.stack.phase.StartGame(f.room.ID, f.story.ID)
	require.NoError(t, err)

	room := f.reload(t)
	assert.Equal(t, models.RoomStatusAnswering, room.Status)
	require.NotNil(t, room.ActiveGameID)
	assert.Equal(t, game.ID, *room.ActiveGameID)
	require.NotNil(t, game.CurrentPromptID)
	require.NotNil(t, game.PhaseDeadline)
	assert.True(t, game.PhaseDeadline.After(time.Now()))

	var prompts []models.GamePrompt
	require.NoError(t, testDB.Where("game_id = ?", game.ID).Order("order_index ASC").Find(&prompts).Error)
	require.Len(t, prompts, 2)
	assert.Equal(t, prompts[0].ID, *game.CurrentPromptID)

	assert.Equal(t, 1, f.stack.notifier.count("room_updated"))

	_, err = f.stack.phase.StartGame(f.room.ID, f.story.ID)
	assert.Error(t, err, "a started room cannot start again")
}

func TestAnswerQuorumAdvancesToVoting(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 1)
	f.start(t)

	for _, p := range f.players[:2] {
		_, err := f.stack.submission.SubmitAnswer(f.room.Code, p.WebToken, "partial")
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusAnswering, f.reload(t).Status, "quorum needs every player")
	}

	_, err := f.stack.submission.SubmitAnswer(f.room.Code, f.players[2].WebToken, "last one")
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusVoting, f.reload(t).Status)
	assert.Equal(t, 1, f.stack.notifier.count("room_updated"))
}

func TestVoteQuorumAdvancesToResultsWithWinner(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 1)
	f.start(t)
	f.answerAll(t)
	f.stack.notifier.reset()

	f.voteAll(t)

	room := f.reload(t)
	assert.Equal(t, models.RoomStatusResults, room.Status)
	assert.Equal(t, 1, f.stack.notifier.count("room_updated"))

	var won []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ? AND won = ?", f.currentPromptID(t), true).Find(&won).Error)
	require.Len(t, won, 1)
}

func TestConcurrentAdvanceAppliesExactlyOnce(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 1)
	f.start(t)
	gpID := f.currentPromptID(t)

	// quorum and deadline racing the same edge
	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		reason := services.ReasonDeadlineExpired
		if i%2 == 0 {
			reason = services.ReasonQuorumReached
		}
		wg.Add(1)
		go func(reason services.AdvanceReason) {
			defer wg.Done()
			errs <- f.stack.phase.TryAdvance(f.room.ID, gpID, reason)
		}(reason)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "losing callers exit silently, never with an error")
	}
	assert.Equal(t, models.RoomStatusVoting, f.reload(t).Status)
	assert.Equal(t, 1, f.stack.notifier.count("room_updated"), "exactly one transition, one push")
}

func TestStaleTriggerIsSilentNoOp(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 2, 2)
	f.start(t)
	firstPrompt := f.currentPromptID(t)

	// play round one to completion and advance into round two
	f.answerAll(t)
	f.voteAll(t)
	require.NoError(t, f.stack.phase.NextRound(f.room.ID))
	require.Equal(t, models.RoomStatusAnswering, f.reload(t).Status)
	f.stack.notifier.reset()

	// a timer armed for round one fires late
	require.NoError(t, f.stack.phase.TryAdvance(f.room.ID, firstPrompt, services.ReasonDeadlineExpired))

	assert.Equal(t, models.RoomStatusAnswering, f.reload(t).Status)
	assert.NotEqual(t, firstPrompt, f.currentPromptID(t))
	assert.Zero(t, f.stack.notifier.count("room_updated"), "stale triggers must not re-notify")
}

func TestResultsAdvanceIsManualOnly(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 2, 2)
	f.start(t)
	f.answerAll(t)
	f.voteAll(t)
	require.Equal(t, models.RoomStatusResults, f.reload(t).Status)
	f.stack.notifier.reset()
	gpID := f.currentPromptID(t)

	require.NoError(t, f.stack.phase.TryAdvance(f.room.ID, gpID, services.ReasonDeadlineExpired))
	assert.Equal(t, models.RoomStatusResults, f.reload(t).Status, "results waits for the creator")
	assert.Zero(t, f.stack.notifier.count("room_updated"))

	require.NoError(t, f.stack.phase.TryAdvance(f.room.ID, gpID, services.ReasonManualAdvance))
	assert.Equal(t, models.RoomStatusAnswering, f.reload(t).Status)
}

func TestConcurrentWinnerSelectionPicksExactlyOne(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 1)
	f.start(t)
	f.answerAll(t)
	gpID := f.currentPromptID(t)

	// tie across all answers so tie-break actually runs
	var answers []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ?", gpID).Find(&answers).Error)
	for i, p := range f.players {
		target := answers[(i+1)%len(answers)]
		vote := models.Vote{
			GamePromptID:  gpID,
			ParticipantID: p.ID,
			AnswerID:      target.ID,
			Kind:          models.VoteKindPlayer,
		}
		require.NoError(t, testDB.Create(&vote).Error)
	}

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.stack.winner.SelectWinner(gpID))
		}()
	}
	wg.Wait()

	var won []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ? AND won = ?", gpID, true).Find(&won).Error)
	require.Len(t, won, 1, "repeat selection must be a no-op")
}

func TestDefaultWinnerWhenNoVotesCast(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 2, 1)
	f.start(t)
	f.answerAll(t)
	gpID := f.currentPromptID(t)

	// voting deadline expires with zero votes
	require.NoError(t, f.stack.phase.TryAdvance(f.room.ID, gpID, services.ReasonDeadlineExpired))

	require.Equal(t, models.RoomStatusResults, f.reload(t).Status)
	var won models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ? AND won = ?", gpID, true).First(&won).Error)
	assert.Equal(t, "something unspeakable", won.Text)

	var owner models.Participant
	require.NoError(t, testDB.First(&owner, won.ParticipantID).Error)
	assert.True(t, owner.IsSystem, "default winner belongs to the narrator, not a player")
}

func TestRankedChoiceQuorumRequiresDistinctRanks(t *testing.T) {
	f := newFixture(t, services.RoomSettings{VotingStyle: models.VotingStyleRanked, MaxRanks: 3}, 3, 1)
	f.start(t)
	f.answerAll(t)
	gpID := f.currentPromptID(t)

	var answers []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ?", gpID).Order("id ASC").Find(&answers).Error)
	othersFor := func(p models.Participant) []models.Answer {
		var others []models.Answer
		for _, a := range answers {
			if a.ParticipantID != p.ID {
				others = append(others, a)
			}
		}
		return others
	}

	// 3 answers with maxRanks 3 means each player must place 2 distinct ranks
	rank := func(p models.Participant, answerID uint, r int) error {
		_, err := f.stack.submission.CastVote(f.room.Code, p.WebToken, services.VoteInput{AnswerID: answerID, Rank: &r})
		return err
	}

	for _, p := range f.players[:2] {
		others := othersFor(p)
		require.NoError(t, rank(p, others[0].ID, 1))
		require.NoError(t, rank(p, others[1].ID, 2))
	}
	last := f.players[2]
	others := othersFor(last)
	require.NoError(t, rank(last, others[0].ID, 1))
	assert.Equal(t, models.RoomStatusVoting, f.reload(t).Status, "one rank short of quorum")

	assert.Error(t, rank(last, others[1].ID, 1), "ranks must be distinct")
	assert.Error(t, rank(last, others[0].ID, 2), "answers cannot be ranked twice")

	require.NoError(t, rank(last, others[1].ID, 2))
	assert.Equal(t, models.RoomStatusResults, f.reload(t).Status)
}

func TestAudienceVotesNeverCountTowardQuorum(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 2, 1)
	audience, err := f.stack.rooms.JoinRoom(f.room.Code, "spectator", "", models.RoleAudience)
	require.NoError(t, err)
	f.start(t)
	f.answerAll(t)
	gpID := f.currentPromptID(t)

	var answers []models.Answer
	require.NoError(t, testDB.Where("game_prompt_id = ?", gpID).Find(&answers).Error)

	_, err = f.stack.submission.CastVote(f.room.Code, audience.Participant.WebToken, services.VoteInput{
		AnswerID: answers[0].ID,
		Stars:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusVoting, f.reload(t).Status)

	f.voteAll(t)
	assert.Equal(t, models.RoomStatusResults, f.reload(t).Status)

	// star totals surface in the results view but never decide the winner
	view, err := f.stack.projector.Project(f.reload(t))
	require.NoError(t, err)
	require.NotNil(t, view.Round)
	var starred *services.AnswerView
	for i := range view.Round.Answers {
		if view.Round.Answers[i].ID == answers[0].ID {
			starred = &view.Round.Answers[i]
		}
	}
	require.NotNil(t, starred)
	assert.Equal(t, 5, starred.AudienceStars)
}

func TestFullGameFlowAssemblesStory(t *testing.T) {
	f := newFixture(t, services.RoomSettings{}, 3, 2)
	f.start(t)

	for round := 0; round < 2; round++ {
		require.Equal(t, models.RoomStatusAnswering, f.reload(t).Status)
		f.answerAll(t)
		require.Equal(t, models.RoomStatusVoting, f.reload(t).Status)
		f.voteAll(t)
		require.Equal(t, models.RoomStatusResults, f.reload(t).Status)
		require.NoError(t, f.stack.phase.NextRound(f.room.ID))
	}

	room := f.reload(t)
	require.Equal(t, models.RoomStatusFinalResults, room.Status)

	view, err := f.stack.projector.Project(room)
	require.NoError(t, err)
	require.NotNil(t, view.Story)
	assert.NotContains(t, view.Story.AssembledText, "{1}")
	assert.NotContains(t, view.Story.AssembledText, "{2}")
	assert.Len(t, view.Story.Sentences, 2)

	require.NoError(t, f.stack.phase.EndGame(f.room.ID))
	room = f.reload(t)
	assert.Equal(t, models.RoomStatusWaiting, room.Status)
	assert.Nil(t, room.ActiveGameID)

	assert.Error(t, f.stack.phase.EndGame(f.room.ID), "ending twice is rejected")
}
