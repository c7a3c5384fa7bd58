package services

import (
	"testing"

	"github.com/zachjustice/richard-bday-sub001/internal/models"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestTallyPlayerVotesSingleChoice(t *testing.T) {
	votes := []models.Vote{
		{AnswerID: 1, Kind: models.VoteKindPlayer},
		{AnswerID: 1, Kind: models.VoteKindPlayer},
		{AnswerID: 2, Kind: models.VoteKindPlayer},
	}

	scores := TallyPlayerVotes(votes, models.VotingStyleSingle, 0)

	assert.Equal(t, 2, scores[1])
	assert.Equal(t, 1, scores[2])
}

func TestTallyPlayerVotesRanked(t *testing.T) {
	// rank 1 is worth maxRanks points, rank maxRanks is worth 1
	votes := []models.Vote{
		{AnswerID: 1, Kind: models.VoteKindPlayer, Rank: intPtr(1)},
		{AnswerID: 2, Kind: models.VoteKindPlayer, Rank: intPtr(2)},
	}

	scores := TallyPlayerVotes(votes, models.VotingStyleRanked, 3)

	assert.Equal(t, 3, scores[1])
	assert.Equal(t, 2, scores[2])
}

func TestTallyPlayerVotesSkipsAudienceAndInvalidRanks(t *testing.T) {
	votes := []models.Vote{
		{AnswerID: 1, Kind: models.VoteKindAudience, Stars: 5},
		{AnswerID: 2, Kind: models.VoteKindPlayer, Rank: nil},
		{AnswerID: 3, Kind: models.VoteKindPlayer, Rank: intPtr(4)},
		{AnswerID: 4, Kind: models.VoteKindPlayer, Rank: intPtr(0)},
	}

	scores := TallyPlayerVotes(votes, models.VotingStyleRanked, 3)

	assert.Empty(t, scores)
}

func TestTallyAudienceStars(t *testing.T) {
	votes := []models.Vote{
		{AnswerID: 1, Kind: models.VoteKindAudience, Stars: 5},
		{AnswerID: 1, Kind: models.VoteKindAudience, Stars: 3},
		{AnswerID: 2, Kind: models.VoteKindPlayer},
	}

	stars := TallyAudienceStars(votes)

	assert.Equal(t, 8, stars[1])
	assert.NotContains(t, stars, uint(2))
}

func TestTopAnswers(t *testing.T) {
	top := TopAnswers(Scores{1: 2, 2: 5, 3: 5})
	assert.ElementsMatch(t, []uint{2, 3}, top)

	assert.Nil(t, TopAnswers(Scores{}))
	assert.Nil(t, TopAnswers(Scores{1: 0, 2: 0}))
}
