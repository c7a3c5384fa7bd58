package services

import "github.com/zachjustice/richard-bday-sub001/internal/models"

// Scores maps answer ID to accumulated points.
type Scores map[uint]int

// TallyPlayerVotes converts player-kind votes into per-answer scores under
// the room's voting style. Audience votes are skipped entirely. Ties are
// possible and left for winner selection to resolve.
func TallyPlayerVotes(votes []models.Vote, style models.VotingStyle, maxRanks int) Scores {
	scores := make(Scores)
	for _, v := range votes {
		if v.Kind != models.VoteKindPlayer {
			continue
		}
		switch style {
		case models.VotingStyleRanked:
			if v.Rank == nil || *v.Rank < 1 || *v.Rank > maxRanks {
				continue
			}
			// rank 1 scores highest
			scores[v.AnswerID] += maxRanks - *v.Rank + 1
		default:
			// single choice; audience-style rooms use single-choice player votes
			scores[v.AnswerID]++
		}
	}
	return scores
}

// TallyAudienceStars sums audience star votes per answer. Stars are tracked
// separately from the player tally and never decide the round.
func TallyAudienceStars(votes []models.Vote) Scores {
	scores := make(Scores)
	for _, v := range votes {
		if v.Kind != models.VoteKindAudience {
			continue
		}
		scores[v.AnswerID] += v.Stars
	}
	return scores
}

// TopAnswers returns every answer ID holding the maximum score. Empty input
// yields an empty slice.
func TopAnswers(scores Scores) []uint {
	max := 0
	for _, score := range scores {
		if score > max {
			max = score
		}
	}
	if max == 0 {
		return nil
	}

	var top []uint
	for answerID, score := range scores {
		if score == max {
			top = append(top, answerID)
		}
	}
	return top
}
