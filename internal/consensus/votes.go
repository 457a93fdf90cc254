package consensus

import (
	"context"

	"github.com/GhostDragonAlpha/Alexander-sub009/logging"
	logvalidation "github.com/GhostDragonAlpha/Alexander-sub009/logging/validation"
)

// ValidationVote is one validator's verdict on a player's reported sample.
type ValidationVote struct {
	ValidatorID    string
	TargetPlayerID string
	Sequence       uint64
	IsValid        bool
	PositionError  float64
}

// ConsensusResult tallies the votes for one (player, sequence) bucket. It is
// derived on demand and never persisted.
type ConsensusResult struct {
	PlayerID             string
	Sequence             uint64
	ValidVotes           int
	InvalidVotes         int
	AveragePositionError float64
	ConsensusReached     bool
}

type voteKey struct {
	playerID string
	sequence uint64
}

// SubmitValidationVote appends a vote to the bucket for the target sample.
// Votes without a validator or target are discarded.
func (v *Validator) SubmitValidationVote(vote ValidationVote) bool {
	if v == nil || vote.ValidatorID == "" || vote.TargetPlayerID == "" {
		return false
	}
	key := voteKey{playerID: vote.TargetPlayerID, sequence: vote.Sequence}
	v.mu.Lock()
	v.votes[key] = append(v.votes[key], vote)
	v.mu.Unlock()
	return true
}

// CalculateConsensus tallies the bucket for (playerID, sequence). Consensus
// is reached when the bucket holds at least the configured minimum number of
// votes and the valid fraction crosses the supermajority threshold in either
// direction; a split or undersized vote reaches nothing.
func (v *Validator) CalculateConsensus(playerID string, sequence uint64) ConsensusResult {
	result := ConsensusResult{PlayerID: playerID, Sequence: sequence}
	if v == nil {
		return result
	}

	v.mu.Lock()
	threshold := v.cfg.ConsensusThreshold
	minimumVotes := v.cfg.ConsensusMinimumVotes
	votes := v.votes[voteKey{playerID: playerID, sequence: sequence}]
	errorSum := 0.0
	for _, vote := range votes {
		if vote.IsValid {
			result.ValidVotes++
		} else {
			result.InvalidVotes++
		}
		errorSum += vote.PositionError
	}
	v.mu.Unlock()

	total := result.ValidVotes + result.InvalidVotes
	if total == 0 {
		return result
	}
	result.AveragePositionError = errorSum / float64(total)

	validFraction := float64(result.ValidVotes) / float64(total)
	result.ConsensusReached = total >= minimumVotes &&
		(validFraction >= threshold || validFraction <= 1-threshold)

	if result.ConsensusReached {
		logvalidation.ConsensusReached(context.Background(), v.publisher, v.currentTick(),
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			logvalidation.ConsensusPayload{
				Sequence:      sequence,
				ValidVotes:    result.ValidVotes,
				InvalidVotes:  result.InvalidVotes,
				AverageError:  result.AveragePositionError,
				ValidFraction: validFraction,
			})
	}
	return result
}

// PruneVotes drops vote buckets at or below the player's given sequence,
// keeping the table bounded once consensus has been acted on.
func (v *Validator) PruneVotes(playerID string, throughSequence uint64) {
	if v == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for key := range v.votes {
		if key.playerID == playerID && key.sequence <= throughSequence {
			delete(v.votes, key)
		}
	}
}
