package app

import (
	"context"
	"math"

	"classquiz-service/internal/domain"
)

// Aggregator computes point-in-time success statistics for a session. It is a
// pure read: statistics are recomputed on each request, never maintained
// incrementally, and the output never carries question text.
type Aggregator struct {
	sessions SessionStore
	results  ResultStore
}

func NewAggregator(sessions SessionStore, results ResultStore) *Aggregator {
	return &Aggregator{sessions: sessions, results: results}
}

// Aggregate returns participant count, overall success rate and the per-skill
// breakdown. With zero answer records the overall rate is 0 and the breakdown
// is empty.
func (a *Aggregator) Aggregate(ctx context.Context, sessionID int64) (domain.AggregatedResults, error) {
	session, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.AggregatedResults{}, err
	}
	if session == nil {
		return domain.AggregatedResults{}, domain.ErrSessionNotFound
	}

	participants, err := a.results.CountDistinctParticipants(ctx, sessionID)
	if err != nil {
		return domain.AggregatedResults{}, err
	}
	breakdown, err := a.results.SkillStatistics(ctx, sessionID)
	if err != nil {
		return domain.AggregatedResults{}, err
	}

	// Every answer row joins to exactly one skill, so the overall totals are
	// the sums of the per-skill groups.
	total, correct := 0, 0
	for _, stat := range breakdown {
		total += stat.TotalAnswers
		correct += stat.CorrectAnswers
	}
	overall := 0.0
	if total > 0 {
		overall = Round1(float64(correct) / float64(total) * 100)
	}
	if breakdown == nil {
		breakdown = []domain.SkillStat{}
	}

	return domain.AggregatedResults{
		SessionID:          session.ID,
		Topic:              session.Topic,
		Subtopic:           session.Subtopic,
		ParticipantCount:   participants,
		OverallSuccessRate: overall,
		SkillBreakdown:     breakdown,
	}, nil
}

// Round1 rounds to one decimal place, matching the stored success-rate scale.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
