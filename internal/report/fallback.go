package report

import (
	"fmt"
	"sort"
	"strings"

	"classquiz-service/internal/domain"
)

// FallbackReport synthesizes a deterministic report from aggregated results
// without contacting any external service: the weakest skill is flagged as a
// focus area below 70%, the strongest as a strength at 80% or above, plus an
// overall note below 60% or at 80% and above.
func FallbackReport(results domain.AggregatedResults) string {
	if len(results.SkillBreakdown) == 0 {
		return "No data available for analysis. Please wait for students to complete the quiz."
	}

	skills := make([]domain.SkillStat, len(results.SkillBreakdown))
	copy(skills, results.SkillBreakdown)
	sort.Slice(skills, func(i, j int) bool { return skills[i].SuccessRate < skills[j].SuccessRate })
	weakest := skills[0]
	strongest := skills[len(skills)-1]

	var sb strings.Builder
	sb.WriteString("Quiz Performance Report\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n", results.Topic)
	fmt.Fprintf(&sb, "Subtopic: %s\n", results.Subtopic)
	fmt.Fprintf(&sb, "Participants: %d students\n", results.ParticipantCount)
	fmt.Fprintf(&sb, "Overall Success Rate: %.1f%%\n\n", results.OverallSuccessRate)

	sb.WriteString("Performance by Skill Area:\n")
	for _, skill := range results.SkillBreakdown {
		fmt.Fprintf(&sb, "- %s: %.1f%%\n", skill.SkillTag, skill.SuccessRate)
	}

	sb.WriteString("\nRecommendations:\n")
	if weakest.SuccessRate < 70 {
		fmt.Fprintf(&sb, "Focus Area: The class struggles with '%s' (only %.1f%% success rate). "+
			"Consider dedicating more time to this topic in the next lesson.\n",
			weakest.SkillTag, weakest.SuccessRate)
	}
	if strongest.SuccessRate >= 80 {
		fmt.Fprintf(&sb, "Strength: Students perform well in '%s' (%.1f%% success rate).\n",
			strongest.SkillTag, strongest.SuccessRate)
	}
	if results.OverallSuccessRate < 60 {
		sb.WriteString("General Note: Overall performance suggests a review session might be beneficial before moving to new material.\n")
	} else if results.OverallSuccessRate >= 80 {
		sb.WriteString("General Note: Excellent overall performance! The class is ready to advance to more complex topics.\n")
	}

	return sb.String()
}
