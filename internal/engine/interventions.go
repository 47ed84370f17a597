package engine

import (
	"strings"

	"github.com/stridehq/driftwatch/pkg/types"
)

// messageTemplates holds the base message per intervention type and
// risk level.
var messageTemplates = map[types.InterventionType]map[types.RiskLevel]string{
	types.InterventionNotification: {
		types.RiskLow:      "Hey there! Just checking in - how's your momentum today?",
		types.RiskMedium:   "I noticed you haven't checked in lately. How are you feeling?",
		types.RiskHigh:     "Your streak is important! Let's get back on track together.",
		types.RiskCritical: "I'm here for you. Let's reconnect and rebuild your momentum.",
	},
	types.InterventionCoachMessage: {
		types.RiskLow:      "Your consistency has been great! Keep up the momentum.",
		types.RiskMedium:   "I've noticed some changes in your pattern. What's on your mind?",
		types.RiskHigh:     "Let's talk about what's been challenging lately. I'm here to help.",
		types.RiskCritical: "I'm concerned about your recent activity. Can we schedule a check-in?",
	},
	types.InterventionGoalAdjustment: {
		types.RiskMedium:   "Maybe it's time to adjust your goals to better fit your current situation?",
		types.RiskHigh:     "Let's revisit your goals and make them more achievable.",
		types.RiskCritical: "I think we should reset your goals to help you regain momentum.",
	},
	types.InterventionSupportOutreach: {
		types.RiskHigh:     "Sometimes we all need support. Have you considered talking to someone?",
		types.RiskCritical: "It might be helpful to reach out to friends, family, or a professional for support.",
	},
	types.InterventionHabitReminder: {
		types.RiskLow:    "Gentle reminder: Your daily check-in is waiting!",
		types.RiskMedium: "It's been a while since your last activity. Ready to jump back in?",
		types.RiskHigh:   "Let's rebuild that habit together. Start with just one small action today.",
	},
}

// UserContext carries the personalization signals available for a user.
type UserContext struct {
	GoalTitle string
	Mood      float64
	HasMood   bool
}

// BuildUserContext derives personalization signals from the snapshot:
// the most recent active goal title and the most recent recorded mood.
func BuildUserContext(data *UserData) UserContext {
	var uc UserContext
	for i := len(data.Goals) - 1; i >= 0; i-- {
		g := data.Goals[i]
		if !g.Completed && g.Title != "" {
			uc.GoalTitle = g.Title
			break
		}
	}
	for i := len(data.CheckIns) - 1; i >= 0; i-- {
		if data.CheckIns[i].Mood > 0 {
			uc.Mood = data.CheckIns[i].Mood
			uc.HasMood = true
			break
		}
	}
	return uc
}

// planEntry is one step of the intervention plan for a risk level.
type planEntry struct {
	kind    types.InterventionType
	timing  string
	context string
}

// GenerateInterventions builds the intervention plan for a risk level.
// The plan is fixed per level, except that high risk adds a support
// outreach when the mood indicator is severe. Messages are personalized
// from the user context and urgency always matches the level.
func GenerateInterventions(level types.RiskLevel, indicators []types.DriftIndicator, uc UserContext) []types.Intervention {
	var plan []planEntry
	switch level {
	case types.RiskLow:
		plan = []planEntry{
			{types.InterventionNotification, types.TimingNextSession, "encouragement"},
		}
	case types.RiskMedium:
		plan = []planEntry{
			{types.InterventionHabitReminder, types.TimingWithin24h, "habit_building"},
			{types.InterventionCoachMessage, types.TimingWithin48h, "check_in"},
		}
	case types.RiskHigh:
		plan = []planEntry{
			{types.InterventionCoachMessage, types.TimingWithin12h, "support"},
			{types.InterventionGoalAdjustment, types.TimingWithin24h, "goal_revision"},
		}
		if severeMoodDecline(indicators) {
			plan = append(plan, planEntry{types.InterventionSupportOutreach, types.TimingWithin24h, "mood_support"})
		}
	case types.RiskCritical:
		plan = []planEntry{
			{types.InterventionNotification, types.TimingImmediate, "crisis_support"},
			{types.InterventionCoachMessage, types.TimingImmediate, "urgent_support"},
			{types.InterventionGoalAdjustment, types.TimingWithin6h, "goal_reset"},
			{types.InterventionSupportOutreach, types.TimingWithin12h, "professional_support"},
		}
	default:
		return nil
	}

	out := make([]types.Intervention, 0, len(plan))
	for _, p := range plan {
		out = append(out, types.Intervention{
			Type:    p.kind,
			Message: personalize(messageTemplates[p.kind][level], uc),
			Urgency: string(level),
			Timing:  p.timing,
			Metadata: map[string]interface{}{
				"context": p.context,
			},
		})
	}
	return out
}

func severeMoodDecline(indicators []types.DriftIndicator) bool {
	for _, ind := range indicators {
		if ind.Name == types.IndicatorMoodDecline && ind.Severity > 0.6 {
			return true
		}
	}
	return false
}

// personalize rewrites a template with user-specific details. A known
// goal title replaces the generic "your goals" phrase, and a recent
// mood at either extreme appends a supportive line.
func personalize(msg string, uc UserContext) string {
	if uc.GoalTitle != "" {
		msg = strings.Replace(msg, "your goals", "your goal: "+uc.GoalTitle, 1)
	}
	if uc.HasMood {
		switch {
		case uc.Mood <= 2:
			msg += " Remember, it's okay to have tough days."
		case uc.Mood >= 4:
			msg += " Your positive energy is inspiring!"
		}
	}
	return msg
}

// RealtimeInterventions maps realtime trigger indicators to immediate
// actions. Each trigger produces exactly one intervention.
func RealtimeInterventions(indicators []types.DriftIndicator) []types.Intervention {
	var out []types.Intervention
	for _, ind := range indicators {
		switch ind.Name {
		case types.IndicatorNoActivity24h:
			out = append(out, types.Intervention{
				Type:    types.InterventionNotification,
				Message: "We miss you! How's your day going?",
				Urgency: types.UrgencyMedium,
				Timing:  types.TimingImmediate,
				Metadata: map[string]interface{}{
					"trigger":   ind.Name,
					"immediate": true,
				},
			})
		case types.IndicatorMissedCheckin:
			out = append(out, types.Intervention{
				Type:    types.InterventionHabitReminder,
				Message: "Your daily check-in is ready! How are you feeling today?",
				Urgency: types.UrgencyLow,
				Timing:  types.TimingImmediate,
				Metadata: map[string]interface{}{
					"trigger":   ind.Name,
					"immediate": true,
				},
			})
		}
	}
	return out
}
