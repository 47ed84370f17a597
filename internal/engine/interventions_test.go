package engine

import (
	"strings"
	"testing"

	"github.com/stridehq/driftwatch/pkg/types"
)

func TestGenerateInterventionsLowPlan(t *testing.T) {
	out := GenerateInterventions(types.RiskLow, nil, UserContext{})
	if len(out) != 1 {
		t.Fatalf("interventions = %d, want 1", len(out))
	}
	iv := out[0]
	if iv.Type != types.InterventionNotification {
		t.Errorf("type = %s, want notification", iv.Type)
	}
	if iv.Urgency != types.UrgencyLow {
		t.Errorf("urgency = %s, want low", iv.Urgency)
	}
	if iv.Timing != types.TimingNextSession {
		t.Errorf("timing = %s, want next_session", iv.Timing)
	}
}

func TestGenerateInterventionsMediumPlan(t *testing.T) {
	out := GenerateInterventions(types.RiskMedium, nil, UserContext{})
	if len(out) != 2 {
		t.Fatalf("interventions = %d, want 2", len(out))
	}
	if out[0].Type != types.InterventionHabitReminder || out[0].Timing != types.TimingWithin24h {
		t.Errorf("first intervention wrong: %+v", out[0])
	}
	if out[1].Type != types.InterventionCoachMessage || out[1].Timing != types.TimingWithin48h {
		t.Errorf("second intervention wrong: %+v", out[1])
	}
	for _, iv := range out {
		if iv.Urgency != types.UrgencyMedium {
			t.Errorf("urgency = %s, want medium", iv.Urgency)
		}
	}
}

func TestGenerateInterventionsHighPlan(t *testing.T) {
	indicators := []types.DriftIndicator{
		{Name: types.IndicatorCheckinFrequency, Severity: 0.9, Trend: types.TrendStable},
		{Name: types.IndicatorMoodDecline, Severity: 0.4, Trend: types.TrendStable},
	}
	out := GenerateInterventions(types.RiskHigh, indicators, UserContext{})
	if len(out) != 2 {
		t.Fatalf("interventions = %d, want 2 without severe mood decline", len(out))
	}
	if out[0].Type != types.InterventionCoachMessage || out[0].Timing != types.TimingWithin12h {
		t.Errorf("first intervention wrong: %+v", out[0])
	}
	if out[1].Type != types.InterventionGoalAdjustment || out[1].Timing != types.TimingWithin24h {
		t.Errorf("second intervention wrong: %+v", out[1])
	}
}

func TestGenerateInterventionsHighPlanWithMoodDecline(t *testing.T) {
	indicators := []types.DriftIndicator{
		{Name: types.IndicatorMoodDecline, Severity: 0.7, Trend: types.TrendDecreasing},
	}
	out := GenerateInterventions(types.RiskHigh, indicators, UserContext{})
	if len(out) != 3 {
		t.Fatalf("interventions = %d, want 3 with severe mood decline", len(out))
	}
	last := out[2]
	if last.Type != types.InterventionSupportOutreach {
		t.Errorf("third intervention = %s, want support_outreach", last.Type)
	}
	if last.Timing != types.TimingWithin24h {
		t.Errorf("timing = %s, want within_24h", last.Timing)
	}
}

func TestGenerateInterventionsCriticalPlan(t *testing.T) {
	out := GenerateInterventions(types.RiskCritical, nil, UserContext{})
	if len(out) != 4 {
		t.Fatalf("interventions = %d, want 4", len(out))
	}
	want := []struct {
		kind   types.InterventionType
		timing string
	}{
		{types.InterventionNotification, types.TimingImmediate},
		{types.InterventionCoachMessage, types.TimingImmediate},
		{types.InterventionGoalAdjustment, types.TimingWithin6h},
		{types.InterventionSupportOutreach, types.TimingWithin12h},
	}
	for i, w := range want {
		if out[i].Type != w.kind || out[i].Timing != w.timing {
			t.Errorf("intervention %d = %s/%s, want %s/%s", i, out[i].Type, out[i].Timing, w.kind, w.timing)
		}
		if out[i].Urgency != types.UrgencyCritical {
			t.Errorf("intervention %d urgency = %s, want critical", i, out[i].Urgency)
		}
		if out[i].Message == "" {
			t.Errorf("intervention %d has no message", i)
		}
	}
}

func TestPersonalizeGoalTitle(t *testing.T) {
	msg := personalize("Let's revisit your goals and make them more achievable.", UserContext{GoalTitle: "morning runs"})
	if !strings.Contains(msg, "your goal: morning runs") {
		t.Errorf("goal title not substituted: %q", msg)
	}
}

func TestPersonalizeMoodAppendix(t *testing.T) {
	low := personalize("Base.", UserContext{HasMood: true, Mood: 1.5})
	if !strings.Contains(low, "okay to have tough days") {
		t.Errorf("low mood appendix missing: %q", low)
	}
	high := personalize("Base.", UserContext{HasMood: true, Mood: 4.5})
	if !strings.Contains(high, "positive energy") {
		t.Errorf("high mood appendix missing: %q", high)
	}
	mid := personalize("Base.", UserContext{HasMood: true, Mood: 3})
	if mid != "Base." {
		t.Errorf("mid mood should not modify the message: %q", mid)
	}
	none := personalize("Base.", UserContext{})
	if none != "Base." {
		t.Errorf("no mood should not modify the message: %q", none)
	}
}

func TestBuildUserContextPicksLatestSignals(t *testing.T) {
	data := &UserData{
		CheckIns: []types.Event{
			{Kind: types.EventCheckIn, Mood: 2},
			{Kind: types.EventCheckIn, Mood: 4},
		},
		Goals: []types.Event{
			{Kind: types.EventGoal, Title: "old goal", Completed: true},
			{Kind: types.EventGoal, Title: "write daily", Completed: false},
		},
	}
	uc := BuildUserContext(data)
	if uc.GoalTitle != "write daily" {
		t.Errorf("goal title = %q, want the active goal", uc.GoalTitle)
	}
	if !uc.HasMood || uc.Mood != 4 {
		t.Errorf("mood = %.1f (has=%v), want latest mood 4", uc.Mood, uc.HasMood)
	}
}

func TestRealtimeInterventionsMapping(t *testing.T) {
	indicators := []types.DriftIndicator{
		{Name: types.IndicatorNoActivity24h, Severity: 0.8, Trend: types.TrendStable},
		{Name: types.IndicatorMissedCheckin, Severity: 0.6, Trend: types.TrendStable},
	}
	out := RealtimeInterventions(indicators)
	if len(out) != 2 {
		t.Fatalf("interventions = %d, want 2", len(out))
	}
	if out[0].Type != types.InterventionNotification || out[0].Urgency != types.UrgencyMedium {
		t.Errorf("no_activity mapping wrong: %+v", out[0])
	}
	if out[1].Type != types.InterventionHabitReminder || out[1].Urgency != types.UrgencyLow {
		t.Errorf("missed_checkin mapping wrong: %+v", out[1])
	}
	for _, iv := range out {
		if iv.Timing != types.TimingImmediate {
			t.Errorf("realtime intervention timing = %s, want immediate", iv.Timing)
		}
	}
}
