package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloudnine-chatbot/internal/session"
)

type recordingSender struct {
	to   string
	text string
	err  error
}

func (r *recordingSender) SendMessage(_ context.Context, to, text string) error {
	r.to, r.text = to, text
	return r.err
}

func sampleSession() *session.Session {
	return &session.Session{
		ID:        "s1",
		TurnCount: 4,
		Collected: session.CollectedInfo{
			Personal: session.PersonalInfo{Name: "priya"},
			Medical: session.MedicalInfo{
				Symptoms:      []string{"head hurts", "fever"},
				PreviousVisit: session.VisitYes,
			},
			Preferences:  session.Preferences{Doctor: "dr. rao"},
			Appointments: []session.Appointment{{"date": "tomorrow", "time": "10 am"}},
		},
		AppointmentScheduled: true,
	}
}

func TestCollectedLines(t *testing.T) {
	lines := collectedLines(sampleSession())
	joined := strings.Join(lines, "\n")

	for _, want := range []string{
		"- Name: priya",
		"- Symptoms: head hurts, fever",
		"- Previous visit: yes",
		"- Preferred doctor: dr. rao",
		`date "tomorrow", time "10 am"`,
		"scheduled: true",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestCollectedLinesDefaultsVisit(t *testing.T) {
	lines := collectedLines(&session.Session{ID: "empty"})
	if !strings.Contains(strings.Join(lines, "\n"), "- Previous visit: unknown") {
		t.Fatalf("unset previous visit should report unknown: %v", lines)
	}
}

func TestNotify(t *testing.T) {
	sender := &recordingSender{}
	s := NewService(sender, "+911234", nil)

	s.Notify(context.Background(), sampleSession())
	if sender.to != "+911234" {
		t.Fatalf("sent to %q", sender.to)
	}
	if !strings.Contains(sender.text, "session s1") || !strings.Contains(sender.text, "head hurts") {
		t.Fatalf("summary = %q", sender.text)
	}
}

func TestNotifySkipsWhenUnconfigured(t *testing.T) {
	sender := &recordingSender{}

	NewService(sender, "", nil).Notify(context.Background(), sampleSession())
	if sender.to != "" {
		t.Fatal("no coordinator number means no notification")
	}

	// Send failures are logged, not propagated.
	failing := &recordingSender{err: errors.New("gateway down")}
	NewService(failing, "+911234", nil).Notify(context.Background(), sampleSession())
}
