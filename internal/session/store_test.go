package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"cloudnine-chatbot/internal/nlp"
)

func newTestStore(timeout time.Duration) (*Store, *time.Time) {
	s := NewStore(timeout, nil)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGetOrCreateAllocatesDefaults(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	sess := s.GetOrCreate("s1")
	if sess.ID != "s1" {
		t.Fatalf("expected id s1, got %q", sess.ID)
	}
	if !sess.FirstInteraction {
		t.Fatal("new session should be marked as first interaction")
	}
	if sess.TurnCount != 0 || len(sess.History) != 0 {
		t.Fatalf("new session should be empty, got %d turns", sess.TurnCount)
	}
}

func TestGetIsReadOnly(t *testing.T) {
	s, now := newTestStore(time.Hour)

	if _, ok := s.Get("missing"); ok {
		t.Fatal("unknown id must not be found")
	}
	if s.Len() != 0 {
		t.Fatal("a read must not allocate a session")
	}

	s.Update("s1", "msg", "reply", nil, "")
	sess, ok := s.Get("s1")
	if !ok || sess.TurnCount != 1 {
		t.Fatalf("expected live session, got %v %v", sess, ok)
	}

	*now = now.Add(2 * time.Hour)
	if _, ok := s.Get("s1"); ok {
		t.Fatal("expired session must not be visible")
	}
	if s.Len() != 1 {
		t.Fatal("a read must not reset or reap the stored session")
	}
}

func TestUpdateAppendsTurnAndCounts(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	for i := 1; i <= 3; i++ {
		s.Update("s1", fmt.Sprintf("msg %d", i), fmt.Sprintf("reply %d", i), nil, nlp.IntentGeneralInquiry)
		sess := s.GetOrCreate("s1")
		if sess.TurnCount != i {
			t.Fatalf("turn %d: turn_count = %d", i, sess.TurnCount)
		}
		if sess.TurnCount != len(sess.History) {
			t.Fatalf("turn_count %d != history length %d", sess.TurnCount, len(sess.History))
		}
	}
}

func TestTimeoutResetBehavesLikeNewSession(t *testing.T) {
	s, now := newTestStore(time.Hour)

	s.Update("s1", "hello", "hi there", nil, nlp.IntentGreeting)
	s.Update("s1", "book me in", "sure", nil, nlp.IntentAppointmentBooking)
	if got := s.GetOrCreate("s1").TurnCount; got != 2 {
		t.Fatalf("expected 2 turns before expiry, got %d", got)
	}

	*now = now.Add(time.Hour + time.Second)
	s.Update("s1", "hello again", "welcome back", nil, nlp.IntentGreeting)

	sess := s.GetOrCreate("s1")
	if sess.TurnCount != 1 {
		t.Fatalf("expected fresh session with 1 turn, got %d", sess.TurnCount)
	}
	if len(sess.History) != 1 || sess.History[0].UserMessage != "hello again" {
		t.Fatalf("expected only the post-expiry turn, got %+v", sess.History)
	}
	if !sess.FirstInteraction {
		t.Fatal("reset session should behave like a brand new one")
	}
}

func TestStaleAccessResetsInvisibly(t *testing.T) {
	s, now := newTestStore(time.Hour)

	s.Update("s1", "hello", "hi", nil, nlp.IntentGreeting)
	*now = now.Add(2 * time.Hour)

	sess := s.GetOrCreate("s1")
	if sess.TurnCount != 0 || !sess.FirstInteraction {
		t.Fatalf("stale access should yield a fresh session, got %+v", sess)
	}
}

func TestSymptomAccumulationMonotonic(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	symptoms := []string{"head ache", "back pain", "feeling dizzy"}
	for i, sym := range symptoms {
		s.Update("s1", "msg", "reply",
			nlp.Entities{nlp.CategorySymptom: {sym}}, nlp.IntentSymptomInquiry)
		got := s.GetOrCreate("s1").Collected.Medical.Symptoms
		if len(got) != i+1 {
			t.Fatalf("after %d turns expected %d symptoms, got %v", i+1, i+1, got)
		}
	}

	// Repeats must not duplicate.
	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategorySymptom: {"back pain"}}, nlp.IntentSymptomInquiry)
	got := s.GetOrCreate("s1").Collected.Medical.Symptoms
	if len(got) != len(symptoms) {
		t.Fatalf("duplicate symptom changed the set: %v", got)
	}
}

func TestPreferencesLastWriteWins(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryDoctor: {"dr. rao"}, nlp.CategoryDepartment: {"cardiology"}},
		nlp.IntentAppointmentBooking)
	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryDoctor: {"dr. mehta"}}, nlp.IntentAppointmentBooking)

	sess := s.GetOrCreate("s1")
	if sess.Collected.Preferences.Doctor != "dr. mehta" {
		t.Fatalf("doctor preference should be newest, got %q", sess.Collected.Preferences.Doctor)
	}
	if sess.Collected.Preferences.Department != "cardiology" {
		t.Fatalf("department should survive, got %q", sess.Collected.Preferences.Department)
	}
	if !sess.AppointmentConfirmed {
		t.Fatal("doctor/department preference should confirm the appointment")
	}
}

func TestPreviousVisitResolution(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryPreviousVisit: {"yes"}}, nlp.IntentGeneralInquiry)
	if got := s.GetOrCreate("s1").Collected.Medical.PreviousVisit; got != VisitYes {
		t.Fatalf("expected previous_visit yes, got %q", got)
	}

	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryPreviousVisit: {"never been"}}, nlp.IntentGeneralInquiry)
	if got := s.GetOrCreate("s1").Collected.Medical.PreviousVisit; got != VisitNo {
		t.Fatalf("expected previous_visit no, got %q", got)
	}
}

func TestAppointmentScheduledLatches(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryDate: {"tomorrow"}}, nlp.IntentAppointmentBooking)
	if s.GetOrCreate("s1").AppointmentScheduled {
		t.Fatal("date alone must not schedule an appointment")
	}

	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryTime: {"10 am"}}, nlp.IntentAppointmentBooking)
	sess := s.GetOrCreate("s1")
	if !sess.AppointmentScheduled {
		t.Fatal("date plus time should schedule the appointment")
	}
	if len(sess.Collected.Appointments) != 1 {
		t.Fatalf("expected one appointment record, got %d", len(sess.Collected.Appointments))
	}

	// Later partial updates never clear the flag.
	s.Update("s1", "msg", "reply",
		nlp.Entities{nlp.CategoryDepartment: {"neurology"}}, nlp.IntentAppointmentBooking)
	if !s.GetOrCreate("s1").AppointmentScheduled {
		t.Fatal("appointment_scheduled should never unset within a session")
	}
}

func TestHistoryProjection(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.Update("s1", "one", "first", nil, "")
	s.Update("s1", "two", "", nil, "") // malformed: no bot response
	s.Update("s1", "three", "third", nil, "")
	s.Update("s1", "four", "fourth", nil, "")

	all := s.History("s1", 0)
	if len(all) != 3 {
		t.Fatalf("expected malformed turn dropped from projection, got %d entries", len(all))
	}

	last2 := s.History("s1", 2)
	if len(last2) != 2 || last2[0].User != "three" || last2[1].User != "four" {
		t.Fatalf("expected most recent two in original order, got %+v", last2)
	}

	// Storage keeps the malformed turn.
	if got := s.GetOrCreate("s1").TurnCount; got != 4 {
		t.Fatalf("projection must not touch storage, turn_count = %d", got)
	}
}

func TestTryAskOncePerSession(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	if !s.TryAsk("s1", AskSymptoms) {
		t.Fatal("first ask should succeed")
	}
	for i := 0; i < 3; i++ {
		if s.TryAsk("s1", AskSymptoms) {
			t.Fatal("repeated ask should be refused")
		}
	}
	if !s.TryAsk("s1", AskAppointmentPreference) {
		t.Fatal("distinct question keys are independent")
	}
}

func TestConsumeFirstInteraction(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	if !s.ConsumeFirstInteraction("s1") {
		t.Fatal("first consume should report true")
	}
	if s.ConsumeFirstInteraction("s1") {
		t.Fatal("second consume should report false")
	}
}

func TestPendingQuestionFIFO(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.PushPendingQuestion("s1", "q1")
	s.PushPendingQuestion("s1", "q2")
	if got := s.PopPendingQuestion("s1"); got != "q1" {
		t.Fatalf("expected q1, got %q", got)
	}
	if got := s.PopPendingQuestion("s1"); got != "q2" {
		t.Fatalf("expected q2, got %q", got)
	}
	if got := s.PopPendingQuestion("s1"); got != "" {
		t.Fatalf("expected empty queue, got %q", got)
	}
}

func TestClearIdempotent(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	s.Update("s1", "msg", "reply", nil, "")
	s.Clear("s1")
	s.Clear("s1")
	if got := s.GetOrCreate("s1").TurnCount; got != 0 {
		t.Fatalf("cleared session should be fresh, got %d turns", got)
	}
}

func TestSweepExpired(t *testing.T) {
	s, now := newTestStore(time.Hour)

	s.Update("old", "msg", "reply", nil, "")
	*now = now.Add(30 * time.Minute)
	s.Update("fresh", "msg", "reply", nil, "")
	*now = now.Add(45 * time.Minute) // "old" is now 75m stale, "fresh" 45m

	if removed := s.SweepExpired(); removed != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", s.Len())
	}
}

func TestCapacitySweepOnUpdate(t *testing.T) {
	s, now := newTestStore(time.Hour)
	s.maxSessions = 5

	for i := 0; i < 6; i++ {
		s.Update(fmt.Sprintf("old-%d", i), "msg", "reply", nil, "")
	}
	*now = now.Add(2 * time.Hour)
	s.Update("fresh", "msg", "reply", nil, "")

	if s.Len() != 1 {
		t.Fatalf("expected capacity sweep to purge expired sessions, have %d", s.Len())
	}
}

// Concurrent turns for different sessions are independent; concurrent turns
// for the same session resolve last-write-wins without lost counts, since
// each update is one critical section.
func TestConcurrentUpdates(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	var wg sync.WaitGroup
	const turns = 50
	for i := 0; i < turns; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update("shared", fmt.Sprintf("msg %d", i), "reply", nil, "")
		}(i)
		go func(i int) {
			defer wg.Done()
			s.Update(fmt.Sprintf("solo-%d", i), "msg", "reply", nil, "")
		}(i)
	}
	wg.Wait()

	if got := s.GetOrCreate("shared").TurnCount; got != turns {
		t.Fatalf("expected %d turns on shared session, got %d", turns, got)
	}
	for i := 0; i < turns; i++ {
		if got := s.GetOrCreate(fmt.Sprintf("solo-%d", i)).TurnCount; got != 1 {
			t.Fatalf("solo session %d has %d turns", i, got)
		}
	}
}
