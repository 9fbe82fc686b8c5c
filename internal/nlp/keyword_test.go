package nlp

import (
	"context"
	"testing"
)

func TestKeywordClassifierIntents(t *testing.T) {
	c := NewKeywordClassifier(nil)

	cases := []struct {
		text string
		want Intent
	}{
		{"hello", IntentGreeting},
		{"i want to book an appointment", IntentAppointmentBooking},
		{"my head hurts", IntentSymptomInquiry},
		{"what departments do you have", IntentDepartmentInfo},
		{"show my medical records", IntentMedicalRecords},
		{"thank you", IntentThanks},
		{"goodbye", IntentGoodbye},
	}
	for _, tc := range cases {
		pred, err := c.Classify(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("classify %q: %v", tc.text, err)
		}
		if pred.Intent != tc.want {
			t.Errorf("classify %q = %s (%.2f), want %s", tc.text, pred.Intent, pred.Confidence, tc.want)
		}
	}
}

func TestKeywordClassifierEmergencyShortCircuit(t *testing.T) {
	c := NewKeywordClassifier(nil)

	pred, _ := c.Classify(context.Background(), "my head hurts and it's an emergency")
	if pred.Intent != IntentEmergency {
		t.Fatalf("emergency term must win, got %s", pred.Intent)
	}
	if pred.Confidence != 0.95 {
		t.Fatalf("emergency confidence = %.2f", pred.Confidence)
	}
}

func TestKeywordClassifierUnknownFallsBack(t *testing.T) {
	c := NewKeywordClassifier(nil)

	pred, _ := c.Classify(context.Background(), "zzz qqq xyzzy")
	if pred.Intent != IntentGeneralInquiry {
		t.Fatalf("unmatched text should default to general inquiry, got %s", pred.Intent)
	}
	if pred.Confidence != 0.2 {
		t.Fatalf("default confidence = %.2f", pred.Confidence)
	}
}

func TestIntentPredicates(t *testing.T) {
	if !IntentGoodbye.Terminal() || !IntentThanks.Terminal() {
		t.Fatal("goodbye and thanks are terminal")
	}
	if IntentAppointmentBooking.Terminal() {
		t.Fatal("appointment booking is not terminal")
	}
	if !IntentSymptomInquiry.MedicalConcern() || !IntentEmergency.MedicalConcern() {
		t.Fatal("symptom inquiry and emergency are medical concerns")
	}
	if IntentGreeting.MedicalConcern() {
		t.Fatal("greeting is not a medical concern")
	}
}
