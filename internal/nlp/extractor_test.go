package nlp

import (
	"context"
	"testing"
)

func TestRegexExtractorSymptoms(t *testing.T) {
	x := NewRegexExtractor()

	ents, err := x.Extract(context.Background(), "My head hurts and I have a fever")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	syms := ents[CategorySymptom]
	if !containsValue(syms, "head hurts") {
		t.Fatalf("expected 'head hurts' in %v", syms)
	}
	if !containsValue(syms, "have a fever") {
		t.Fatalf("expected 'have a fever' in %v", syms)
	}
}

func TestRegexExtractorAppointmentDetails(t *testing.T) {
	x := NewRegexExtractor()

	ents, _ := x.Extract(context.Background(),
		"I'd like to see Dr. Rao in cardiology tomorrow at 10:30 am")

	if got := ents.First(CategoryDoctor); got != "dr. rao" {
		t.Fatalf("doctor = %q", got)
	}
	if got := ents.First(CategoryDepartment); got != "cardiology" {
		t.Fatalf("department = %q", got)
	}
	if got := ents.First(CategoryDate); got != "tomorrow" {
		t.Fatalf("date = %q", got)
	}
	if !ents.Has(CategoryTime) {
		t.Fatalf("expected a time entity, got %v", ents)
	}
}

func TestRegexExtractorPersonCapture(t *testing.T) {
	x := NewRegexExtractor()

	ents, _ := x.Extract(context.Background(), "Hi, my name is Priya")
	if got := ents.First(CategoryPerson); got != "priya" {
		t.Fatalf("expected the bare name, got %q", got)
	}
}

func TestRegexExtractorUrgency(t *testing.T) {
	x := NewRegexExtractor()

	ents, _ := x.Extract(context.Background(), "this is urgent, severe chest pain")
	if !containsValue(ents[CategoryUrgency], "urgent") {
		t.Fatalf("urgency = %v", ents[CategoryUrgency])
	}
	if !containsValue(ents[CategorySymptom], "chest pain") {
		t.Fatalf("symptoms = %v", ents[CategorySymptom])
	}
}

func TestRegexExtractorEmptyText(t *testing.T) {
	x := NewRegexExtractor()

	ents, err := x.Extract(context.Background(), "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ents) != 0 {
		t.Fatalf("expected no entities, got %v", ents)
	}
}

func TestCleanValuesDropsContained(t *testing.T) {
	got := cleanValues([]string{"pain", "chest pain", "pain", "fever"})
	if containsValue(got, "pain") {
		t.Fatalf("'pain' is contained in 'chest pain' and should be dropped: %v", got)
	}
	if !containsValue(got, "chest pain") || !containsValue(got, "fever") {
		t.Fatalf("kept set wrong: %v", got)
	}
}

func TestResolvePreviousVisit(t *testing.T) {
	cases := []struct {
		phrases []string
		want    string
	}{
		{[]string{"yes"}, "yes"},
		{[]string{"i've visited"}, "yes"},
		{[]string{"never been"}, "no"},
		{[]string{"no, i haven't"}, "no"},
		{[]string{"first time"}, "no"},
		{[]string{"maybe"}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := ResolvePreviousVisit(c.phrases); got != c.want {
			t.Errorf("ResolvePreviousVisit(%v) = %q, want %q", c.phrases, got, c.want)
		}
	}
}

func containsValue(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
