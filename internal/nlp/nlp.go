package nlp

import "context"

// Intent is a categorical label summarizing the purpose of an utterance.
type Intent string

const (
	IntentGreeting              Intent = "greeting"
	IntentAppointmentBooking    Intent = "appointment_booking"
	IntentSymptomInquiry        Intent = "symptom_inquiry"
	IntentMedicalInquiry        Intent = "medical_inquiry"
	IntentEmergency             Intent = "emergency"
	IntentDepartmentInfo        Intent = "department_info"
	IntentMedicalRecords        Intent = "medical_records"
	IntentGeneralInquiry        Intent = "general_inquiry"
	IntentGoodbye               Intent = "goodbye"
	IntentThanks                Intent = "thanks"
)

// Terminal reports whether the conversation is winding down and no further
// clarifying question should be asked.
func (i Intent) Terminal() bool {
	return i == IntentGoodbye || i == IntentThanks
}

// MedicalConcern reports whether the intent signals a medical, urgent or
// symptom related concern.
func (i Intent) MedicalConcern() bool {
	return i == IntentMedicalInquiry || i == IntentEmergency || i == IntentSymptomInquiry
}

// Prediction is the result of intent classification.
type Prediction struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Category names a kind of extracted entity.
type Category string

const (
	CategoryPerson        Category = "PERSON"
	CategoryDate          Category = "DATE"
	CategoryTime          Category = "TIME"
	CategoryDateTime      Category = "DATE_TIME"
	CategorySymptom       Category = "SYMPTOM"
	CategoryDepartment    Category = "DEPARTMENT"
	CategoryDoctor        Category = "DOCTOR"
	CategoryUrgency       Category = "URGENCY"
	CategoryPreviousVisit Category = "PREVIOUS_VISIT"
)

// Entities maps an entity category to the values extracted from one utterance.
type Entities map[Category][]string

// Has reports whether at least one value was extracted for the category.
func (e Entities) Has(c Category) bool {
	return len(e[c]) > 0
}

// Clone returns a deep copy of the entity map.
func (e Entities) Clone() Entities {
	if e == nil {
		return nil
	}
	out := make(Entities, len(e))
	for c, vs := range e {
		out[c] = append([]string(nil), vs...)
	}
	return out
}

// First returns the first extracted value for the category, or "".
func (e Entities) First(c Category) string {
	if vs := e[c]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// EmotionScore is one scored emotion label, highest priority first in a
// detector result.
type EmotionScore struct {
	Emotion string  `json:"emotion"`
	Score   float64 `json:"score"`
}

// IntentClassifier labels an utterance with an intent and a confidence.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// EntityExtractor pulls structured values out of free text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (Entities, error)
}

// EmotionDetector scores the emotional content of an utterance, sorted by
// score descending.
type EmotionDetector interface {
	Detect(ctx context.Context, text string) ([]EmotionScore, error)
}
