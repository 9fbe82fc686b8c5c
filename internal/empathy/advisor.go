package empathy

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"

	"cloudnine-chatbot/internal/nlp"
	"cloudnine-chatbot/internal/rag"
	"cloudnine-chatbot/internal/session"
)

const (
	// Emotions scored below this by the detector are discarded.
	significanceFloor = 0.2

	// The empathy template is only prepended above this confidence.
	templateThreshold = 0.3
)

// DefaultTemplates returns the built-in empathy template sentences per
// emotion.
func DefaultTemplates() map[string][]string {
	return map[string][]string{
		"anxiety": {
			"I understand this might be causing you worry. We're here to help you through this.",
			"It's completely normal to feel anxious about your health. Let me assist you step by step.",
		},
		"pain": {
			"I'm sorry to hear you're in pain. We'll make sure you get the care you need.",
			"Thank you for sharing about your discomfort. We'll help you find relief.",
		},
		"urgency": {
			"I understand the urgency of your situation. Let's get you the help you need right away.",
			"Your immediate concern is our priority. We'll handle this as quickly as possible.",
		},
		"frustration": {
			"I can hear your frustration. Let's work together to resolve this.",
			"I apologize for any difficulties you're experiencing. I'm here to help make things right.",
		},
		"confusion": {
			"Let me clarify that for you in simpler terms.",
			"I'll be happy to explain this more clearly. Please don't hesitate to ask questions.",
		},
		"default": {
			"I'm here to help you with any questions or concerns you have.",
			"Your health and comfort are our top priority. How else can I assist you?",
		},
	}
}

// Keyword fallback is checked in this fixed priority order, so a message
// touching several categories always resolves to the same emotion.
var emotionOrder = []string{"anxiety", "pain", "urgency", "frustration", "confusion"}

var emotionKeywords = map[string][]string{
	"anxiety":     {"worried", "anxious", "nervous", "scared", "concerned"},
	"pain":        {"hurt", "painful", "aching", "sore", "discomfort"},
	"urgency":     {"emergency", "immediate", "urgent", "critical"},
	"frustration": {"frustrated", "annoyed", "upset", "angry"},
	"confusion":   {"confused", "unsure", "unclear", "don't understand"},
}

// medicalAssessment summarizes how serious the current concern looks.
type medicalAssessment struct {
	severity float64
	domain   string
	urgency  string
	careType string
}

// Advisor composes emotionally appropriate framing around a synthesized
// reply. It never makes a reply worse: any internal failure returns the
// base response unchanged.
type Advisor struct {
	detector  nlp.EmotionDetector
	retriever rag.Retriever
	templates map[string][]string
	rng       *rand.Rand
	log       *slog.Logger
}

// NewAdvisor builds an advisor. detector and retriever may be nil, in which
// case only the keyword fallbacks run. A nil rng pins template selection to
// the first sentence, which tests rely on.
func NewAdvisor(detector nlp.EmotionDetector, retriever rag.Retriever, templates map[string][]string, rng *rand.Rand, log *slog.Logger) *Advisor {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Advisor{
		detector:  detector,
		retriever: retriever,
		templates: templates,
		rng:       rng,
		log:       log,
	}
}

// Enhance wraps the base response in empathy fragments derived from the
// current turn's utterance and the session's medical context. Fragments are
// joined with single spaces; empty fragments are dropped.
func (a *Advisor) Enhance(ctx context.Context, base string, sess *session.Session) string {
	var message string
	if sess != nil {
		message = sess.CurrentTurn.UserMessage
	}

	emotions := a.detectEmotion(ctx, message)
	assessment := a.analyzeMedicalContext(ctx, message, sess)

	var parts []string

	primary := emotions[0]
	if primary.Score > templateThreshold {
		if sentences := a.templates[primary.Emotion]; len(sentences) > 0 {
			parts = append(parts, a.pick(sentences))
		}
	}

	if assessment.severity > 0.7 {
		parts = append(parts, "I understand the urgency of your situation.")
	}

	switch assessment.careType {
	case "maternity":
		parts = append(parts, "As this concerns your pregnancy, we'll ensure you receive specialized maternal care.")
	case "pediatric":
		parts = append(parts, "When it comes to children's health, we take extra care to ensure their comfort and well-being.")
	}

	if base != "" {
		parts = append(parts, base)
	}

	if primary.Emotion == "anxiety" || primary.Emotion == "fear" || assessment.severity > 0.5 {
		parts = append(parts, "Please remember that you're in good hands with Cloud9 Hospitals.")
	}

	if assessment.urgency == "immediate" {
		parts = append(parts, "If you need immediate medical attention, please call our emergency number or visit our 24/7 emergency department.")
	}

	if len(parts) == 0 {
		return base
	}
	return strings.Join(parts, " ")
}

// detectEmotion asks the external scorer first, keeps significant labels,
// then falls back to the keyword table and finally to neutral. It never
// returns an empty slice.
func (a *Advisor) detectEmotion(ctx context.Context, message string) []nlp.EmotionScore {
	if a.detector != nil && message != "" {
		scores, err := a.detector.Detect(ctx, message)
		if err != nil {
			a.log.Warn("emotion detection failed", "error", err)
			return []nlp.EmotionScore{{Emotion: "default", Score: 1.0}}
		}
		significant := scores[:0:0]
		for _, s := range scores {
			if s.Score > significanceFloor {
				significant = append(significant, s)
			}
		}
		if len(significant) > 0 {
			return significant
		}
	}

	lowered := strings.ToLower(message)
	for _, emotion := range emotionOrder {
		for _, kw := range emotionKeywords[emotion] {
			if strings.Contains(lowered, kw) {
				return []nlp.EmotionScore{{Emotion: emotion, Score: 0.5}}
			}
		}
	}
	return []nlp.EmotionScore{{Emotion: "neutral", Score: 1.0}}
}

// analyzeMedicalContext inspects retrieved documents for department and
// care-type signals. When retrieval fails, severity falls back to a static
// mapping over the caller-supplied urgency label.
func (a *Advisor) analyzeMedicalContext(ctx context.Context, message string, sess *session.Session) medicalAssessment {
	assessment := medicalAssessment{
		severity: 0.5,
		domain:   "general",
		urgency:  "routine",
		careType: "standard",
	}
	if message == "" && sess == nil {
		return assessment
	}

	var docs []rag.Document
	var err error
	if a.retriever != nil {
		docs, err = a.retriever.Query(ctx, message, 2, nil)
	}
	if a.retriever == nil || err != nil {
		if err != nil {
			a.log.Warn("medical context retrieval failed", "error", err)
		}
		label := "routine"
		if sess != nil && sess.Aux["urgency"] != "" {
			label = sess.Aux["urgency"]
		}
		severityMap := map[string]float64{
			"emergency": 1.0,
			"urgent":    0.8,
			"routine":   0.3,
			"inquiry":   0.1,
		}
		if sev, ok := severityMap[label]; ok {
			assessment.severity = sev
		}
		return assessment
	}

	for _, doc := range docs {
		content := strings.ToLower(doc.Text)

		if containsAny(content, "emergency", "icu", "critical care") {
			assessment.domain = "emergency"
			assessment.severity = 1.0
			assessment.urgency = "immediate"
		} else if containsAny(content, "cardiology", "neurology", "oncology") {
			assessment.domain = "specialist"
			assessment.severity = 0.8
		}

		if containsAny(content, "pregnancy", "maternity") {
			assessment.careType = "maternity"
		} else if containsAny(content, "pediatric", "children") {
			assessment.careType = "pediatric"
		}
	}
	return assessment
}

// Personalize prefixes the response with a comma-joined preamble built from
// whatever personalization hints are present. An empty preamble leaves the
// response unchanged.
func (a *Advisor) Personalize(response string, userCtx map[string]string) string {
	if len(userCtx) == 0 {
		return response
	}

	var parts []string
	if name := userCtx["patient_name"]; name != "" {
		parts = append(parts, "Hi "+name)
	}
	if week := userCtx["pregnancy_week"]; week != "" {
		parts = append(parts, "As you're in week "+week+" of your pregnancy")
	}
	if userCtx["previous_visit"] == session.VisitYes {
		if date := userCtx["last_visit_date"]; date != "" {
			parts = append(parts, "Based on your last visit on "+date)
		} else {
			parts = append(parts, "I can see from your records that you've been with us before")
		}
	}
	if doctor := userCtx["preferred_doctor"]; doctor != "" {
		parts = append(parts, "I notice you usually consult with Dr. "+doctor)
	}

	if len(parts) == 0 {
		return response
	}
	return strings.Join(parts, ", ") + ". " + response
}

func (a *Advisor) pick(sentences []string) string {
	if a.rng == nil || len(sentences) == 1 {
		return sentences[0]
	}
	return sentences[a.rng.Intn(len(sentences))]
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
