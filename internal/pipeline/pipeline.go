package pipeline

import (
	"context"
	"log/slog"

	"cloudnine-chatbot/internal/empathy"
	"cloudnine-chatbot/internal/nlp"
	"cloudnine-chatbot/internal/rag"
	"cloudnine-chatbot/internal/session"
)

// Fallback replies. A turn always produces non-empty response text.
const (
	emptyGenerationReply = "❓ I'm having trouble understanding. Could you please rephrase that?"
	generationErrorReply = "⚠️ I'm experiencing technical difficulties. Please try again in a moment."
)

// Result is the structured outcome of one conversation turn.
type Result struct {
	Response         string           `json:"response"`
	NextQuestion     string           `json:"next_question,omitempty"`
	SessionID        string           `json:"session_id"`
	Context          *session.Session `json:"context,omitempty"`
	SuggestedActions []string         `json:"suggested_actions,omitempty"`
}

// Pipeline drives one conversation turn through classification, extraction,
// generation, empathy enhancement, session persistence and next-question
// selection, in that fixed order. Collaborator failures are absorbed at the
// step where they occur; degraded inputs flow through to the remaining
// steps.
type Pipeline struct {
	store     *session.Store
	intents   nlp.IntentClassifier
	extractor nlp.EntityExtractor
	generator rag.Generator
	advisor   *empathy.Advisor
	steps     []Step
	actions   map[string][]string
	log       *slog.Logger
}

// New wires a pipeline. Nil steps or actions select the built-in defaults.
func New(
	store *session.Store,
	intents nlp.IntentClassifier,
	extractor nlp.EntityExtractor,
	generator rag.Generator,
	advisor *empathy.Advisor,
	steps []Step,
	actions map[string][]string,
	log *slog.Logger,
) *Pipeline {
	if steps == nil {
		steps = DefaultSteps()
	}
	if actions == nil {
		actions = DefaultActions()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:     store,
		intents:   intents,
		extractor: extractor,
		generator: generator,
		advisor:   advisor,
		steps:     steps,
		actions:   actions,
		log:       log,
	}
}

// Process handles one inbound message to completion. All steps run even
// when an early collaborator fails; the reply degrades instead of erroring.
func (p *Pipeline) Process(ctx context.Context, message, sessionID string, aux map[string]string) Result {
	log := p.log.With("session_id", sessionID)

	p.store.GetOrCreate(sessionID)
	p.store.MergeAux(sessionID, aux)
	first := p.store.ConsumeFirstInteraction(sessionID)

	prediction, err := p.intents.Classify(ctx, message)
	if err != nil {
		log.Warn("intent classification failed", "error", err)
		prediction = nlp.Prediction{Intent: nlp.IntentGeneralInquiry}
	}

	entities, err := p.extractor.Extract(ctx, message)
	if err != nil {
		log.Warn("entity extraction failed", "error", err)
		entities = nlp.Entities{}
	}

	p.store.SetCurrentTurn(sessionID, session.TurnContext{
		UserMessage: message,
		Intent:      prediction.Intent,
		Entities:    entities,
	})

	// High-signal turns restrict retrieval to priority documents.
	var filters map[string]string
	if prediction.Intent == nlp.IntentMedicalInquiry || prediction.Intent == nlp.IntentEmergency {
		filters = map[string]string{"priority": "high"}
	}

	sess := p.store.GetOrCreate(sessionID)
	history := p.store.History(sessionID, 3)

	response, err := p.generator.Generate(ctx, message, sess, history, filters)
	switch {
	case err != nil:
		log.Warn("response generation failed", "error", err)
		response = generationErrorReply
	case response == "":
		response = emptyGenerationReply
	}

	if prediction.Intent == nlp.IntentAppointmentBooking && entities.Has(nlp.CategoryTime) {
		response = "📅 Perfect! I've noted your preferred appointment time. " + response
	}

	if p.advisor != nil {
		response = p.advisor.Enhance(ctx, response, sess)
	}

	p.store.Update(sessionID, message, response, entities, prediction.Intent)

	next := p.nextQuestion(sessionID, first, prediction.Intent)
	if next == "" {
		next = p.store.PopPendingQuestion(sessionID)
	}

	actions := p.suggestedActions(prediction.Intent, entities)

	log.Info("turn processed",
		"intent", prediction.Intent,
		"confidence", prediction.Confidence,
		"entities", len(entities),
		"next_question", next != "",
	)

	return Result{
		Response:         response,
		NextQuestion:     next,
		SessionID:        sessionID,
		Context:          p.store.GetOrCreate(sessionID),
		SuggestedActions: actions,
	}
}

// nextQuestion applies the clarification policy in strict priority order:
// terminal intents end the conversation, the first interaction always gets
// the greeting, then each intent-triggered question fires at most once per
// session.
func (p *Pipeline) nextQuestion(sessionID string, first bool, intent nlp.Intent) string {
	if intent.Terminal() {
		return ""
	}
	if first {
		return p.steps[0].Question
	}
	if intent.MedicalConcern() && p.store.TryAsk(sessionID, session.AskSymptoms) {
		if st, ok := p.stepByKey(session.AskSymptoms); ok {
			return st.Question
		}
	}
	if intent == nlp.IntentAppointmentBooking && p.store.TryAsk(sessionID, session.AskAppointmentPreference) {
		if st, ok := p.stepByKey(session.AskAppointmentPreference); ok {
			return st.Question
		}
	}
	return ""
}

// Reset discards the conversation state for a session.
func (p *Pipeline) Reset(sessionID string) {
	p.store.Clear(sessionID)
}

// Store exposes the session store for surfaces that need direct access
// (snapshots, archival).
func (p *Pipeline) Store() *session.Store {
	return p.store
}
