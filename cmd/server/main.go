package main

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	openai "github.com/sashabaranov/go-openai"

	"cloudnine-chatbot/internal/chat"
	"cloudnine-chatbot/internal/config"
	"cloudnine-chatbot/internal/empathy"
	"cloudnine-chatbot/internal/nlp"
	"cloudnine-chatbot/internal/pipeline"
	"cloudnine-chatbot/internal/platform/whatsapp"
	"cloudnine-chatbot/internal/rag"
	"cloudnine-chatbot/internal/report"
	"cloudnine-chatbot/internal/session"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	// 1. Infrastructure
	var db *sql.DB
	var archive session.Repository
	if cfg.DatabaseURL != "" {
		var err error
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			log.Info("waiting for database", "attempt", i+1)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			log.Warn("could not connect to database, session archive disabled", "error", err)
			db = nil
		} else {
			log.Info("connected to database")
			runMigrations(cfg, log)
			archive = session.NewRepository(db)
		}
	}

	// 2. Content and collaborators
	content := &config.BotContent{}
	if cfg.ContentPath != "" {
		loaded, err := config.LoadContent(cfg.ContentPath)
		if err != nil {
			log.Warn("bot content load failed, using defaults", "error", err)
		} else {
			content = loaded
		}
	}
	if len(content.Intents) == 0 {
		for intent, patterns := range nlp.DefaultIntentPatterns() {
			content.Intents = append(content.Intents, config.IntentDef{
				Name:     string(intent),
				Patterns: patterns,
			})
		}
	}

	patterns := make(map[nlp.Intent][]string, len(content.Intents))
	intents := make([]nlp.Intent, 0, len(content.Intents))
	for _, def := range content.Intents {
		patterns[nlp.Intent(def.Name)] = def.Patterns
		intents = append(intents, nlp.Intent(def.Name))
	}
	keywordClassifier := nlp.NewKeywordClassifier(patterns)
	extractor := nlp.NewRegexExtractor()

	var classifier nlp.IntentClassifier = keywordClassifier
	var detector nlp.EmotionDetector
	var retriever rag.Retriever
	var generator rag.Generator = rag.NewMockGenerator()

	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		classifier = fallbackClassifier{
			primary:  nlp.NewOpenAIClassifier(client, cfg.OpenAIChatModel, intents),
			fallback: keywordClassifier,
		}
		detector = nlp.NewOpenAIEmotionDetector(client, cfg.OpenAIChatModel)

		index := rag.NewVectorIndex(rag.NewOpenAIEmbedder(client))
		if cfg.CorpusPath != "" {
			docs, err := rag.LoadCorpus(cfg.CorpusPath)
			if err != nil {
				log.Warn("corpus load failed", "error", err)
			} else if err := index.AddDocuments(context.Background(), docs); err != nil {
				log.Warn("corpus indexing failed", "error", err)
			} else {
				log.Info("corpus indexed", "documents", len(docs))
			}
		}
		retriever = index
		generator = rag.NewOpenAIGenerator(client, index, cfg.OpenAIChatModel)
	} else {
		log.Warn("OPENAI_API_KEY not set, running with offline collaborators")
	}

	waClient := whatsapp.NewClient(cfg.PlivoAuthID, cfg.PlivoAuthToken, cfg.PlivoNumber)

	// 3. Services
	store := session.NewStore(cfg.SessionTimeout, log)
	stop := make(chan struct{})
	defer close(stop)
	go store.RunSweeper(cfg.SweepInterval, stop)

	templates := content.EmpathyTemplates
	advisor := empathy.NewAdvisor(detector, retriever, templates, rand.New(rand.NewSource(time.Now().UnixNano())), log)

	actions := content.SuggestedActions
	pipe := pipeline.New(store, classifier, extractor, generator, advisor, nil, actions, log)

	reportSvc := report.NewService(waClient, os.Getenv("COORDINATOR_WHATSAPP_NUMBER"), log)

	var sender chat.WebhookSender
	if waClient.Configured() {
		sender = waClient
	}
	handler := chat.NewHandler(pipe, archive, reportSvc, content.Intents, sender, log)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		chat.RegisterRoutes(r, handler)
	})

	addr := ":" + cfg.Port
	log.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func runMigrations(cfg *config.Config, log *slog.Logger) {
	m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		log.Warn("migration init failed", "error", err)
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Warn("migration up failed", "error", err)
		return
	}
	log.Info("migrations applied")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fallbackClassifier tries the hosted classifier and degrades to keyword
// matching when it fails, so classification keeps working offline.
type fallbackClassifier struct {
	primary  nlp.IntentClassifier
	fallback nlp.IntentClassifier
}

func (c fallbackClassifier) Classify(ctx context.Context, text string) (nlp.Prediction, error) {
	pred, err := c.primary.Classify(ctx, text)
	if err == nil {
		return pred, nil
	}
	return c.fallback.Classify(ctx, text)
}
