package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainsight/backend/internal/queue"
	mid "github.com/chainsight/backend/internal/server/middleware"
	"github.com/chainsight/backend/internal/storage"
	"github.com/chainsight/backend/internal/util"
	"github.com/chainsight/backend/pkg/ai"
	oai "github.com/chainsight/backend/pkg/ai/ollama"
	gai "github.com/chainsight/backend/pkg/ai/openai"
	"github.com/chainsight/backend/pkg/graph"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/logger"
	"github.com/chainsight/backend/pkg/reason"
	"github.com/chainsight/backend/pkg/resolve"
	"github.com/chainsight/backend/pkg/store"
	"github.com/chainsight/backend/pkg/store/memory"
	neostore "github.com/chainsight/backend/pkg/store/neo4j"
	pgstore "github.com/chainsight/backend/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	graphStore := NewGraphStore(ctx)
	aiClient := NewAIClient()

	resolver := resolve.NewResolver(resolve.Config{
		Aliases: NewAliasTable(),
	})
	engine, err := graph.NewEngine(graph.NewEngineParams{
		Resolver: resolver,
		Store:    graphStore,
	})
	if err != nil {
		logger.Fatal("Failed to create upsert engine", "err", err)
	}

	reasoner, err := reason.NewReasoner(reason.NewReasonerParams{
		Store: graphStore,
	})
	if err != nil {
		logger.Fatal("Failed to create reasoner", "err", err)
	}

	extractor, err := ai.NewLLMExtractor(ai.NewLLMExtractorParams{
		Client:   aiClient,
		Thinking: util.GetEnv("AI_THINKING"),
	})
	if err != nil {
		logger.Fatal("Failed to create extractor", "err", err)
	}
	composer, err := ai.NewLLMComposer(ai.NewLLMComposerParams{Client: aiClient})
	if err != nil {
		logger.Fatal("Failed to create composer", "err", err)
	}

	pipeline, err := ingest.NewPipeline(ingest.NewPipelineParams{
		Extractor:    extractor,
		Engine:       engine,
		DedupeClient: aiClient,
	})
	if err != nil {
		logger.Fatal("Failed to create ingest pipeline", "err", err)
	}

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, []string{queue.IngestQueue}); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	app := &mid.App{
		Store:    graphStore,
		Engine:   engine,
		Reasoner: reasoner,
		Pipeline: pipeline,
		Composer: composer,
		AiClient: aiClient,
		Queue:    ch,
		S3:       s3,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1G"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

// NewGraphStore selects the graph backend from GRAPH_STORE: "postgres",
// "neo4j", or the in-memory default for local development.
func NewGraphStore(ctx context.Context) store.GraphStore {
	switch util.GetEnv("GRAPH_STORE") {
	case "postgres":
		databaseURL := util.GetEnv("DATABASE_URL")
		migrations := util.GetEnvString("MIGRATIONS_URL", "file://migrations")
		if err := pgstore.RunMigrations(migrations, databaseURL); err != nil {
			logger.Fatal("Failed to run migrations", "err", err)
		}
		conn, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		return pgstore.NewGraphDBStoreWithConnection(conn)
	case "neo4j":
		s, err := neostore.NewStore(ctx, neostore.Config{
			URI:      util.GetEnv("NEO4J_URI"),
			Username: util.GetEnv("NEO4J_USERNAME"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
		})
		if err != nil {
			logger.Fatal("Failed to connect to neo4j", "err", err)
		}
		return s
	default:
		logger.Warn("Using in-memory graph store; data will not survive restarts")
		return memory.NewStore()
	}
}

// NewAIClient builds the model client from AI_ADAPTER, defaulting to
// the OpenAI-compatible backend.
func NewAIClient() ai.GraphAIClient {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ExtractionModel:  util.GetEnv("AI_EXTRACT_MODEL"),
			CompositionModel: util.GetEnv("AI_COMPOSE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 15)),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ExtractionModel:  util.GetEnv("AI_EXTRACT_MODEL"),
			CompositionModel: util.GetEnv("AI_COMPOSE_MODEL"),

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

// NewAliasTable loads the resolver alias table from ALIAS_FILE when
// set, otherwise falls back to the built-in supply-chain aliases.
func NewAliasTable() map[string][]string {
	path := util.GetEnv("ALIAS_FILE")
	if path == "" {
		return resolve.DefaultAliases()
	}
	aliases, err := resolve.LoadAliases(path)
	if err != nil {
		logger.Fatal("Failed to load alias table", "path", path, "err", err)
	}
	return aliases
}
