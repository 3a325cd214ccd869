package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainsight/backend/internal/queue"
	"github.com/chainsight/backend/internal/server"
	"github.com/chainsight/backend/internal/storage"
	"github.com/chainsight/backend/internal/util"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/chainsight/backend/pkg/ai"
	"github.com/chainsight/backend/pkg/graph"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/leaselock"
	"github.com/chainsight/backend/pkg/logger"
	"github.com/chainsight/backend/pkg/logger/console"
	"github.com/chainsight/backend/pkg/resolve"
	"github.com/chainsight/backend/pkg/store"
	"github.com/chainsight/backend/pkg/store/memory"
	neostore "github.com/chainsight/backend/pkg/store/neo4j"
	pgstore "github.com/chainsight/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)

	// Graph pipeline collaborators
	aiClient := server.NewAIClient()
	graphStore, lockClient := newGraphStore(ctx)
	resolver := resolve.NewResolver(resolve.Config{
		Aliases: server.NewAliasTable(),
	})
	engine, err := graph.NewEngine(graph.NewEngineParams{
		Resolver: resolver,
		Store:    graphStore,
	})
	if err != nil {
		logger.Fatal("Failed to create upsert engine", "err", err)
	}
	extractor, err := ai.NewLLMExtractor(ai.NewLLMExtractorParams{
		Client:   aiClient,
		Thinking: util.GetEnv("AI_THINKING"),
	})
	if err != nil {
		logger.Fatal("Failed to create extractor", "err", err)
	}
	pipeline, err := ingest.NewPipeline(ingest.NewPipelineParams{
		Extractor:    extractor,
		Engine:       engine,
		DedupeClient: aiClient,
	})
	if err != nil {
		logger.Fatal("Failed to create ingest pipeline", "err", err)
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.IngestQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	logger.Info("Listening for messages")

	// One message at a time: ingestion is model-bound and the upserts
	// of a batch must land in order.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.IngestQueue,
		fmt.Sprintf("%s_consumer", queue.IngestQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.IngestQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed")
					return
				}
				startTime := time.Now()
				logger.Info("Received message", "queue", queue.IngestQueue)

				processingErr := processWithLease(ctx, lockClient, s3Client, pipeline, string(msg.Body))

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.IngestQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg, queue.IngestQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.IngestQueue)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				aiHours := int(aiDuration.Hours())
				aiMinutes := int(aiDuration.Minutes()) % 60
				aiSeconds := int(aiDuration.Seconds()) % 60
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

// newGraphStore mirrors the server's backend selection but keeps the
// Postgres pool so the worker can take a cross-replica ingest lease.
func newGraphStore(ctx context.Context) (store.GraphStore, *leaselock.Client) {
	switch util.GetEnv("GRAPH_STORE") {
	case "postgres":
		databaseURL := util.GetEnv("DATABASE_URL")
		migrations := util.GetEnvString("MIGRATIONS_URL", "file://migrations")
		if err := pgstore.RunMigrations(migrations, databaseURL); err != nil {
			logger.Fatal("Failed to run migrations", "err", err)
		}
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		return pgstore.NewGraphDBStoreWithConnection(pool), leaselock.New(pool)
	case "neo4j":
		s, err := neostore.NewStore(ctx, neostore.Config{
			URI:      util.GetEnv("NEO4J_URI"),
			Username: util.GetEnv("NEO4J_USERNAME"),
			Password: util.GetEnv("NEO4J_PASSWORD"),
		})
		if err != nil {
			logger.Fatal("Failed to connect to neo4j", "err", err)
		}
		return s, nil
	default:
		logger.Warn("Using in-memory graph store; data will not survive restarts")
		return memory.NewStore(), nil
	}
}

// processWithLease serializes graph writes across worker replicas when
// a lock client is available; otherwise it processes directly.
func processWithLease(
	ctx context.Context,
	lockClient *leaselock.Client,
	s3Client *awss3.Client,
	pipeline *ingest.Pipeline,
	msg string,
) error {
	if lockClient == nil {
		return queue.ProcessIngestMessage(ctx, s3Client, pipeline, msg)
	}
	return lockClient.WithLease(ctx, "graph-ingest", leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: "worker-",
	}, func(leaseCtx context.Context) error {
		return queue.ProcessIngestMessage(leaseCtx, s3Client, pipeline, msg)
	})
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// Exhausted deliveries go to the dead-letter queue for inspection.
	if retries >= queue.MaxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
