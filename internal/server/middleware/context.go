package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/chainsight/backend/pkg/ai"
	"github.com/chainsight/backend/pkg/cite"
	"github.com/chainsight/backend/pkg/graph"
	"github.com/chainsight/backend/pkg/ingest"
	"github.com/chainsight/backend/pkg/reason"
	"github.com/chainsight/backend/pkg/store"
)

// App bundles the service collaborators handlers need. It is built once
// at startup and attached to every request context.
type App struct {
	Store    store.GraphStore
	Engine   *graph.Engine
	Reasoner *reason.Reasoner
	Pipeline *ingest.Pipeline
	Composer ai.AnswerComposer
	Weights  *cite.Weights
	AiClient ai.GraphAIClient
	Queue    *amqp091.Channel
	S3       *s3.Client
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
