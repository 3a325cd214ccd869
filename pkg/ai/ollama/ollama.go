package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/chainsight/backend/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient against a locally-hosted
// Ollama instance. Concurrent requests are bounded with a semaphore because
// local models serialize poorly under load.
type GraphOllamaClient struct {
	extractionModel  string
	compositionModel string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
type NewGraphOllamaClientParams struct {
	ExtractionModel  string
	CompositionModel string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new client for the Ollama API endpoint at
// params.BaseURL. An ApiKey is optional and sent as a bearer token when set.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	baseURL, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, err
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	return &GraphOllamaClient{
		extractionModel:  params.ExtractionModel,
		compositionModel: params.CompositionModel,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		baseURL:    baseURL,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: api.NewClient(baseURL, httpClient),
	}, nil
}
