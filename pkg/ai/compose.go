package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainsight/backend/internal/util"
	"github.com/chainsight/backend/pkg/common"
	"github.com/chainsight/backend/pkg/reason"
)

// LLMComposer implements AnswerComposer on top of a GraphAIClient.
type LLMComposer struct {
	client     GraphAIClient
	maxRetries int
}

type NewLLMComposerParams struct {
	Client GraphAIClient
	// MaxRetries bounds the retry loop around each composition call.
	// Defaults to 3.
	MaxRetries int
}

func NewLLMComposer(params NewLLMComposerParams) (*LLMComposer, error) {
	if params.Client == nil {
		return nil, errors.New("ai: composer requires a client")
	}
	maxRetries := params.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &LLMComposer{client: params.Client, maxRetries: maxRetries}, nil
}

// Compose renders graph paths and numbered sources into a prose answer that
// cites its sources with [n] markers.
func (c *LLMComposer) Compose(
	ctx context.Context,
	question string,
	paths []common.Path,
	sources []common.Source,
) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("ai: empty question")
	}

	evidence := "No graph paths found."
	if len(paths) > 0 {
		evidence = reason.Describe(paths)
	}
	prompt := fmt.Sprintf(ComposePrompt,
		question,
		evidence,
		renderSources(sources),
	)

	var answer string
	err := util.RetryErrWithContext(ctx, c.maxRetries, func(ctx context.Context) error {
		var err error
		answer, err = c.client.GenerateCompletion(ctx, prompt, WithSystemPrompts(ComposeSystemPrompt))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("answer composition failed: %w", err)
	}
	return answer, nil
}

func renderSources(sources []common.Source) string {
	if len(sources) == 0 {
		return "No sources provided."
	}
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "[%d] %s: %s\n", s.ID, s.File, s.Excerpt)
	}
	return b.String()
}
