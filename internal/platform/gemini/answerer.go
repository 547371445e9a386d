package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yerba/yerba-api/internal/inference"
	"google.golang.org/genai"
)

// Default retry settings
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// systemInstruction frames every request.
const systemInstruction = "You are a helpful assistant answering questions about the user's documents. " +
	"Use the earlier conversation as context and answer concisely."

// Config configures an Answerer.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	// RetryDelay is the base delay, doubled after every failed attempt.
	RetryDelay time.Duration
}

// contentGenerator is the subset of *genai.Models the answerer calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Answerer generates answers with a Gemini model.
type Answerer struct {
	models contentGenerator
	config Config
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	sleep func(ctx context.Context, d time.Duration) error
}

var _ inference.Answerer = (*Answerer)(nil)

// NewAnswerer creates a Gemini client for cfg.APIKey.
func NewAnswerer(ctx context.Context, cfg Config, logger *slog.Logger) (*Answerer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", inference.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", inference.ErrInvalidConfig, err)
	}

	return newAnswerer(client.Models, cfg, logger)
}

func newAnswerer(models contentGenerator, cfg Config, logger *slog.Logger) (*Answerer, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: gemini client cannot be nil", inference.ErrInvalidConfig)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", inference.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", inference.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", DefaultMaxRetries)
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Answerer{
		models: models,
		config: cfg,
		logger: logger.With("component", "gemini_answerer", "model", cfg.Model),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:  sleepContext,
	}, nil
}

// Ask answers req.Question with req.ChatHistory as prior turns.
// req.VectorDBPath is ignored.
func (a *Answerer) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	contents, err := buildContents(req)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	return a.generateWithRetry(ctx, contents, config)
}

// buildContents turns the encoded history into alternating user and model
// turns followed by the question. Turns with no AI text are dropped.
func buildContents(req inference.AskRequest) ([]*genai.Content, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, inference.ErrEmptyQuestion
	}

	turns, err := inference.DecodeHistory(req.ChatHistory)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, 2*len(turns)+1)
	for _, turn := range turns {
		if turn.AI == "" {
			continue
		}
		contents = append(contents,
			genai.NewContentFromText(turn.Human, genai.RoleUser),
			genai.NewContentFromText(turn.AI, genai.RoleModel),
		)
	}
	contents = append(contents, genai.NewContentFromText(req.Question, genai.RoleUser))
	return contents, nil
}

// generateWithRetry calls the model up to MaxRetries+1 times. Only
// transient errors are retried.
func (a *Answerer) generateWithRetry(
	ctx context.Context,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (string, error) {
	maxRetries := a.config.MaxRetries

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		a.logger.DebugContext(ctx, "making gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		resp, err := a.models.GenerateContent(ctx, a.config.Model, contents, config)
		var text string
		if err == nil {
			text, err = extractText(resp)
		}
		if err == nil {
			return text, nil
		}

		if !isTransient(err) {
			a.logger.WarnContext(ctx, "permanent gemini error, not retrying",
				"attempt", attemptNum,
				"error", err)
			return "", err
		}

		if attempt >= maxRetries {
			a.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", maxRetries,
				"error", err)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				inference.ErrTransientFailure, maxRetries, err)
		}

		delay := a.backoff(attempt)
		a.logger.InfoContext(ctx, "retrying gemini call after delay",
			"attempt", attemptNum,
			"delay_ms", delay.Milliseconds(),
			"error", err)

		if err := a.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %v", inference.ErrTransientFailure, err)
		}
	}
}

// backoff returns base * 2^attempt scaled by a jitter factor in [0.5, 1).
func (a *Answerer) backoff(attempt int) time.Duration {
	a.mu.Lock()
	jitter := 0.5 + a.rng.Float64()*0.5
	a.mu.Unlock()

	return time.Duration(float64(a.config.RetryDelay) * math.Pow(2, float64(attempt)) * jitter)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", inference.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", inference.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", inference.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: answer blocked by safety filters", inference.ErrContentBlocked)
	}
	if resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty content in response", inference.ErrInvalidResponse)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", inference.ErrEmptyAnswer
	}
	return text, nil
}

// isTransient reports whether err is worth retrying: rate limits, server
// errors and transport failures. Cancellation and response-shape errors are
// permanent.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, inference.ErrContentBlocked),
		errors.Is(err, inference.ErrInvalidResponse),
		errors.Is(err, inference.ErrEmptyAnswer):
		return false
	}

	if code, ok := apiErrorCode(err); ok {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
