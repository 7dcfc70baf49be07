package groq

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/StarHydra/docstruct/constants"
)

// Config for the Groq client (OpenAI-compatible chat completions).
type Config struct {
	APIKey      string        // if empty, falls back to env GROQ_API_KEY
	BaseURL     string        // default https://api.groq.com/openai/v1
	Model       string        // e.g., "llama-3.3-70b-versatile"
	Temperature float32       // 0..2
	MaxTokens   int           // completion cap per request
	Timeout     time.Duration // http client timeout per attempt
	MaxAttempts int           // total attempts incl. the first (default 3)
	BackoffBase time.Duration // first retry delay, doubled per attempt (default 1s)
	MaxElapsed  time.Duration // total-time ceiling across retries (0 = unlimited)
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 3000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}
