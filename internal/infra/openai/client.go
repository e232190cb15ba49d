package openai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type Options struct {
	APIKey  string
	BaseURL string
	// HTTPClient is used for every request. Nil means the SDK default.
	HTTPClient *http.Client
	// Timeout bounds a single request. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// NewClient builds an SDK client that never retries on its own. Failed calls
// surface to the pipeline as-is.
func NewClient(opts Options) openaisdk.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return openaisdk.NewClient(reqOpts...)
}

func describe(op string, err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: openai API error %d: %w", op, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
