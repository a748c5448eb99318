package verifier

import (
	"context"
	"strings"

	"imgaudit/pkg/config"
	errs "imgaudit/pkg/errors"
	"imgaudit/pkg/logger"
	"imgaudit/pkg/ratelimit"
	"imgaudit/pkg/retry"
)

// Reason names why the last attempt on an image was inconclusive
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonFetch     Reason = "fetch"
	ReasonStatus    Reason = "status"
	ReasonDecode    Reason = "decode"
	ReasonCancelled Reason = "cancelled"
)

// Outcome is the verdict for one image URL
type Outcome struct {
	ImageURL  string
	Corrupted bool
	// Attempts made before the verdict
	Attempts int
	// Reason is ReasonNone unless an attempt was inconclusive
	Reason Reason
	// Err is the last attempt's failure, for logging only
	Err error
}

// Verifier classifies an image as corrupted when no attempt both downloads
// and decodes it.
type Verifier struct {
	client   *Client
	decoder  Decoder
	limiter  ratelimit.Limiter
	attempts int
	logger   logger.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithDecoder replaces the image decoder
func WithDecoder(d Decoder) Option {
	return func(v *Verifier) { v.decoder = d }
}

// WithLimiter replaces the request rate limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(v *Verifier) { v.limiter = l }
}

// WithClient replaces the download client
func WithClient(c *Client) Option {
	return func(v *Verifier) { v.client = c }
}

// New creates a Verifier from cfg
func New(cfg config.VerifyConfig, log logger.Logger, opts ...Option) *Verifier {
	log = logger.OrNop(log)
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	v := &Verifier{
		client:   NewClient(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, log),
		decoder:  ImageDecoder{},
		limiter:  ratelimit.New(cfg.RequestsPerMinute),
		attempts: attempts,
		logger:   log,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify downloads and decodes url up to the configured number of attempts
// with no delay between them. The first success means not corrupted; if
// every attempt is inconclusive the image is corrupted.
func (v *Verifier) Verify(ctx context.Context, url string) Outcome {
	out := Outcome{ImageURL: url}

	cfg := &retry.Config{
		MaxAttempts: v.attempts,
		Backoff:     &retry.ConstantBackoff{},
		// Client timeouts are inconclusive attempts; only the caller's
		// context ends verification early.
		RetryIf: func(err error) bool {
			return ctx.Err() == nil
		},
		Operation: "verify_image",
	}

	err := retry.Do(ctx, func(ctx context.Context) error {
		if err := v.limiter.Wait(ctx); err != nil {
			return err
		}
		out.Attempts++

		data, err := v.client.Download(ctx, url)
		if err != nil {
			return err
		}
		return v.decoder.Decode(data)
	}, cfg)

	if err == nil {
		return out
	}

	out.Err = err
	if ctx.Err() != nil {
		out.Reason = ReasonCancelled
		return out
	}

	out.Corrupted = true
	out.Reason = reasonFor(err)
	v.logger.DebugWithFields("image classified as corrupted", map[string]interface{}{
		"url":      url,
		"attempts": out.Attempts,
		"reason":   string(out.Reason),
		"error":    err.Error(),
	})
	return out
}

func reasonFor(err error) Reason {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeHTTPStatus:
		return ReasonStatus
	case errs.ErrorTypeDecode:
		return ReasonDecode
	default:
		return ReasonFetch
	}
}

// BuildURL joins the source host and a stored image path
func BuildURL(baseURL, imagePath string) string {
	if imagePath == "" {
		return baseURL
	}
	if strings.HasSuffix(baseURL, "/") && strings.HasPrefix(imagePath, "/") {
		return baseURL + imagePath[1:]
	}
	if !strings.HasSuffix(baseURL, "/") && !strings.HasPrefix(imagePath, "/") {
		return baseURL + "/" + imagePath
	}
	return baseURL + imagePath
}
