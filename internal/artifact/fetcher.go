package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"decisioning-engine/internal/observability"
)

// maxFetchRetries is the number of retries after the first attempt; every
// non-200/304 response consumes one, regardless of status class.
const maxFetchRetries = 10

const validatorHeader = "ETag"
const conditionHeader = "If-None-Match"

// FetchResult is the outcome of a terminal, successful fetch. When
// NotModified is set the Body is the previously cached body, reused.
type FetchResult struct {
	Body        []byte
	Validator   string
	NotModified bool
}

// Fetcher performs conditional artifact downloads with a bounded retry
// budget and publishes lifecycle events.
type Fetcher struct {
	client     *http.Client
	log        zerolog.Logger
	retryDelay time.Duration // per-attempt delay floor; zero permitted
	emit       Emitter
}

func NewFetcher(client *http.Client, log zerolog.Logger, retryDelay time.Duration, emit Emitter) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, log: log, retryDelay: retryDelay, emit: emit}
}

func (f *Fetcher) emitEvent(event string, payload any) {
	if f.emit != nil {
		f.emit(event, payload)
	}
}

// Fetch retrieves the artifact at location, sending the cached validator as
// a precondition when a cache entry exists. It retries every non-200/304
// outcome up to the fixed budget before reporting a terminal failure.
func (f *Fetcher) Fetch(ctx context.Context, location string, cached Entry, haveCached bool) (FetchResult, error) {
	var lastErr error

	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 && f.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return FetchResult{}, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		res, err := f.fetchOnce(ctx, location, cached, haveCached)
		if err == nil {
			f.emitEvent(EventDownloadSucceeded, DownloadSucceeded{
				ArtifactLocation: location,
				ArtifactPayload:  res.Body,
			})
			return res, nil
		}
		if ctx.Err() != nil {
			return FetchResult{}, ctx.Err()
		}
		lastErr = err
	}

	err := fmt.Errorf("unable to retrieve artifact after %d retries: %w", maxFetchRetries, lastErr)
	f.log.Error().Err(lastErr).Int("retries", maxFetchRetries).Str("location", location).
		Msg("artifact download failed")
	f.emitEvent(EventDownloadFailed, DownloadFailed{ArtifactLocation: location, Error: err})
	return FetchResult{}, err
}

func (f *Fetcher) fetchOnce(ctx context.Context, location string, cached Entry, haveCached bool) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if haveCached && cached.Validator != "" {
		req.Header.Set(conditionHeader, cached.Validator)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		observability.ArtifactFetchAttempts.WithLabelValues("error").Inc()
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			observability.ArtifactFetchAttempts.WithLabelValues("error").Inc()
			return FetchResult{}, err
		}
		observability.ArtifactFetchAttempts.WithLabelValues("success").Inc()
		return FetchResult{Body: body, Validator: resp.Header.Get(validatorHeader)}, nil
	case http.StatusNotModified:
		observability.ArtifactFetchAttempts.WithLabelValues("not_modified").Inc()
		return FetchResult{Body: cached.Body, Validator: cached.Validator, NotModified: true}, nil
	default:
		observability.ArtifactFetchAttempts.WithLabelValues("retryable").Inc()
		return FetchResult{}, fmt.Errorf("%d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
}
