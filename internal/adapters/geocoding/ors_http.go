package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"last-mile-planner/internal/domain"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (g *ORSGeocoder) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", g.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// do sends one request after waiting for the rate limiter. Non-2xx
// responses come back as *httpStatusError with the body drained.
func (g *ORSGeocoder) do(req *http.Request) (*http.Response, error) {
	if err := g.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// classify maps a transport failure onto the geocoder error contract.
// Retries are the resolver's business; the adapter only labels the failure.
func classify(address string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var he *httpStatusError
	if errors.As(err, &he) {
		switch {
		case he.Code == http.StatusNotFound:
			return domain.Wrap(domain.CodeNotFound, err, "geocode %q", address)
		case he.Code == http.StatusTooManyRequests, he.Code >= 500:
			return domain.Wrap(domain.CodeProviderDown, err, "geocode %q", address)
		default:
			e := domain.Wrap(domain.CodeProviderDown, err, "geocode %q: request rejected", address)
			e.Retryable = false
			return e
		}
	}

	// Network errors and anything else unexpected are transient.
	return domain.Wrap(domain.CodeProviderDown, err, "geocode %q", address)
}
