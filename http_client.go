package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

func newHTTPClient(cfg Config) *http.Client {
	timeout := defaultHTTPTimeout
	if cfg.HTTPTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET with a JSON Accept header, retrying transport
// errors and 5xx responses with a short delay. 4xx responses fail
// immediately, retrying those never helps.
func getJSON(client *http.Client, url string, retries int, delay time.Duration) ([]byte, error) {
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		req, err := http.NewRequest("GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("executing request: %w", err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("reading response: %w", readErr)
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
			case resp.StatusCode != 200:
				return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
			default:
				return body, nil
			}
		}

		if attempt < retries {
			log.Printf("GET %s failed (attempt %d/%d): %v, retrying in %s", url, attempt, retries, lastErr, delay)
			time.Sleep(delay)
		}
	}
	return nil, lastErr
}
