package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPPoster POSTs a fixed JSON payload. Any 2xx response is success.
type HTTPPoster struct {
	url     string
	payload []byte
	client  *http.Client
}

func NewHTTPPoster(url, payload string, timeout time.Duration) (*HTTPPoster, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("notify: http url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPoster{
		url:     url,
		payload: []byte(payload),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (p *HTTPPoster) Name() string { return "http" }

func (p *HTTPPoster) Alert(ctx context.Context, _ Alert) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(p.payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post %s: status %d", p.url, resp.StatusCode)
	}
	return nil
}
