package testleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/leadscore/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// submitLeads posts leads concurrently using a worker pool and returns one
// result per lead in input order.
func submitLeads(ctx context.Context, config *Config, leads []map[string]any, log logger.Logger) []Result {
	log.Info(ctx, "submitting leads", logger.Int("leads", len(leads)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/process-lead"
	results := make([]Result, len(leads))

	var done atomic.Int64
	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = submitSingleLead(ctx, client, url, leads[i])
				n := done.Add(1)
				if config.Verbose {
					log.Info(ctx, "lead submitted",
						logger.String("lead_id", results[i].LeadID),
						logger.Int("status", results[i].Status),
						logger.Int("done", int(n)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range leads {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	for i := range results {
		if results[i].Status == 0 && results[i].Err == nil {
			results[i] = Result{LeadID: leadID(leads[i]), Err: ctx.Err()}
		}
	}
	return results
}

// submitSingleLead posts one lead and decodes the reply.
func submitSingleLead(ctx context.Context, client *HTTPClient, url string, lead map[string]any) Result {
	res := Result{LeadID: leadID(lead)}
	resp, err := client.Post(ctx, url, lead)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = fmt.Errorf("read response: %w", err)
		return res
	}
	if err := json.Unmarshal(body, &res.Response); err != nil {
		res.Err = fmt.Errorf("decode response: %w", err)
	}
	return res
}

func leadID(lead map[string]any) string {
	id, _ := lead["Lead_ID"].(string)
	return id
}
