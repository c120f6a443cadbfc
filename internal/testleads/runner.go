package testleads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/leadscore/pkg/logger"
)

// ErrSmokeFailed reports a run with at least one failed lead.
var ErrSmokeFailed = errors.New("smoke test failed")

// Run checks the service health, submits the configured leads and verifies
// every response.
func Run(ctx context.Context, config *Config, log logger.Logger) (*Stats, error) {
	if log == nil {
		log = logger.Nop()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting lead smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("leads", config.NumLeads),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := checkServiceHealth(ctx, config, log); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	base, err := LoadPayload(config.PayloadFile)
	if err != nil {
		return stats, err
	}
	leads := Generate(base, config.NumLeads, config.LeadPrefix)
	stats.LeadsGenerated = len(leads)

	results := submitLeads(ctx, config, leads, log)
	verifyResults(ctx, config, results, stats, log)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, log)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d leads failed", ErrSmokeFailed, stats.Failed, stats.Submitted)
	}
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config, log logger.Logger) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	log.Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	var successRate, leadsPerSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		leadsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("leadsGenerated", stats.LeadsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("partial", stats.Partial),
		logger.Int("failed", stats.Failed),
		logger.Int("warnings", stats.Warnings),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("leadsPerSecond", leadsPerSecond))
}
