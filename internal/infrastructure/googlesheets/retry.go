package googlesheets

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/googleapi"

	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

// Razones de cuota que el API devuelve con 403.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
}

// RateLimited indica si err es un rechazo por límite de cuota del API.
func RateLimited(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	if apiErr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range apiErr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}

// withRetry ejecuta op reintentando con backoff exponencial solo ante límites de cuota.
// Cualquier otro error (5xx, red, permisos) se devuelve sin reintentar.
func (c *Client) withRetry(ctx context.Context, operation string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBase
	b.MaxInterval = 32 * time.Second
	b.Multiplier = 2

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if !RateLimited(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.StoreRetriesTotal.WithLabelValues(driverName, operation).Inc()
			c.log.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).
				Dur("wait", wait).Msg("sheets: límite de cuota, reintentando")
		}),
	)
	return err
}
