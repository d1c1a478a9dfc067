package service

import (
	"context"
	"time"
)

// runCountdown llama a Tick en cada intervalo hasta que termine la vida del desafio.
func (c *Challenge) runCountdown(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}
