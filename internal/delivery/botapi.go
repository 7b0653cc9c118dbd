package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kurir/internal/config"
	"kurir/internal/logger"
	pkgerrors "kurir/pkg/errors"
	"kurir/pkg/metrics"
)

type botMessage struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// BotAPIDeliverer posts rendered messages to the chat-bot gateway API.
type BotAPIDeliverer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logger.Logger
}

func NewBotAPIDeliverer(cfg config.DeliveryConfig, log logger.Logger) *BotAPIDeliverer {
	return &BotAPIDeliverer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

func (d *BotAPIDeliverer) Deliver(ctx context.Context, targetBot, text string) error {
	body, err := json.Marshal(botMessage{Target: targetBot, Text: text})
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrDelivery)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrDelivery)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		metrics.ObserveDeliveryDuration(time.Since(start), "error")
		return pkgerrors.ErrDelivery.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveDeliveryDuration(time.Since(start), "error")
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.ErrDelivery.
			WithDetail("message", fmt.Sprintf("bot API returned status %d: %s", resp.StatusCode, string(detail)))
	}

	metrics.ObserveDeliveryDuration(time.Since(start), "ok")
	d.logger.DebugwCtx(ctx, "Message delivered",
		"target_bot", targetBot,
	)
	return nil
}
