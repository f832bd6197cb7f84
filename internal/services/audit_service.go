package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gabarito/internal/models"
	"gabarito/internal/repositories"

	"go.uber.org/zap"
)

// AuditPublisher records history entries. Publish never fails the caller.
type AuditPublisher interface {
	Publish(ctx context.Context, entry models.AuditEntry)
}

// DirectAuditPublisher appends entries straight to the history collection.
type DirectAuditPublisher struct {
	repo    repositories.AuditRepository
	timeout time.Duration
	logger  *zap.Logger
}

func NewDirectAuditPublisher(repo repositories.AuditRepository, timeout time.Duration, logger *zap.Logger) *DirectAuditPublisher {
	logger, _ = withDefaults(logger, nil)
	return &DirectAuditPublisher{repo: repo, timeout: timeout, logger: logger}
}

func (p *DirectAuditPublisher) Publish(ctx context.Context, entry models.AuditEntry) {
	ctx, cancel := sideEffectContext(ctx, p.timeout)
	defer cancel()
	if err := p.repo.Append(ctx, entry); err != nil {
		p.logger.Warn("Failed to append audit entry",
			zap.String("action", entry.Action), zap.String("subject", entry.Subject), zap.Error(err))
	}
}

// MessagePublisher sends an encoded audit entry to a broker.
type MessagePublisher interface {
	Publish(ctx context.Context, body []byte) error
}

// MessagePublisherFunc adapts a function to MessagePublisher.
type MessagePublisherFunc func(ctx context.Context, body []byte) error

func (f MessagePublisherFunc) Publish(ctx context.Context, body []byte) error { return f(ctx, body) }

// BrokerAuditPublisher serialises entries as JSON for a queue or topic.
// A consumer appends them to the history collection with AuditConsumer.
type BrokerAuditPublisher struct {
	broker  MessagePublisher
	timeout time.Duration
	logger  *zap.Logger
}

func NewBrokerAuditPublisher(broker MessagePublisher, timeout time.Duration, logger *zap.Logger) *BrokerAuditPublisher {
	logger, _ = withDefaults(logger, nil)
	return &BrokerAuditPublisher{broker: broker, timeout: timeout, logger: logger}
}

func (p *BrokerAuditPublisher) Publish(ctx context.Context, entry models.AuditEntry) {
	body, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("Failed to encode audit entry", zap.Error(err))
		return
	}
	ctx, cancel := sideEffectContext(ctx, p.timeout)
	defer cancel()
	if err := p.broker.Publish(ctx, body); err != nil {
		p.logger.Warn("Failed to publish audit entry",
			zap.String("action", entry.Action), zap.String("subject", entry.Subject), zap.Error(err))
	}
}

// AuditConsumer appends entries received from a broker.
type AuditConsumer struct {
	repo    repositories.AuditRepository
	timeout time.Duration
}

func NewAuditConsumer(repo repositories.AuditRepository, timeout time.Duration) *AuditConsumer {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &AuditConsumer{repo: repo, timeout: timeout}
}

// Handle decodes one message body and appends it.
func (c *AuditConsumer) Handle(ctx context.Context, body []byte) error {
	var entry models.AuditEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return fmt.Errorf("failed to decode audit entry: %w", err)
	}
	if entry.Action == "" {
		return fmt.Errorf("audit entry has no action")
	}
	entry.ID = ""

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// sideEffectContext detaches from the request so a finished response does not
// cancel the write, then applies the side-effect timeout.
func sideEffectContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
