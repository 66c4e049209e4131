package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/northwind-service/internal/events"
)

// AuditService writes authentication events to the log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleTokenRefreshed)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", zap.String("event_id", event.ID), zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("LoginFailed", zap.String("event_id", event.ID), zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleTokenRefreshed(_ context.Context, event events.Event) error {
	a.logger.Info("TokenRefreshed", zap.String("event_id", event.ID), zap.String("subject", event.Subject), zap.Any("payload", event.Payload))
	return nil
}
