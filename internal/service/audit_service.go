package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// AuditService records auth lifecycle events and forwards them to a sink.
type AuditService struct {
	dispatcher events.Dispatcher
	sink       events.Sink
	logger     *zap.Logger
}

// NewAuditService creates the service. sink may be nil.
func NewAuditService(dispatcher events.Dispatcher, sink events.Sink, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handle)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handle)
	a.dispatcher.Subscribe(events.EventAccessTokenRefreshed, a.handle)
	a.dispatcher.Subscribe(events.EventRefreshTokenExpired, a.handle)
	a.dispatcher.Subscribe(events.EventUserLoggedOut, a.handle)
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	a.logger.Info("auth event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("username", event.Username))

	if a.sink == nil {
		return nil
	}
	return a.sink.Send(ctx, event)
}
