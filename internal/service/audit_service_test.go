package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockSink) Close() error {
	return m.Called().Error(0)
}

func TestAuditService_ForwardsEveryLifecycleEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.New(core))
	sink := new(mockSink)
	sink.On("Send", mock.Anything, mock.Anything).Return(nil)

	NewAuditService(dispatcher, sink, zap.New(core)).RegisterHandlers()

	user := &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, et := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserLoggedIn,
		events.EventAccessTokenRefreshed,
		events.EventRefreshTokenExpired,
		events.EventUserLoggedOut,
	} {
		dispatcher.Publish(context.Background(), events.NewEvent(et, user, at))
	}

	sink.AssertNumberOfCalls(t, "Send", 5)
	assert.Equal(t, 5, logs.FilterMessage("auth event").Len())
}

func TestAuditService_SinkFailureDoesNotReachPublisher(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.New(core))
	sink := new(mockSink)
	sink.On("Send", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	NewAuditService(dispatcher, sink, zap.NewNop()).RegisterHandlers()

	assert.NotPanics(t, func() {
		dispatcher.Publish(context.Background(), events.NewEvent(events.EventUserLoggedIn, &domain.User{ID: "u1"}, time.Now()))
	})
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestAuditService_NoSink(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewAuditService(dispatcher, nil, zap.NewNop()).RegisterHandlers()

	assert.NotPanics(t, func() {
		dispatcher.Publish(context.Background(), events.NewEvent(events.EventUserLoggedOut, &domain.User{ID: "u1"}, time.Now()))
	})
}
