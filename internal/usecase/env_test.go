package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
)

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memStore
	events   *recordedEvents
	sessions *sessionUsecase
	messages *messageUsecase
	visitors *visitorUsecase
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{JWTSecret: "secret", TokenTTL: 24 * time.Hour, BcryptCost: 4},
		Chat: config.ChatConfig{VisitorNameTemplate: "Visitor {{ suffix 4 .VisitorID }}"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	events := &recordedEvents{}
	namer, err := NewVisitorNamer(testConfig())
	require.NoError(t, err)
	clock := fixedClock(testStart, time.Second)

	sessions, err := NewSessionUsecase(testConfig(),
		fakeSessionRepo{store}, fakeMessageRepo{store}, fakeVisitorRepo{store}, namer, events)
	require.NoError(t, err)
	su := sessions.(*sessionUsecase)
	su.now = clock

	mu := NewMessageUsecase(fakeMessageRepo{store}, fakeSessionRepo{store}, fakeVisitorRepo{store}, allowAll{}, events).(*messageUsecase)
	mu.now = clock

	vu := NewVisitorUsecase(fakeVisitorRepo{store}, fakeSessionRepo{store}, fakeMessageRepo{store}, namer, events).(*visitorUsecase)
	vu.now = clock

	return &testEnv{store: store, events: events, sessions: su, messages: mu, visitors: vu}
}

func (e *testEnv) visitor(t *testing.T, externalID string) *models.Visitor {
	t.Helper()
	v, err := e.visitors.Upsert(context.Background(), models.UpsertVisitorRequest{VisitorID: externalID})
	require.NoError(t, err)
	return v
}
