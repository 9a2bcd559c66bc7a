package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/entryledger/internal/adapter/http/middleware"
	"github.com/iho/entryledger/internal/adapter/repository/memory"
	redisRepo "github.com/iho/entryledger/internal/adapter/repository/redis"
	"github.com/iho/entryledger/internal/infrastructure/config"
	"github.com/iho/entryledger/internal/infrastructure/eventpublisher"
	"github.com/iho/entryledger/internal/usecase"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:    config.StoreMemory,
		EventBroker:    config.BrokerLog,
		AccountLock:    config.LockMemory,
		AccountLockTTL: 5 * time.Second,
		PublishTimeout: time.Second,
		RateLimitBurst: 20,
	}
}

func TestNewApp_MemoryStoreServesRequests(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/", strings.NewReader(`{"name":"Alice","initialBalance":100}`))
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entryledger_operations_total")
}

func TestNewApp_RedisLockAndBroker(t *testing.T) {
	s := miniredis.RunT(t)

	cfg := memoryConfig()
	cfg.RedisURL = fmt.Sprintf("redis://%s", s.Addr())
	cfg.EventBroker = config.BrokerRedis
	cfg.AccountLock = config.LockRedis
	cfg.RateLimitRPS = 100

	a, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer a.close()

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestNewApp_UnreachableRedisFails(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	cfg := memoryConfig()
	cfg.RedisURL = fmt.Sprintf("redis://%s", addr)
	cfg.AccountLock = config.LockRedis

	_, err := newApp(context.Background(), cfg, zerolog.Nop(), prometheus.NewRegistry())
	assert.Error(t, err)
}

func TestNewLocker(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: miniredis.RunT(t).Addr()})
	defer client.Close()

	cfg := memoryConfig()
	assert.IsType(t, &memory.Locker{}, newLocker(cfg, nil, zerolog.Nop()))

	cfg.AccountLock = config.LockNone
	assert.IsType(t, usecase.NoopLocker{}, newLocker(cfg, nil, zerolog.Nop()))

	cfg.AccountLock = config.LockRedis
	assert.IsType(t, &redisRepo.Locker{}, newLocker(cfg, client, zerolog.Nop()))
}

func TestNewBroker(t *testing.T) {
	a := &app{}
	defer a.close()

	cfg := memoryConfig()
	p, err := newBroker(cfg, zerolog.Nop(), nil, a)
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.LogPublisher{}, p)

	cfg.EventBroker = config.BrokerKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	p, err = newBroker(cfg, zerolog.Nop(), nil, a)
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.KafkaPublisher{}, p)
	assert.Len(t, a.closers, 1)
}

func TestCleanupLimitersStopsWithContext(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cleanupLimiters(ctx, rl, time.Millisecond)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

type recordingBroker struct {
	topics chan string
}

func (b *recordingBroker) Publish(_ context.Context, topic string, _ []byte) error {
	b.topics <- topic
	return nil
}

func TestStartDispatcherFlushesOnStop(t *testing.T) {
	broker := &recordingBroker{topics: make(chan string, 2)}
	d := eventpublisher.NewDispatcher(broker, eventpublisher.DispatcherConfig{Logger: zerolog.Nop()})

	stop := startDispatcher(d)
	require.NoError(t, d.Publish(context.Background(), "a", nil))
	require.NoError(t, d.Publish(context.Background(), "b", nil))
	stop()

	assert.Zero(t, d.Pending())
	assert.Len(t, broker.topics, 2)
}

func TestAppCloseRunsInReverseOrder(t *testing.T) {
	var order []int
	a := &app{closers: []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}}

	a.close()

	assert.Equal(t, []int{2, 1}, order)
}
