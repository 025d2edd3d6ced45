// Package headtracker maintains a live view of the chain head via a
// WebSocket subscription, falling back to HTTP polling when the socket
// can't be kept open.
package headtracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashbot/business/registry/domain"
	"github.com/fd1az/flashbot/internal/apperror"
	"github.com/fd1az/flashbot/internal/circuitbreaker"
	"github.com/fd1az/flashbot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashbot/business/registry/infra/headtracker"
	meterName  = "github.com/fd1az/flashbot/business/registry/infra/headtracker"
)

// Config holds connection parameters for the Tracker.
type Config struct {
	WSURL          string
	HTTPURL        string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	BufferSize     int
}

// DefaultConfig returns sensible defaults, matching the chain's expected
// ~block-time polling cadence when the WS fallback is in use.
func DefaultConfig(wsURL, httpURL string) Config {
	return Config{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   2 * time.Second,
		ReconnectDelay: 3 * time.Second,
		BufferSize:     16,
	}
}

type trackerMetrics struct {
	blocksReceived   metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	httpFallbackUsed metric.Int64Counter
}

// Tracker implements app.HeadTracker against a live EVM node.
type Tracker struct {
	config Config
	logger logger.LoggerInterface

	wsClient   *ethclient.Client
	httpClient *ethclient.Client
	clientMu   sync.RWMutex

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	usingHTTP  atomic.Bool
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	blocks  chan *domain.HeadBlock
	done    chan struct{}
	closeMu sync.Mutex
	closed  atomic.Bool

	wsCB   *circuitbreaker.CircuitBreaker[*types.Header]
	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *trackerMetrics
}

// NewTracker constructs a head tracker; it does not connect until Subscribe
// or LatestBlock is called.
func NewTracker(cfg Config, log logger.LoggerInterface) (*Tracker, error) {
	t := &Tracker{
		config: cfg,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.HeadBlock, cfg.BufferSize),
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("headtracker: init metrics: %w", err)
	}
	t.initCircuitBreakers()

	return t, nil
}

func (t *Tracker) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	t.metrics = &trackerMetrics{}

	if t.metrics.blocksReceived, err = meter.Int64Counter(
		"head_tracker_blocks_received_total",
		metric.WithDescription("Total chain heads received"),
		metric.WithUnit("{block}"),
	); err != nil {
		return err
	}
	if t.metrics.subscribeErrors, err = meter.Int64Counter(
		"head_tracker_subscribe_errors_total",
		metric.WithDescription("Total head subscription errors"),
	); err != nil {
		return err
	}
	if t.metrics.connectionState, err = meter.Int64Gauge(
		"head_tracker_connection_state",
		metric.WithDescription("0=disconnected 1=connecting 2=connected 3=reconnecting"),
	); err != nil {
		return err
	}
	if t.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"head_tracker_http_fallback_total",
		metric.WithDescription("Times HTTP polling fallback was engaged"),
	); err != nil {
		return err
	}
	return nil
}

func (t *Tracker) initCircuitBreakers() {
	wsCfg := circuitbreaker.DefaultConfig("head-tracker-ws")
	wsCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		t.logger.Info(context.Background(), "circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	}
	t.wsCB = circuitbreaker.New[*types.Header](wsCfg)

	httpCfg := circuitbreaker.DefaultConfig("head-tracker-http")
	httpCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		t.logger.Info(context.Background(), "circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	}
	t.httpCB = circuitbreaker.New[*types.Header](httpCfg)
}

// Subscribe connects and returns a channel of observed heads. The tracker
// keeps its internal head-block cache current regardless of whether the
// caller drains the channel.
func (t *Tracker) Subscribe(ctx context.Context) (<-chan *domain.HeadBlock, error) {
	ctx, span := t.tracer.Start(ctx, "headtracker.subscribe",
		trace.WithAttributes(attribute.String("ws_url", t.config.WSURL)))
	defer span.End()

	if t.closed.Load() {
		return nil, errors.New("headtracker: closed")
	}

	t.setState(domain.StateConnecting)

	if err := t.connectWS(ctx); err != nil {
		t.logger.Warn(ctx, "head tracker ws connect failed, trying http fallback", "error", err)
		if err := t.connectHTTP(ctx); err != nil {
			span.SetStatus(codes.Error, "both connections failed")
			t.setState(domain.StateDisconnected)
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("head tracker failed to connect via ws and http"))
		}
		t.usingHTTP.Store(true)
		go t.runHTTPPoller(ctx)
	} else {
		go t.runWSSubscription(ctx)
	}

	t.setState(domain.StateConnected)
	return t.blocks, nil
}

func (t *Tracker) connectWS(ctx context.Context) error {
	if t.config.WSURL == "" {
		return errors.New("ws url not configured")
	}
	client, err := ethclient.DialContext(ctx, t.config.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}
	t.clientMu.Lock()
	t.wsClient = client
	t.clientMu.Unlock()
	return nil
}

func (t *Tracker) connectHTTP(ctx context.Context) error {
	if t.config.HTTPURL == "" {
		return errors.New("http url not configured")
	}
	client, err := ethclient.DialContext(ctx, t.config.HTTPURL)
	if err != nil {
		return fmt.Errorf("dial http: %w", err)
	}
	t.clientMu.Lock()
	t.httpClient = client
	t.clientMu.Unlock()
	return nil
}

func (t *Tracker) runWSSubscription(ctx context.Context) {
	headers := make(chan *types.Header, t.config.BufferSize)

	t.clientMu.RLock()
	client := t.wsClient
	t.clientMu.RUnlock()
	if client == nil {
		t.handleWSDisconnect(ctx)
		return
	}

	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		t.metrics.subscribeErrors.Add(ctx, 1)
		t.handleWSDisconnect(ctx)
		return
	}

	for {
		select {
		case <-t.done:
			sub.Unsubscribe()
			return
		case <-ctx.Done():
			sub.Unsubscribe()
			return
		case err := <-sub.Err():
			if err != nil {
				t.metrics.subscribeErrors.Add(ctx, 1)
			}
			t.handleWSDisconnect(ctx)
			return
		case header := <-headers:
			if header != nil {
				t.processHeader(ctx, header)
			}
		}
	}
}

func (t *Tracker) handleWSDisconnect(ctx context.Context) {
	if t.closed.Load() {
		return
	}
	t.setState(domain.StateReconnecting)
	t.reconnects.Add(1)

	time.Sleep(t.config.ReconnectDelay)
	if t.closed.Load() {
		return
	}

	if err := t.connectWS(ctx); err != nil {
		if t.httpClient == nil {
			if err := t.connectHTTP(ctx); err != nil {
				t.setState(domain.StateDisconnected)
				return
			}
		}
		t.usingHTTP.Store(true)
		t.metrics.httpFallbackUsed.Add(ctx, 1)
		t.setState(domain.StateConnected)
		go t.runHTTPPoller(ctx)
		return
	}

	t.usingHTTP.Store(false)
	t.setState(domain.StateConnected)
	go t.runWSSubscription(ctx)
}

func (t *Tracker) runHTTPPoller(ctx context.Context) {
	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollLatestBlock(ctx)
		}
	}
}

func (t *Tracker) pollLatestBlock(ctx context.Context) {
	t.clientMu.RLock()
	client := t.httpClient
	t.clientMu.RUnlock()
	if client == nil {
		return
	}

	header, err := t.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		t.metrics.subscribeErrors.Add(ctx, 1)
		return
	}
	if header.Number.Uint64() <= t.lastBlock.Load() {
		return
	}
	t.processHeader(ctx, header)
}

func (t *Tracker) processHeader(ctx context.Context, header *types.Header) {
	block := headerToHeadBlock(header)
	t.lastBlock.Store(block.Number)

	select {
	case t.blocks <- block:
		t.metrics.blocksReceived.Add(ctx, 1)
	default:
		t.logger.Warn(ctx, "head tracker buffer full, dropping head", "number", block.Number)
	}
}

func headerToHeadBlock(header *types.Header) *domain.HeadBlock {
	return &domain.HeadBlock{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0),
		BaseFee:    header.BaseFee,
	}
}

// LatestBlock fetches the head synchronously, used at startup before the
// first push has arrived.
func (t *Tracker) LatestBlock(ctx context.Context) (*domain.HeadBlock, error) {
	t.clientMu.RLock()
	wsClient := t.wsClient
	httpClient := t.httpClient
	t.clientMu.RUnlock()

	var header *types.Header
	var err error

	if wsClient != nil && !t.usingHTTP.Load() {
		header, err = t.wsCB.Execute(func() (*types.Header, error) {
			return wsClient.HeaderByNumber(ctx, nil)
		})
	}
	if header == nil && httpClient != nil {
		header, err = t.httpCB.Execute(func() (*types.Header, error) {
			return httpClient.HeaderByNumber(ctx, nil)
		})
	}
	if err != nil {
		return nil, apperror.New(apperror.CodeBlockNotFound, apperror.WithCause(err))
	}
	if header == nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}

	block := headerToHeadBlock(header)
	t.lastBlock.Store(block.Number)
	return block, nil
}

// BlockNumber returns the last cached head, 0 if none observed yet.
func (t *Tracker) BlockNumber() uint64 { return t.lastBlock.Load() }

// State returns the current connection state.
func (t *Tracker) State() domain.ConnectionState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.state
}

// Close releases both clients and stops background goroutines.
func (t *Tracker) Close() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed.Load() {
		return nil
	}
	t.closed.Store(true)
	close(t.done)

	t.clientMu.Lock()
	if t.wsClient != nil {
		t.wsClient.Close()
		t.wsClient = nil
	}
	if t.httpClient != nil {
		t.httpClient.Close()
		t.httpClient = nil
	}
	t.clientMu.Unlock()

	close(t.blocks)
	t.setState(domain.StateDisconnected)
	return nil
}

func (t *Tracker) setState(state domain.ConnectionState) {
	t.stateMu.Lock()
	t.state = state
	t.stateMu.Unlock()
	t.metrics.connectionState.Record(context.Background(), int64(state))
}
