package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/cache"
	"github.com/tonearm/tonearm/cfg"
	"github.com/tonearm/tonearm/notify"
	"github.com/tonearm/tonearm/protocol"
	"github.com/tonearm/tonearm/telemetry"
)

// DefaultCommandQueue bounds the number of commands waiting for the
// connection. Callers beyond it block in submit until a slot frees.
const DefaultCommandQueue = 32

// Options configures a persistent client
type Options struct {
	ConnectTimeout        time.Duration
	CommandTimeout        time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMultiplier   float64
	ReconnectMaxDelay     time.Duration
	SubscriberBuffer      int
	CommandQueue          int
	CacheSize             int // 0 disables the response cache

	// Hub routes this client's notifications into a shared hub instead
	// of a private one. Used by the multi-host client.
	Hub *notify.Hub
}

// DefaultOptions returns options derived from the loaded configuration
func DefaultOptions() Options {
	opts := Options{
		ConnectTimeout:        cfg.ConnectTimeout(),
		CommandTimeout:        cfg.CommandTimeout(),
		ReconnectInitialDelay: cfg.InitialReconnectDelay(),
		ReconnectMultiplier:   cfg.Config.Reconnect.Multiplier,
		ReconnectMaxDelay:     cfg.MaxReconnectDelay(),
		SubscriberBuffer:      cfg.Config.SubscriberBuffer,
		CommandQueue:          DefaultCommandQueue,
	}
	if cfg.Config.Cache.Enabled {
		opts.CacheSize = cfg.Config.Cache.Size
	}
	return opts
}

func (o *Options) applyDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 5 * time.Second
	}
	if o.ReconnectInitialDelay <= 0 {
		o.ReconnectInitialDelay = 500 * time.Millisecond
	}
	if o.ReconnectMultiplier < 1.0 {
		o.ReconnectMultiplier = 2.0
	}
	if o.ReconnectMaxDelay < o.ReconnectInitialDelay {
		o.ReconnectMaxDelay = 30 * time.Second
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = notify.DefaultBufferSize
	}
	if o.CommandQueue <= 0 {
		o.CommandQueue = DefaultCommandQueue
	}
}

// PersistentClient keeps one logical session to a single host alive:
// it reconnects automatically, listens for change notifications while
// no command is running, and serializes concurrent command callers
// onto the one physical connection.
type PersistentClient struct {
	host string
	opts Options

	state    *clientState
	hub      *notify.Hub
	ownHub   bool
	super    *supervisor
	arbiter  *arbiter
	respCach *cache.ResponseCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
	stopped atomic.Bool
	log     zerolog.Logger
}

// NewPersistentClient creates a client for one host. Call Start to
// begin connecting.
func NewPersistentClient(host string, opts Options) (*PersistentClient, error) {
	opts.applyDefaults()

	hub := opts.Hub
	ownHub := false
	if hub == nil {
		hub = notify.NewHub(opts.SubscriberBuffer)
		ownHub = true
	}

	clientLog := log.With().Str("host", host).Logger()

	var respCache *cache.ResponseCache
	if opts.CacheSize > 0 {
		var err error
		respCache, err = cache.New(opts.CacheSize, hub, host)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := newClientState()

	return &PersistentClient{
		host:     host,
		opts:     opts,
		state:    state,
		hub:      hub,
		ownHub:   ownHub,
		super:    newSupervisor(host, opts, clientLog),
		arbiter:  newArbiter(host, state, hub, opts.CommandQueue, clientLog),
		respCach: respCache,
		ctx:      ctx,
		cancel:   cancel,
		log:      clientLog,
	}, nil
}

// Start launches the background supervision loop. It returns once the
// first connection attempt has been dispatched; connectivity itself is
// eventually consistent.
func (c *PersistentClient) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	c.wg.Add(1)
	go c.run()
}

func (c *PersistentClient) run() {
	defer c.wg.Done()

	for {
		conn, err := c.super.acquire(c.ctx)
		if err != nil {
			return // Shutdown requested
		}

		c.state.setConnected(conn)
		telemetry.ConnectedHosts.With(c.host).Set(1)

		runErr := c.arbiter.run(c.ctx, conn)

		conn.Close()
		c.state.setDisconnected()
		telemetry.ConnectedHosts.With(c.host).Set(0)

		if c.ctx.Err() != nil {
			return
		}

		telemetry.ReconnectsTotal.With(c.host).Inc()
		c.log.Warn().Err(runErr).Msg("Lost connection, reconnecting")
	}
}

// Stop halts background activity, closes the connection, and releases
// all subscriber channels; each subscriber observes end-of-stream.
// Pending commands fail with ErrStopped.
func (c *PersistentClient) Stop() {
	if !c.stopped.CompareAndSwap(false, true) {
		return
	}

	c.cancel()
	c.wg.Wait()
	c.arbiter.drainPending()

	if c.respCach != nil {
		c.respCach.Close()
	}
	if c.ownHub {
		c.hub.CloseAll()
	}

	c.log.Info().Msg("Client stopped")
}

// Command executes one request with exclusive connection access.
// Callers are served strictly in arrival order. The call is bounded by
// the command timeout; it never hangs indefinitely.
func (c *PersistentClient) Command(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	if c.stopped.Load() {
		return nil, ErrStopped
	}

	if c.respCach != nil {
		if resp, ok := c.respCach.Get(cmd); ok {
			return resp, nil
		}
	}

	cmdCtx := ctx
	if c.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	// Never execute against an absent connection: wait for the
	// supervisor to deliver one, bounded by the command deadline.
	if err := c.state.waitConnected(cmdCtx); err != nil {
		telemetry.CommandsTotal.With("timeout").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrNotConnected
	}

	fut, err := c.arbiter.submit(cmdCtx, cmd)
	if err != nil {
		telemetry.CommandsTotal.With("timeout").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}

	done := make(chan struct{})
	var resp *protocol.Response
	var cmdErr error
	go func() {
		resp, cmdErr = fut.Get()
		close(done)
	}()

	select {
	case <-done:
		if cmdErr != nil {
			return nil, cmdErr
		}
		if c.respCach != nil {
			c.respCach.Put(cmd, resp)
		}
		return resp, nil
	case <-cmdCtx.Done():
		// The arbiter observes the expired request context and skips
		// it, so an abandoned wait never wedges the mode machine.
		telemetry.CommandsTotal.With("timeout").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTimeout
	}
}

// Subscribe registers a notification listener. The returned channel is
// bounded; see notify.Hub for the saturation policy. The cancel
// function is idempotent.
func (c *PersistentClient) Subscribe(filter notify.Filter) (<-chan notify.Event, func(), error) {
	return c.hub.Subscribe(filter)
}

// Host returns the configured host address
func (c *PersistentClient) Host() string {
	return c.host
}

// IsConnected reports whether a live connection exists right now
func (c *PersistentClient) IsConnected() bool {
	return c.state.isConnected()
}

// Version returns the server protocol version from the last
// established connection, or "" before the first connect.
func (c *PersistentClient) Version() string {
	return c.state.serverVersion()
}

// WaitForConnection blocks until the client is connected or ctx
// expires. Resolves immediately when already connected.
func (c *PersistentClient) WaitForConnection(ctx context.Context) error {
	return c.state.waitConnected(ctx)
}

// Status runs the status command and parses the reply
func (c *PersistentClient) Status(ctx context.Context) (*Status, error) {
	resp, err := c.Command(ctx, protocol.NewCommand("status"))
	if err != nil {
		return nil, err
	}
	return parseStatus(resp), nil
}

// CurrentSong runs the currentsong command and parses the reply.
// Returns nil without error when nothing is queued.
func (c *PersistentClient) CurrentSong(ctx context.Context) (*Song, error) {
	resp, err := c.Command(ctx, protocol.NewCommand("currentsong"))
	if err != nil {
		return nil, err
	}
	return parseSong(resp), nil
}
