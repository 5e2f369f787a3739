package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/fimp2ha/internal/infrastructure/config"
)

const (
	startupPing = 10 * time.Second
	healthPing  = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// pointWriter is the slice of api.WriteAPI the client needs.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client records request and discovery telemetry. Writes are batched and
// never block the caller. Safe for concurrent use.
type Client struct {
	conn   influxdb2.Client
	writer pointWriter
	bridge string

	open atomic.Bool

	errMu   sync.Mutex
	onError func(err error)
}

func newClient(conn influxdb2.Client, w pointWriter, bridge string) *Client {
	c := &Client{conn: conn, writer: w, bridge: bridge}
	c.open.Store(true)
	return c
}

// Connect pings the server and opens the batched write API for
// cfg.Org/cfg.Bucket. Points are tagged bridge=bridgeID.
func Connect(cfg config.InfluxDBConfig, bridgeID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := uint(fallbackBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize) // #nosec G115 -- checked positive
	}
	flush := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds())) // #nosec G115 -- positive
	conn := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), startupPing)
	defer cancel()
	if err := ping(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	api := conn.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(conn, api, bridgeID)
	go c.forwardErrors(api.Errors())
	return c, nil
}

func ping(ctx context.Context, conn influxdb2.Client) error {
	ok, err := conn.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("ping reported unhealthy")
	}
	return nil
}

func (c *Client) forwardErrors(ch <-chan error) {
	for err := range ch {
		c.errMu.Lock()
		fn := c.onError
		c.errMu.Unlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError receives failures of background batch writes.
func (c *Client) SetOnError(fn func(err error)) {
	c.errMu.Lock()
	c.onError = fn
	c.errMu.Unlock()
}

// Close flushes buffered points once and releases the connection.
// Calling it on a nil or closed client is a no-op.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.open.CompareAndSwap(true, false) && c.writer != nil {
		c.writer.Flush()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.conn == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, healthPing)
	defer cancel()
	if err := ping(ctx, c.conn); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected is false for a nil or closed client.
func (c *Client) IsConnected() bool {
	return c != nil && c.open.Load()
}

// Flush pushes buffered points now.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writer.Flush()
	}
}

func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if c.bridge != "" {
		tags["bridge"] = c.bridge
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
