package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-session/session"
)

// Default timeouts and batching parameters.
const (
	defaultPingTimeout   = 5 * time.Second
	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Recorder errors.
var (
	// ErrDisabled is returned by Connect when the config disables
	// telemetry.
	ErrDisabled = errors.New("metrics: influxdb disabled in configuration")

	// ErrConnectionFailed is returned when the InfluxDB server cannot be
	// reached.
	ErrConnectionFailed = errors.New("metrics: influxdb connection failed")
)

// Config contains InfluxDB connection settings.
type Config struct {
	Enabled       bool
	URL           string
	Token         string
	Org           string
	Bucket        string
	BatchSize     int
	FlushInterval time.Duration
}

// InfluxRecorder implements session.Recorder on the InfluxDB v2 write
// API. All writes are batched and asynchronous.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	// session_id tag on every point, distinguishing concurrent sessions
	// writing to one bucket.
	sessionID string
}

// Interface check at compile time.
var _ session.Recorder = (*InfluxRecorder)(nil)

// Connect creates a recorder after verifying InfluxDB connectivity.
//
// sessionID tags every written point; pass the session's publisher
// identity or any stable label.
func Connect(cfg Config, sessionID string) (*InfluxRecorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval.Milliseconds())),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	return &InfluxRecorder{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		sessionID: sessionID,
	}, nil
}

// StatusChanged records a connection lifecycle transition.
func (r *InfluxRecorder) StatusChanged(s session.Status) {
	r.writePoint("session_status", map[string]string{
		"status": s.String(),
	}, 1)
}

// PublishSent counts one outbound publish.
func (r *InfluxRecorder) PublishSent(topic string) {
	r.writePoint("session_publish", map[string]string{
		"topic": topic,
	}, 1)
}

// MessageDelivered counts one inbound message delivered to a
// subscription.
func (r *InfluxRecorder) MessageDelivered(topic string) {
	r.writePoint("session_delivery", map[string]string{
		"topic": topic,
	}, 1)
}

// MessageSuppressed counts one inbound message dropped as a self-echo.
func (r *InfluxRecorder) MessageSuppressed(topic string) {
	r.writePoint("session_suppressed", map[string]string{
		"topic": topic,
	}, 1)
}

func (r *InfluxRecorder) writePoint(measurement string, tags map[string]string, count int64) {
	tags["session_id"] = r.sessionID
	point := write.NewPoint(
		measurement,
		tags,
		map[string]interface{}{"count": count},
		time.Now(),
	)
	r.writeAPI.WritePoint(point)
}

// Close flushes pending points and releases the client.
func (r *InfluxRecorder) Close() {
	r.writeAPI.Flush()
	r.client.Close()
}
