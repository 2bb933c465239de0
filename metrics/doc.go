// Package metrics records session telemetry to InfluxDB.
//
// The Influx recorder implements session.Recorder: status transitions,
// publishes, deliveries and echo suppressions become measurement points.
// Writes are batched and non-blocking, so recording never slows the
// publish or delivery path. Sessions without telemetry simply leave the
// recorder unset.
package metrics
