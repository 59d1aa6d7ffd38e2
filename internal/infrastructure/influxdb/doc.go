// Package influxdb provides InfluxDB connectivity for accounthub.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Authentication event rates (logins, failures, registrations)
//   - One-time token flow outcomes (issued, consumed, expired)
//   - HTTP request latency per route
//
// # Usage
//
//	cfg := config.MetricsConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "accounthub",
//	    Bucket: "auth_metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent("login", "success")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config settings (batch_size, flush_interval)
// so a burst of login traffic never blocks request handling on the metrics
// backend.
package influxdb
