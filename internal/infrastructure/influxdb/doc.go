// Package influxdb records Gray Hearth telemetry in InfluxDB v2.
//
// Two measurements are written:
//
//	cook_events   one point per completed, burnt or ejected slot
//	stove_state   periodic gauges: lit, occupied slots, mean progress
//
// Writes are non-blocking and batched according to the influxdb section of
// config.yaml (batch_size, flush_interval). Asynchronous failures are
// reported through SetOnError; connection and health check errors are
// returned directly. A disconnected or zero Client silently drops writes,
// so callers need not guard every call.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, influxdb.WithSite(cfg.Site.ID))
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	defer client.Close()
//
//	client.WriteStoveState("stv-1a2b3c4d", true, 3, 0.42)
package influxdb
