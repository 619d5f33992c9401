// Command sessbox-agent keeps the local session store in sync with the
// remote session server.
//
// It runs a reconciliation cycle at start, on every sync.interval and
// whenever the server becomes reachable again, probing reachability every
// sync.probe_interval. A loopback HTTP endpoint (agent.metrics_addr)
// serves /healthz, /readyz, /metrics, GET /v1/status and POST /v1/sync.
// Editing the configuration file applies a new log.level without a
// restart. SIGINT or SIGTERM shuts the agent down in order.
package main
