// Package catalog defines the registry of upstream market data sources.
//
// A DataSource describes a feed (price ticks, news, sentiment, on-chain
// events) that tenants can stream from. The stream manager resolves a
// source through the Lookup interface during admission; only enabled
// sources admit new streams.
//
// Two implementations are provided: Memory for tests and single-node
// deployments, and Store backed by NATS JetStream KV for shared state.
package catalog
