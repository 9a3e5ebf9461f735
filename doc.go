// Package bindflow resolves destination names to message channels at runtime
// and binds them to messaging infrastructure on first use.
//
// A destination is either a statically declared channel or a name that is
// created on demand, bound as a producer through a Binder and cached. The
// binder is selected by an optional "#configurationName" suffix, so
// "orders#kafka" binds "orders" through the binder configured as "kafka",
// while "orders" uses the default binder. Binders are built from Config
// through a catalog of binder types.
//
// # Binders
//
// Bindflow supports four binder types out of the box:
//   - local: in-process Watermill GoChannel, ordered and synchronous
//   - nats: core NATS with queue groups per consumer group
//   - kafka: consumer groups and partition keys
//   - rabbitmq: durable AMQP queues, one per consumer group
//
// Every distinct consumer group receives every message published to a
// destination; members of one group share the load round-robin. An empty group
// is replaced with a unique anonymous one.
//
// # Senders
//
// A Sender forwards the items of an iter.Seq2 to a channel. When the sequence
// reports an error it is ranged over again under a bounded exponential
// backoff. Items the channel rejects are logged and skipped. The returned
// Result completes once, when the sequence ends, when retries are exhausted,
// when the context is cancelled or when the destination is unbound.
//
// # Observability
//
// The resolver and senders log through ServiceLogger, which has slog and
// Watermill adapters, export Prometheus collectors under the bindflow namespace
// and wrap every dynamic bind in an OpenTelemetry span.
package bindflow
