/*
Package runtime wires the bindflow building blocks into a Service.

# Architecture Overview

A Service owns a binder registry built from configuration, a destination
resolver over that registry and the sender settings taken from the same
configuration. Producers resolve destination names to channels and forward
sequences into them; consumers subscribe handlers to destinations through the
binder the name selects.

# Package Structure

## Core Service (service.go)

The Service struct ties together:
  - the binder registry (built through a binder.Catalog, or injected)
  - the resolver, with configured dynamic and per-destination properties
  - Prometheus collectors when metrics are enabled
  - sender options derived from the re-subscription settings

# Sub-packages

  - config/: Configuration, validation and viper loading
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for message IDs and anonymous groups
  - jsoncodec/: JSON marshaling on top of sonic
  - logging/: Logger interface and adapters
  - metrics/: Resolver and sender collectors

# Usage Example

	cfg := &bindflow.Config{
		DefaultBinder: "kafka",
		Binders: map[string]bindflow.BinderConfig{
			"kafka": {Type: "kafka", KafkaBrokers: []string{"localhost:9092"}},
			"local": {Type: "local"},
		},
	}

	svc := bindflow.NewService(cfg, logger, ctx, bindflow.ServiceDependencies{})
	defer svc.Close()

	res := bindflow.Send(ctx, svc, "orders", bindflow.FromSlice(orders))
	if err := res.Wait(ctx); err != nil {
		return err
	}
*/
package runtime
