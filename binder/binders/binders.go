// Package binders imports all built-in binders for auto-registration.
// Import this package to have every binder type registered with
// binder.DefaultCatalog.
package binders

import (
	// Import all binders for side-effect registration
	_ "github.com/drblury/bindflow/binder/kafka"
	_ "github.com/drblury/bindflow/binder/local"
	_ "github.com/drblury/bindflow/binder/nats"
	_ "github.com/drblury/bindflow/binder/rabbitmq"
)
