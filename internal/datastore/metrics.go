package datastore

import (
	"github.com/tphakala/exoplanet-go/internal/observability/metrics"
)

// Metrics is the datastore's view of the observability metrics
type Metrics = metrics.DatastoreMetrics
