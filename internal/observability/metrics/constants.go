// Package metrics provides constants used across metric definitions.
package metrics

// Operation names recorded through the Recorder interface.
const (
	OpPredict            = "predict"
	OpModelLoad          = "model_load"
	OpModelInvoke        = "model_invoke"
	OpFeatureExtract     = "feature_extract"
	OpDatasetLoad        = "dataset_load"
	OpLightcurveGenerate = "lightcurve_generate"
	OpArchiveFetch       = "archive_fetch"
	OpRender             = "render"
	OpDbInsert           = "db_insert"
	OpDbQuery            = "db_query"
	OpDbDelete           = "db_delete"
	OpDbMigrate          = "db_migrate"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Light-curve source label values.
const (
	SourceArchive   = "archive"
	SourceSynthetic = "synthetic"
	SourceCache     = "cache"
	SourceExisting  = "existing"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms starts duration histograms at 1ms.
	BucketStart1ms = 0.001
	// BucketStart100us starts fast-path histograms at 0.1ms.
	BucketStart100us = 0.0001
	// BucketStart100B starts size histograms at 100 bytes.
	BucketStart100B = 100

	BucketFactor2  = 2
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount12 = 12
	BucketCount15 = 15
)
