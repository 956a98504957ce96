package metrics

// Recorder is the minimal metrics surface components depend on.
type Recorder interface {
	// RecordOperation counts one operation outcome, e.g. ("predict", "success").
	RecordOperation(operation, status string)

	// RecordDuration observes how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError counts a failure by error category.
	RecordError(operation, errorType string)
}

// NopRecorder discards everything. Used when metrics are disabled.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string) {}
