package errors

import "net/http"

// ValidationError creates a validation error for a bad or missing request field
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// NotFound creates an error for an unknown identifier, dataset or artifact
func NotFound(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryNotFound).
		Build()
}

// UnsupportedDataset creates an error for a dataset name no component knows about
func UnsupportedDataset(name string) *EnhancedError {
	return Newf("unsupported dataset: %s", name).
		Category(CategoryUnsupportedDataset).
		Context("dataset", name).
		Build()
}

// ModelUnavailable wraps a model load failure. The process keeps running.
func ModelUnavailable(err error, dataset string) *EnhancedError {
	return New(err).
		Category(CategoryModelUnavailable).
		Priority(PriorityHigh).
		Context("dataset", dataset).
		Build()
}

// FeatureMismatch marks a broken dataset/model contract
func FeatureMismatch(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryFeatureMismatch).
		Priority(PriorityCritical).
		Build()
}

// Timeout marks an operation that exceeded its wall-clock bound
func Timeout(err error, operation string) *EnhancedError {
	return NewTimeout(err, operation).Build()
}

// NewTimeout starts a timeout error for callers that add more context
func NewTimeout(err error, operation string) *ErrorBuilder {
	return New(err).
		Category(CategoryTimeout).
		Context("operation", operation)
}

// StoreError wraps a persistence failure. The operation did not partially apply.
func StoreError(err error, operation string) *EnhancedError {
	return NewStoreError(err, operation).Build()
}

// NewStoreError starts a persistence error for callers that add more context
func NewStoreError(err error, operation string) *ErrorBuilder {
	return New(err).
		Category(CategoryDatabase).
		Context("operation", operation)
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch CategoryOf(err) {
	case CategoryValidation, CategoryUnsupportedDataset:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
