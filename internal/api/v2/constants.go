package api

import "time"

const (
	// LightcurveCacheSeconds is how long clients may cache a rendered light
	// curve. Stored images never change.
	LightcurveCacheSeconds = 3600

	// defaultDataset is used when a request names none
	defaultDataset = "kepler"

	// autocompleteLimit caps filtered suggestion lists
	autocompleteLimit = 20

	// rateLimitWindow is how long an idle client's limiter is kept
	rateLimitWindow = 3 * time.Minute
)
