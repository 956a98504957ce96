package datastore

import "time"

// Prediction is one stored classifier result
type Prediction struct {
	ID           uint      `gorm:"primaryKey"`
	CandidateID  string    `gorm:"index;size:64;not null"`
	Dataset      string    `gorm:"index;size:32;not null"`
	Confidence   float64   `gorm:"not null"`
	IsExoplanet  bool      `gorm:"not null"`
	ModelVersion string    `gorm:"size:64"`
	Timestamp    time.Time `gorm:"index;not null"` // when the prediction was made, as reported by the client
	CreatedAt    time.Time
}

// TableName pins the table name used by GORM
func (Prediction) TableName() string { return "predictions" }

// Lightcurve is a rendered plot for one candidate. Rows are only ever
// inserted; the newest row for an identifier is the current image.
type Lightcurve struct {
	ID           uint   `gorm:"primaryKey"`
	CandidateID  string `gorm:"index;size:64;not null"`
	SecondaryKey int64  `gorm:"index"`
	Image        []byte `gorm:"type:mediumblob;not null"`
	Filename     string `gorm:"size:128;not null"`
	Synthetic    bool
	CreatedAt    time.Time `gorm:"index"`
}

// TableName pins the table name used by GORM
func (Lightcurve) TableName() string { return "lightcurves" }

// PredictionDetail is the nested scoring part of a PredictionRecord
type PredictionDetail struct {
	Confidence   float64 `json:"confidence"`
	IsExoplanet  bool    `json:"is_exoplanet"`
	ModelVersion string  `json:"model_version"`
}

// PredictionRecord is the API form of a prediction
type PredictionRecord struct {
	ExoplanetID string            `json:"exoplanet_id"`
	Dataset     string            `json:"dataset"`
	Timestamp   string            `json:"timestamp"`
	Prediction  *PredictionDetail `json:"prediction"`
}

// Record converts a stored prediction to its API form
func (p *Prediction) Record() PredictionRecord {
	return PredictionRecord{
		ExoplanetID: p.CandidateID,
		Dataset:     p.Dataset,
		Timestamp:   p.Timestamp.UTC().Format(time.RFC3339Nano),
		Prediction: &PredictionDetail{
			Confidence:   p.Confidence,
			IsExoplanet:  p.IsExoplanet,
			ModelVersion: p.ModelVersion,
		},
	}
}

// PredictionStats aggregates every stored prediction
type PredictionStats struct {
	TotalPredictions  int64            `json:"total_predictions"`
	ExoplanetsFound   int64            `json:"exoplanets_found"`
	AverageConfidence float64          `json:"average_confidence"`
	DatasetBreakdown  map[string]int64 `json:"dataset_breakdown"`
	SuccessRate       float64          `json:"success_rate"`
}

// timestampLayouts are the accepted client timestamp formats, tried in order
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // ISO 8601 without zone, read as UTC
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses a client supplied timestamp
func ParseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
