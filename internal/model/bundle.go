package model

import "time"

// Blob names of a persisted bundle.
const (
	BlobFeatures = "features.json"
	BlobLRS      = "lrs_model.json"
	BlobAPR      = "apr_model.json"
	BlobApproval = "approval_model.json"
	BlobMetrics  = "metrics.json"
)

// Metrics are the held-out evaluation results of a training run.
type Metrics struct {
	ReadinessR2        float64 `json:"lrs_r2"`
	APRR2              float64 `json:"apr_r2"`
	ApprovalAccuracy   float64 `json:"approval_accuracy"`
	TrainSamples       int     `json:"train_samples"`
	TestSamples        int     `json:"test_samples"`
	ApprovalIterations int     `json:"approval_iterations"`
	ApprovalConverged  bool    `json:"approval_converged"`
}

// Bundle is one complete trained artifact set.
type Bundle struct {
	Release   string    `json:"release,omitempty"`
	Features  []string  `json:"features"`
	Readiness *Pipeline `json:"lrs"`
	APR       *Pipeline `json:"apr"`
	Approval  *Pipeline `json:"approval"`
	Metrics   Metrics   `json:"metrics"`
	TrainedAt time.Time `json:"trained_at"`
}
