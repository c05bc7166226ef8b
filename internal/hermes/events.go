package hermes

import "time"

type ModelTrainedEvent struct {
	Release          string    `json:"release"`
	TrainedAt        time.Time `json:"trained_at"`
	TrainSamples     int       `json:"train_samples"`
	TestSamples      int       `json:"test_samples"`
	ReadinessR2      float64   `json:"lrs_r2"`
	APRR2            float64   `json:"apr_r2"`
	ApprovalAccuracy float64   `json:"approval_accuracy"`
	Trigger          string    `json:"trigger"`
}

type AssessmentCompletedEvent struct {
	AssessmentID        string    `json:"assessment_id"`
	ApplicantID         string    `json:"applicant_id"`
	Release             string    `json:"release,omitempty"`
	LRS                 float64   `json:"lrs"`
	APREstimate         float64   `json:"apr_estimate"`
	ApprovalProbability float64   `json:"approval_probability"`
	CreatedAt           time.Time `json:"created_at"`
}

type SimulationCompletedEvent struct {
	Release       string    `json:"release,omitempty"`
	Adjusted      []string  `json:"adjusted"`
	LRSDelta      float64   `json:"lrs_delta"`
	APRDelta      float64   `json:"apr_delta"`
	ApprovalDelta float64   `json:"approval_delta"`
	Timestamp     time.Time `json:"timestamp"`
}
