package hermes

const (
	SubjectModelTrained        = "loan.model.trained"
	SubjectSimulationCompleted = "loan.simulation.completed"

	StreamName   = "PATHFINDER_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectAssessmentCompleted(assessmentID string) string {
	return "loan.assessment." + assessmentID + ".completed"
}
