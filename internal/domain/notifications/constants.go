package notifications

const (
	TypeEvaluationAssigned  = "evaluation_assigned"
	TypeEvaluationCompleted = "evaluation_completed"
	TypeEvaluationReviewed  = "evaluation_reviewed"
	TypeCycleActivated      = "cycle_activated"
	TypeCycleClosed         = "cycle_closed"
)
