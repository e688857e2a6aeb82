package model

// SurveyEnvelope is the payload published to Kafka (via Debezium outbox SMT)
// when an operator requests the comment-survey SMS for a turn.
type SurveyEnvelope struct {
	TurnID  string `json:"turn_id"`
	Phone   string `json:"phone"`
	RefName string `json:"refname,omitempty"`
	Slot    string `json:"slot"` // composite "<date> <time>", display only
}
