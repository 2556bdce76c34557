package model

// EscalationRule maps a warning count threshold to the action taken once the
// count reaches it. Rules are configuration, read-only to the engine.
type EscalationRule struct {
	ThresholdCount  int        `mapstructure:"threshold"`
	ActionType      ActionType `mapstructure:"action"`
	DurationSeconds int64      `mapstructure:"duration_seconds"`
}
