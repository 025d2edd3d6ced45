package app

// EventName names one of the structured events the scheduler emits every
// tick. Every event is logged through the same call-site contract the rest
// of the codebase uses; the Trade Store is updated directly (it is the
// source of truth for stats, not a subscriber to these log lines).
type EventName string

const (
	EventPriceUpdate         EventName = "price_update"
	EventOpportunityFound    EventName = "opportunity_found"
	EventOpportunityRejected EventName = "opportunity_rejected"
	EventSubmitted           EventName = "submitted"
	EventConfirmed           EventName = "confirmed"
	EventReverted            EventName = "reverted"
	EventSimulationFailed    EventName = "simulation_failed"
	EventStaleAborted        EventName = "stale_aborted"
	EventPaused              EventName = "paused"
	EventResumed             EventName = "resumed"
	EventStats               EventName = "stats"
)
