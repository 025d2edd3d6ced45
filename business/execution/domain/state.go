package domain

// CandidateState is the intermediate bookkeeping state of a candidate as it
// moves through the engine's gates. Unlike Result, which is only ever
// produced once a candidate reaches a terminal outcome, CandidateState is
// useful mid-flight for logging and metrics (e.g. "we are currently
// simulating 3 candidates").
type CandidateState string

const (
	StateProposed  CandidateState = "proposed"
	StateSimulated CandidateState = "simulated"
	StateSubmittable CandidateState = "submittable"
	StateSubmitted CandidateState = "submitted"
	StateMined     CandidateState = "mined"
)
