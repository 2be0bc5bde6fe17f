package events

// EventType identifies a protocol event.
type EventType string

// Protocol event types.
const (
	ContractCreated         EventType = "ContractCreated"
	ContractFunded          EventType = "ContractFunded"
	ContractStatusChanged   EventType = "ContractStatusChanged"
	CapitalAllocated        EventType = "CapitalAllocated"
	RepaymentReceived       EventType = "RepaymentReceived"
	RepaymentOverdue        EventType = "RepaymentOverdue"
	DefaultTriggered        EventType = "DefaultTriggered"
	RiskAssessed            EventType = "RiskAssessed"
	ComplianceFlagged       EventType = "ComplianceFlagged"
	InsuranceClaimProcessed EventType = "InsuranceClaimProcessed"
	PoolRebalanced          EventType = "PoolRebalanced"
	ErrorOccurred           EventType = "ErrorOccurred"
)

// AllTypes lists every event type the bus can carry. Used by the event
// stream handlers to validate type filters.
var AllTypes = []EventType{
	ContractCreated,
	ContractFunded,
	ContractStatusChanged,
	CapitalAllocated,
	RepaymentReceived,
	RepaymentOverdue,
	DefaultTriggered,
	RiskAssessed,
	ComplianceFlagged,
	InsuranceClaimProcessed,
	PoolRebalanced,
	ErrorOccurred,
}
