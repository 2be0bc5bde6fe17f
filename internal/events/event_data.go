package events

import "encoding/json"

// EventData is the interface that all typed event payloads implement.
// This allows for type-safe event data while maintaining flexibility.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ContractCreatedData contains data for ContractCreated events
type ContractCreatedData struct {
	ContractID string  `json:"contract_id"`
	BorrowerID string  `json:"borrower_id"`
	Principal  float64 `json:"principal"`
	RiskTier   string  `json:"risk_tier"`
}

// EventType returns the event type for ContractCreatedData
func (d *ContractCreatedData) EventType() EventType {
	return ContractCreated
}

// ContractFundedData contains data for ContractFunded events
type ContractFundedData struct {
	ContractID   string  `json:"contract_id"`
	FundedAmount float64 `json:"funded_amount"`
	Principal    float64 `json:"principal"`
}

// EventType returns the event type for ContractFundedData
func (d *ContractFundedData) EventType() EventType {
	return ContractFunded
}

// ContractStatusChangedData contains data for ContractStatusChanged events
type ContractStatusChangedData struct {
	ContractID string `json:"contract_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// EventType returns the event type for ContractStatusChangedData
func (d *ContractStatusChangedData) EventType() EventType {
	return ContractStatusChanged
}

// CapitalAllocatedData contains data for CapitalAllocated events
type CapitalAllocatedData struct {
	PoolID     string  `json:"pool_id"`
	PositionID string  `json:"position_id"`
	InvestorID string  `json:"investor_id"`
	Amount     float64 `json:"amount"`
}

// EventType returns the event type for CapitalAllocatedData
func (d *CapitalAllocatedData) EventType() EventType {
	return CapitalAllocated
}

// RepaymentReceivedData contains data for RepaymentReceived events
type RepaymentReceivedData struct {
	ContractID string  `json:"contract_id"`
	Seq        int     `json:"seq"`
	Amount     float64 `json:"amount"`
}

// EventType returns the event type for RepaymentReceivedData
func (d *RepaymentReceivedData) EventType() EventType {
	return RepaymentReceived
}

// RepaymentOverdueData contains data for RepaymentOverdue events
type RepaymentOverdueData struct {
	ContractID string `json:"contract_id"`
	Seq        int    `json:"seq"`
	DueDate    string `json:"due_date"`
}

// EventType returns the event type for RepaymentOverdueData
func (d *RepaymentOverdueData) EventType() EventType {
	return RepaymentOverdue
}

// DefaultTriggeredData contains data for DefaultTriggered events
type DefaultTriggeredData struct {
	ContractID string `json:"contract_id"`
	BorrowerID string `json:"borrower_id,omitempty"`
}

// EventType returns the event type for DefaultTriggeredData
func (d *DefaultTriggeredData) EventType() EventType {
	return DefaultTriggered
}

// RiskAssessedData contains data for RiskAssessed events
type RiskAssessedData struct {
	UserID               string  `json:"user_id"`
	Score                int     `json:"score"`
	Tier                 string  `json:"tier"`
	ProbabilityOfDefault float64 `json:"probability_of_default"`
}

// EventType returns the event type for RiskAssessedData
func (d *RiskAssessedData) EventType() EventType {
	return RiskAssessed
}

// ComplianceFlaggedData contains data for ComplianceFlagged events
type ComplianceFlaggedData struct {
	FlagID   string `json:"flag_id"`
	FlagType string `json:"flag_type"`
	Severity string `json:"severity"`
}

// EventType returns the event type for ComplianceFlaggedData
func (d *ComplianceFlaggedData) EventType() EventType {
	return ComplianceFlagged
}

// InsuranceClaimProcessedData contains data for InsuranceClaimProcessed events
type InsuranceClaimProcessedData struct {
	VaultID   string  `json:"vault_id"`
	Amount    float64 `json:"amount"`
	Covered   float64 `json:"covered"`
	Shortfall float64 `json:"shortfall"`
	Depleted  bool    `json:"depleted"`
}

// EventType returns the event type for InsuranceClaimProcessedData
func (d *InsuranceClaimProcessedData) EventType() EventType {
	return InsuranceClaimProcessed
}

// PoolRebalancedData contains data for PoolRebalanced events
type PoolRebalancedData struct {
	PoolID      string  `json:"pool_id"`
	ActualYield float64 `json:"actual_yield"`
	Utilization float64 `json:"utilization"`
}

// EventType returns the event type for PoolRebalancedData
func (d *PoolRebalancedData) EventType() EventType {
	return PoolRebalanced
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
// for the bus, which carries generic payloads.
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
