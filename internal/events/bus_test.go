package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var received []*Event
	bus.Subscribe(ContractCreated, func(event *Event) {
		received = append(received, event)
	})

	event := bus.Emit(ContractCreated, "contracts", map[string]interface{}{
		"contract_id": "CTR-1",
	})

	require.Len(t, received, 1)
	assert.Equal(t, event.ID, received[0].ID)
	assert.Equal(t, ContractCreated, received[0].Type)
	assert.Equal(t, "contracts", received[0].Module)
	assert.Equal(t, "CTR-1", received[0].Data["contract_id"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var contractEvents, capitalEvents int
	bus.Subscribe(ContractCreated, func(*Event) { contractEvents++ })
	bus.Subscribe(CapitalAllocated, func(*Event) { capitalEvents++ })

	bus.Emit(ContractCreated, "contracts", nil)
	bus.Emit(ContractCreated, "contracts", nil)
	bus.Emit(CapitalAllocated, "capital", nil)

	assert.Equal(t, 2, contractEvents)
	assert.Equal(t, 1, capitalEvents)
}

func TestBus_GlobalSubscriberSeesEverything(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var all []EventType
	bus.SubscribeAll(func(event *Event) {
		all = append(all, event.Type)
	})

	bus.Emit(ContractCreated, "contracts", nil)
	bus.Emit(RiskAssessed, "risk", nil)
	bus.Emit(ComplianceFlagged, "compliance", nil)

	assert.Equal(t, []EventType{ContractCreated, RiskAssessed, ComplianceFlagged}, all)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var delivered bool
	bus.Subscribe(DefaultTriggered, func(*Event) {
		panic("subscriber bug")
	})
	bus.Subscribe(DefaultTriggered, func(*Event) {
		delivered = true
	})

	var globalDelivered bool
	bus.SubscribeAll(func(*Event) { globalDelivered = true })

	// The panicking first subscriber must not block the rest
	require.NotPanics(t, func() {
		bus.Emit(DefaultTriggered, "contracts", nil)
	})
	assert.True(t, delivered)
	assert.True(t, globalDelivered)
}

func TestManager_EmitTyped(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(RiskAssessed, func(event *Event) { received = event })

	manager.EmitTyped(RiskAssessed, "risk", &RiskAssessedData{
		UserID: "usr-1",
		Score:  74,
		Tier:   "A",
	})

	require.NotNil(t, received)
	assert.Equal(t, "usr-1", received.Data["user_id"])
	// JSON round-trip turns numbers into float64
	assert.Equal(t, float64(74), received.Data["score"])
	assert.Equal(t, "A", received.Data["tier"])
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus(zerolog.Nop())
	manager := NewManager(bus, zerolog.Nop())

	var received *Event
	bus.Subscribe(ErrorOccurred, func(event *Event) { received = event })

	manager.EmitError("capital", assert.AnError, map[string]interface{}{"pool_id": "pool-1"})

	require.NotNil(t, received)
	assert.Equal(t, assert.AnError.Error(), received.Data["error"])
}
