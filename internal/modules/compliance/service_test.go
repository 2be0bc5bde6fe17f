package compliance

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/database"
	"github.com/Xconmax245/Quantara/internal/events"
)

func setupService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "protocol.db"),
		Profile: database.ProfileStandard,
		Name:    "protocol",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	bus := events.NewBus(log)
	manager := events.NewManager(bus, log)
	return NewService(NewRepository(db.Conn(), log), manager, log), bus
}

func TestCreateFlag(t *testing.T) {
	service, bus := setupService(t)

	var flagged []*events.Event
	bus.Subscribe(events.ComplianceFlagged, func(event *events.Event) {
		flagged = append(flagged, event)
	})

	flag, err := service.CreateFlag(CreateFlagParams{
		Type:       TypeKYCIssue,
		Severity:   SeverityMedium,
		Title:      "Missing documentation",
		UserID:     "user-1",
		ContractID: "CTR-1",
	})
	require.NoError(t, err)

	assert.Equal(t, FlagOpen, flag.Status)
	assert.Nil(t, flag.ResolvedAt)
	require.Len(t, flagged, 1)
	assert.Equal(t, flag.ID, flagged[0].Data["flag_id"])

	stored, err := service.GetFlag(flag.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "CTR-1", stored.ContractID)
}

func TestResolveFlag(t *testing.T) {
	service, _ := setupService(t)

	flag, err := service.CreateFlag(CreateFlagParams{
		Type: TypeRateLimit, Severity: SeverityLow, Title: "Too many requests",
	})
	require.NoError(t, err)

	resolved, err := service.ResolveFlag(flag.ID)
	require.NoError(t, err)
	assert.Equal(t, FlagResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	// Resolving again is a no-op keeping the original timestamp.
	again, err := service.ResolveFlag(flag.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved.ResolvedAt.Unix(), again.ResolvedAt.Unix())

	_, err = service.ResolveFlag("FLG-MISSING")
	assert.Error(t, err)
}

func TestRunAutomatedChecks(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		frequency  int
		wantCount  int
		severities []Severity
	}{
		{"nothing fires", 500, 10, 0, nil},
		{"velocity only", 500, 101, 1, []Severity{SeverityCritical}},
		{"large transaction only", 1000001, 10, 1, []Severity{SeverityHigh}},
		{"both fire", 2000000, 250, 2, []Severity{SeverityCritical, SeverityHigh}},
		{"thresholds are exclusive", 1000000, 100, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := setupService(t)

			flags, err := service.RunAutomatedChecks(tt.amount, tt.frequency)
			require.NoError(t, err)
			require.Len(t, flags, tt.wantCount)
			for i, severity := range tt.severities {
				assert.Equal(t, severity, flags[i].Severity)
				assert.Equal(t, TypeFraudAlert, flags[i].Type)
				assert.Equal(t, FlagOpen, flags[i].Status)
			}
		})
	}
}

func TestLargeTransactionDescriptionFormatsAmount(t *testing.T) {
	service, _ := setupService(t)

	flags, err := service.RunAutomatedChecks(2500000, 0)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Contains(t, flags[0].Description, "2,500,000")
}

func TestListFlagsByStatus(t *testing.T) {
	service, _ := setupService(t)

	first, err := service.CreateFlag(CreateFlagParams{Type: TypeFraudAlert, Severity: SeverityHigh, Title: "a"})
	require.NoError(t, err)
	_, err = service.CreateFlag(CreateFlagParams{Type: TypeBlacklist, Severity: SeverityCritical, Title: "b"})
	require.NoError(t, err)

	_, err = service.ResolveFlag(first.ID)
	require.NoError(t, err)

	open, err := service.ListFlags(FlagOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	resolved, err := service.ListFlags(FlagResolved)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	all, err := service.ListFlags("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
