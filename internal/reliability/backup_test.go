package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xconmax245/Quantara/internal/database"
)

func setupBackupService(t *testing.T) (*BackupService, string) {
	t.Helper()

	dir := t.TempDir()
	protocol, err := database.New(database.Config{
		Path:    filepath.Join(dir, "protocol.db"),
		Profile: database.ProfileStandard,
		Name:    "protocol",
	})
	require.NoError(t, err)
	require.NoError(t, protocol.Migrate())
	t.Cleanup(func() { _ = protocol.Close() })

	ledger, err := database.New(database.Config{
		Path:    filepath.Join(dir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate())
	t.Cleanup(func() { _ = ledger.Close() })

	service := NewBackupService([]*database.DB{protocol, ledger}, dir, nil, 14, zerolog.Nop())
	return service, dir
}

func readArchive(t *testing.T, archivePath string) map[string][]byte {
	t.Helper()

	file, err := os.Open(archivePath)
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer gz.Close()

	contents := map[string][]byte{}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[header.Name] = data
	}
	return contents
}

func TestRunCreatesVerifiedArchive(t *testing.T) {
	service, dir := setupBackupService(t)

	archivePath, err := service.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(archivePath), archivePrefix))
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(archivePath))

	contents := readArchive(t, archivePath)
	require.Contains(t, contents, "protocol.db")
	require.Contains(t, contents, "ledger.db")
	require.Contains(t, contents, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(contents["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 2)
	for _, db := range metadata.Databases {
		assert.True(t, strings.HasPrefix(db.Checksum, "sha256:"))
		assert.Greater(t, db.SizeBytes, int64(0))
	}
}

func TestStaleSelection(t *testing.T) {
	now := time.Now()
	newest := func(age time.Duration) BackupInfo {
		return BackupInfo{Timestamp: now.Add(-age)}
	}

	// Newest first, three recent and two past retention.
	backups := []BackupInfo{
		newest(1 * time.Hour),
		newest(25 * time.Hour),
		newest(49 * time.Hour),
		newest(30 * 24 * time.Hour),
		newest(60 * 24 * time.Hour),
	}

	assert.Len(t, stale(backups, 14), 2)

	// Retention 0 keeps everything.
	assert.Empty(t, stale(backups, 0))

	// The newest three are never deleted, even when ancient.
	ancient := []BackupInfo{
		newest(100 * 24 * time.Hour),
		newest(200 * 24 * time.Hour),
		newest(300 * 24 * time.Hour),
	}
	assert.Empty(t, stale(ancient, 14))
}

func TestRotateLocalKeepsNewestArchives(t *testing.T) {
	service, dir := setupBackupService(t)
	service.retentionDays = 1

	backupDir := filepath.Join(dir, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0755))

	// Five archives, all older than the retention window.
	base := time.Now().AddDate(0, 0, -10)
	var names []string
	for i := 0; i < 5; i++ {
		name := archivePrefix + base.Add(time.Duration(i)*time.Hour).Format("2006-01-02-150405") + ".tar.gz"
		require.NoError(t, os.WriteFile(filepath.Join(backupDir, name), []byte("x"), 0644))
		names = append(names, name)
	}

	require.NoError(t, service.rotateLocal())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// The three newest survive.
	survivors := map[string]bool{}
	for _, entry := range entries {
		survivors[entry.Name()] = true
	}
	assert.True(t, survivors[names[4]])
	assert.True(t, survivors[names[3]])
	assert.True(t, survivors[names[2]])
}

func TestParseArchiveTimestamp(t *testing.T) {
	ts, ok := parseArchiveTimestamp("quantara-backup-2026-09-01-020000.tar.gz")
	require.True(t, ok)
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.September, ts.Month())

	_, ok = parseArchiveTimestamp("quantara-backup-garbage.tar.gz")
	assert.False(t, ok)

	_, ok = parseArchiveTimestamp("other-file.txt")
	assert.False(t, ok)
}
