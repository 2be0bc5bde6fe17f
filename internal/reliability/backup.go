package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Xconmax245/Quantara/internal/database"
)

const archivePrefix = "quantara-backup-"

// Keep at least this many archives regardless of age.
const minBackupsToKeep = 3

// BackupService snapshots the protocol databases into tar.gz archives.
// Archives always land in <dataDir>/backups; when an object store is
// configured they are uploaded there as well.
type BackupService struct {
	databases     []*database.DB
	dataDir       string
	backupDir     string
	store         *S3Client // nil for local-only backups
	retentionDays int
	log           zerolog.Logger
}

// BackupMetadata describes one backup archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database inside a backup.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo summarizes a stored backup archive.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
}

// NewBackupService creates a backup service over the given databases.
func NewBackupService(databases []*database.DB, dataDir string, store *S3Client, retentionDays int, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases:     databases,
		dataDir:       dataDir,
		backupDir:     filepath.Join(dataDir, "backups"),
		store:         store,
		retentionDays: retentionDays,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// Run creates a backup archive, uploads it when a store is configured,
// and rotates old archives. Returns the local archive path.
func (s *BackupService) Run(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	for _, db := range s.databases {
		stagedPath := filepath.Join(stagingDir, db.Name()+".db")

		if err := s.snapshotDatabase(db, stagedPath); err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", db.Name(), err)
		}
		if err := s.verifySnapshot(stagedPath); err != nil {
			return "", fmt.Errorf("snapshot verification failed for %s: %w", db.Name(), err)
		}

		info, err := os.Stat(stagedPath)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s snapshot: %w", db.Name(), err)
		}
		checksum, err := s.calculateChecksum(stagedPath)
		if err != nil {
			return "", fmt.Errorf("failed to calculate checksum for %s: %w", db.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      db.Name(),
			Filename:  db.Name() + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := s.writeMetadata(metadataPath, metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	archiveName := archivePrefix + time.Now().Format("2006-01-02-150405") + ".tar.gz"
	archivePath := filepath.Join(s.backupDir, archiveName)

	if err := s.createArchive(archivePath, stagingDir); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	if s.store != nil {
		if err := s.upload(ctx, archivePath, archiveName); err != nil {
			return "", err
		}
		if err := s.RotateRemote(ctx); err != nil {
			s.log.Error().Err(err).Msg("Failed to rotate remote backups")
		}
	}

	if err := s.rotateLocal(); err != nil {
		s.log.Error().Err(err).Msg("Failed to rotate local backups")
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", info.Size()).
		Msg("Backup completed")

	return archivePath, nil
}

// snapshotDatabase copies one database with VACUUM INTO. The copy is
// atomic and carries no WAL sidecar files.
func (s *BackupService) snapshotDatabase(db *database.DB, destPath string) error {
	s.log.Debug().Str("database", db.Name()).Msg("Snapshotting database")
	_, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath))
	if err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

// verifySnapshot runs an integrity check against a snapshot file.
func (s *BackupService) verifySnapshot(path string) error {
	snapshot, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer snapshot.Close()

	var result string
	if err := snapshot.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func (s *BackupService) upload(ctx context.Context, archivePath, archiveName string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, archiveName, archiveFile); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}
	return nil
}

// ListRemoteBackups lists backup archives in the object store, newest
// first.
func (s *BackupService) ListRemoteBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		timestamp, ok := parseArchiveTimestamp(*obj.Key)
		if !ok {
			s.log.Warn().Str("key", *obj.Key).Msg("Skipping object with unparseable name")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		backups = append(backups, BackupInfo{
			Filename:  *obj.Key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// RotateRemote deletes remote archives older than the retention period,
// always keeping the newest few.
func (s *BackupService) RotateRemote(ctx context.Context) error {
	backups, err := s.ListRemoteBackups(ctx)
	if err != nil {
		return err
	}

	deleted := 0
	for _, backup := range stale(backups, s.retentionDays) {
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old remote backup")
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Msg("Remote backup rotation completed")
	}
	return nil
}

// rotateLocal deletes local archives older than the retention period,
// always keeping the newest few.
func (s *BackupService) rotateLocal() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		timestamp, ok := parseArchiveTimestamp(entry.Name())
		if !ok {
			continue
		}
		backups = append(backups, BackupInfo{Filename: entry.Name(), Timestamp: timestamp})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	for _, backup := range stale(backups, s.retentionDays) {
		if err := os.Remove(filepath.Join(s.backupDir, backup.Filename)); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old local backup")
	}

	return nil
}

// stale returns the archives eligible for deletion: older than the
// retention cutoff and beyond the minimum kept count. Input must be
// sorted newest first. retentionDays 0 keeps everything.
func stale(backups []BackupInfo, retentionDays int) []BackupInfo {
	if retentionDays <= 0 || len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var result []BackupInfo
	for i, backup := range backups {
		if i < minBackupsToKeep {
			continue
		}
		if backup.Timestamp.Before(cutoff) {
			result = append(result, backup)
		}
	}
	return result
}

// parseArchiveTimestamp extracts the timestamp from an archive name
// like quantara-backup-2026-09-01-020000.tar.gz.
func parseArchiveTimestamp(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
	timestamp, err := time.Parse("2006-01-02-150405", raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

// calculateChecksum calculates the SHA256 checksum of a file.
func (s *BackupService) calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// writeMetadata writes backup metadata to a JSON file.
func (s *BackupService) writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive packs every file in sourceDir into a tar.gz archive.
func (s *BackupService) createArchive(archivePath, sourceDir string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := s.addFileToArchive(tarWriter, filepath.Join(sourceDir, entry.Name()), entry.Name()); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", entry.Name(), err)
		}
	}

	return nil
}

// addFileToArchive adds a single file to a tar archive.
func (s *BackupService) addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}

	return nil
}
