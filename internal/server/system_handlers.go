package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Xconmax245/Quantara/internal/database"
)

// SystemHandlers serves process and database health endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases []*database.DB
	startedAt time.Time
}

// NewSystemHandlers creates system handlers over the given databases.
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		startedAt: time.Now(),
	}
}

// DatabaseHealth reports one database's reachability.
type DatabaseHealth struct {
	Name    string `json:"name"`
	Profile string `json:"profile"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/system/health.
type HealthResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptimeSeconds"`
	Goroutines    int              `json:"goroutines"`
	CPUPercent    float64          `json:"cpuPercent"`
	MemoryPercent float64          `json:"memoryPercent"`
	Databases     []DatabaseHealth `json:"databases"`
	Timestamp     string           `json:"timestamp"`
}

// HandleHealth handles GET /api/system/health.
// Reports degraded when any database fails its ping.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	status := "healthy"
	databases := make([]DatabaseHealth, 0, len(h.databases))
	for _, db := range h.databases {
		health := DatabaseHealth{
			Name:    db.Name(),
			Profile: string(db.Profile()),
			Status:  "ok",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := db.Conn().PingContext(ctx); err != nil {
			health.Status = "unreachable"
			health.Error = err.Error()
			status = "degraded"
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Database ping failed")
		}
		cancel()

		databases = append(databases, health)
	}

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Databases:     databases,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DBInfo describes one database file on disk.
type DBInfo struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}

// DatabaseStatsResponse is the body of GET /api/system/database/stats.
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// HandleDatabaseStats returns database file statistics.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	infos := []DBInfo{}
	totalSizeMB := 0.0

	for _, db := range h.databases {
		if info, err := os.Stat(db.Path()); err == nil {
			sizeMB := float64(info.Size()) / 1024 / 1024
			totalSizeMB += sizeMB

			infos = append(infos, DBInfo{
				Name:   db.Name(),
				Path:   db.Path(),
				SizeMB: sizeMB,
			})
		}
	}

	response := DatabaseStatsResponse{
		Databases:   infos,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DiskUsageResponse is the body of GET /api/system/disk.
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	BackupsMB float64 `json:"backups_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandleDiskUsage returns disk usage statistics.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)
	backupsSize := h.getDirSize(filepath.Join(h.dataDir, "backups"))

	response := DiskUsageResponse{
		DataDirMB: dataDirSize,
		BackupsMB: backupsSize,
		TotalMB:   dataDirSize,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// getDirSize calculates total size of a directory in MB.
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// systemStats returns CPU and RAM usage percentages. A 100ms sampling
// window keeps the health endpoint responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
