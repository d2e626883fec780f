package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/rqlab/internal/database"
	"github.com/aristath/rqlab/internal/reliability"
)

// SystemHandlers serves process and host status endpoints
type SystemHandlers struct {
	dataDir       string
	resultsDB     *database.DB
	backupService *reliability.BackupService // nil when backups are not configured
	log           zerolog.Logger
	startedAt     time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(dataDir string, resultsDB *database.DB, backupService *reliability.BackupService, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		dataDir:       dataDir,
		resultsDB:     resultsDB,
		backupService: backupService,
		log:           log.With().Str("handler", "system").Logger(),
		startedAt:     time.Now(),
	}
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DataDirMB     float64 `json:"data_dir_mb"`
	BackupEnabled bool    `json:"backup_enabled"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	resp := SystemStatusResponse{
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		DataDirMB:     h.getDirSize(h.dataDir),
		BackupEnabled: h.backupService != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": resp})
}

// HandleHealth handles GET /api/system/health. Healthy means the results
// database answers a ping.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.resultsDB.Conn().PingContext(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Health check failed")
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": status})
}

// HandleTriggerBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backupService == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	info, err := h.backupService.BackupNow(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": info})
}

// getSystemStats returns average CPU and RAM usage percentages. 100ms CPU
// sampling keeps the endpoint fast for frequent pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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

// getDirSize walks a directory and returns its size in MB.
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var size int64
	_ = filepath.Walk(dirPath, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return float64(size) / (1024 * 1024)
}
