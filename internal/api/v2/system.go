package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/exoplanet-go/internal/classifier"
)

const bytesPerMB = 1024 * 1024

// MemoryInfo is the memory block of the health response. System figures are
// zero when the platform does not expose them.
type MemoryInfo struct {
	ProcessRSSMB  float64 `json:"process_rss_mb"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	Goroutines    int     `json:"goroutines"`
	SystemTotalMB float64 `json:"system_total_mb"`
	SystemUsedPct float64 `json:"system_used_percent"`
}

// HealthResponse is returned by GET /api/health
type HealthResponse struct {
	Status        string                   `json:"status"`
	Message       string                   `json:"message"`
	Version       string                   `json:"version"`
	BuildDate     string                   `json:"build_date"`
	Uptime        string                   `json:"uptime"`
	UptimeSeconds float64                  `json:"uptime_seconds"`
	Timestamp     string                   `json:"timestamp"`
	Memory        MemoryInfo               `json:"memory"`
	Datasets      map[string]bool          `json:"datasets"`
	Models        []classifier.ModelStatus `json:"models"`
}

// HealthCheck handles GET /api/health. It never fails: a dataset or model
// that could not be loaded shows up in the body, not in the status code.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Message:       "Exoplanet classification API is running",
		Version:       c.Settings.Version,
		BuildDate:     c.Settings.BuildDate,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Memory:        memoryInfo(),
		Datasets:      c.Catalog.Status(),
		Models:        c.Predictor.Models(),
	})
}

func memoryInfo() MemoryInfo {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	info := MemoryInfo{
		HeapAllocMB: float64(ms.HeapAlloc) / bytesPerMB,
		Goroutines:  runtime.NumGoroutine(),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if procMem, err := proc.MemoryInfo(); err == nil && procMem != nil {
			info.ProcessRSSMB = float64(procMem.RSS) / bytesPerMB
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.SystemTotalMB = float64(vm.Total) / bytesPerMB
		info.SystemUsedPct = vm.UsedPercent
	}

	return info
}
