package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by the booking store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db       Pinger
	cacheUp  func() bool
	started  time.Time
	sampleFn func() SystemHealth
}

type HealthStatus struct {
	Status   string          `json:"status"`
	Database ComponentHealth `json:"database"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type SystemHealth struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

type DetailedStatus struct {
	HealthStatus
	Cache  string       `json:"cache"`
	Uptime string       `json:"uptime"`
	System SystemHealth `json:"system"`
}

// NewHealthChecker builds a checker. cacheUp may be nil when no cache is
// configured.
func NewHealthChecker(db Pinger, cacheUp func() bool) *HealthChecker {
	return &HealthChecker{
		db:       db,
		cacheUp:  cacheUp,
		started:  time.Now(),
		sampleFn: sampleSystem,
	}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	dbHealth := h.checkDatabase()

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds cache state and host resource usage.
func (h *HealthChecker) CheckDetailed() DetailedStatus {
	cache := "disabled"
	if h.cacheUp != nil {
		cache = "unhealthy"
		if h.cacheUp() {
			cache = "healthy"
		}
	}
	return DetailedStatus{
		HealthStatus: h.CheckBasic(),
		Cache:        cache,
		Uptime:       time.Since(h.started).Truncate(time.Second).String(),
		System:       h.sampleFn(),
	}
}

func (h *HealthChecker) checkDatabase() ComponentHealth {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", ResponseTime: responseTime}
}

func sampleSystem() SystemHealth {
	var s SystemHealth
	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		s.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		s.DiskPercent = du.UsedPercent
	}
	return s
}
