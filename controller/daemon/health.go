package daemon

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

type healthPayload struct {
	UptimeSeconds     uint64  `json:"uptimeSeconds"`
	ControllerSeconds float64 `json:"controllerSeconds"`
	Load1             float64 `json:"load1"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	Goroutines        int     `json:"goroutines"`
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	p := healthPayload{
		ControllerSeconds: time.Since(a.startedAt).Seconds(),
		Goroutines:        runtime.NumGoroutine(),
	}
	if up, err := host.Uptime(); err == nil {
		p.UptimeSeconds = up
	}
	if avg, err := load.Avg(); err == nil {
		p.Load1 = avg.Load1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		p.MemoryUsedPercent = vm.UsedPercent
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}
