package httpapi

import (
	"net/http"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type healthResponse struct {
	Status      string  `json:"status"`
	Goroutines  int     `json:"goroutines"`
	CPUPercent  float64 `json:"cpu_percent,omitempty"`
	MemUsedPct  float64 `json:"mem_used_percent,omitempty"`
}

// handleHealth reports liveness plus system stats sourced from
// shirou/gopsutil.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Goroutines: runtime.NumGoroutine()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemUsedPct = vm.UsedPercent
	}

	writeJSON(w, http.StatusOK, resp)
}
