package telemetry

import (
	"net/http"

	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

// APIConfig carries the dependencies of the telemetry surface consumed by
// external dashboards.
type APIConfig struct {
	Stats  *stats.Stats
	Backup func() (string, error)
	Logger logger.Logger
}

// SetupRoutes wires the telemetry endpoints: aggregated counters, the bounded
// log tail, the manual backup trigger and a live log stream over websocket.
func SetupRoutes(cfg APIConfig) http.Handler {
	log := cfg.Logger.WithModule("telemetry")

	mux := http.NewServeMux()
	mux.HandleFunc("/stats", handleStats(cfg.Stats))
	mux.HandleFunc("/logs", handleLogs(cfg.Stats))
	mux.HandleFunc("/backup", handleBackup(cfg.Backup, log))
	mux.HandleFunc("/ws/logs", handleLogStream(cfg.Stats, log))
	return mux
}
