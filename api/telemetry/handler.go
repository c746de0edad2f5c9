package telemetry

import (
	"encoding/json"
	"net/http"

	gws "github.com/gorilla/websocket"

	"github.com/leovewc/DS.Chat/internal/stats"
	"github.com/leovewc/DS.Chat/pkg/logger"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type statsResponse struct {
	ActiveClients int      `json:"active_clients"`
	ActiveRooms   []string `json:"active_rooms"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}

type backupResponse struct {
	File string `json:"file"`
}

func handleStats(st *stats.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statsResponse{
			ActiveClients: st.ActiveClients(),
			ActiveRooms:   st.ActiveRooms(),
		})
	}
}

func handleLogs(st *stats.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logsResponse{Logs: st.RecentLogs()})
	}
}

func handleBackup(backup func() (string, error), log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		file, err := backup()
		if err != nil {
			log.Errorf("manual backup failed: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, backupResponse{File: file})
	}
}

// handleLogStream streams the log tail and then every new log line to a
// dashboard over websocket until the peer disconnects.
func handleLogStream(st *stats.Stats, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		lines, cancel := st.SubscribeLogs()
		defer cancel()

		// Detect peer close so the subscription is released promptly.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		for _, line := range st.RecentLogs() {
			if err := conn.WriteMessage(gws.TextMessage, []byte(line)); err != nil {
				return
			}
		}
		for line := range lines {
			if err := conn.WriteMessage(gws.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
