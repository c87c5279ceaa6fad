package diag

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// LoadAPI exposes the diagnostic feed.
func (l *Logger) LoadAPI(r *mux.Router) {
	r.HandleFunc("/api/serial", l.getBuffer).Methods("GET")
	r.HandleFunc("/api/serial/clear", l.clearBuffer).Methods("POST")
}

func (l *Logger) getBuffer(w http.ResponseWriter, r *http.Request) {
	lines := l.buf.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"output":        strings.Join(lines, "\n"),
		"totalMessages": l.buf.Total(),
		"bufferSize":    l.buf.Capacity(),
	})
}

func (l *Logger) clearBuffer(w http.ResponseWriter, r *http.Request) {
	l.buf.Clear()
	l.Logf("Serial buffer cleared via web interface")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}
