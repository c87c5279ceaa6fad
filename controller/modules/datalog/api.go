package datalog

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

// LoadAPI registers the history and file-management endpoints.
func (c *Controller) LoadAPI(r *mux.Router) {
	r.HandleFunc("/api/data", c.getData).Methods("GET")
	r.HandleFunc("/api/data", c.deleteData).Methods("DELETE")
	r.HandleFunc("/api/files", c.getFiles).Methods("GET")
	r.HandleFunc("/api/file", c.getFile).Methods("GET")
	r.HandleFunc("/api/file", c.deleteFile).Methods("DELETE")
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (c *Controller) getData(w http.ResponseWriter, r *http.Request) {
	data, err := c.Concat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(data))
}

func (c *Controller) deleteData(w http.ResponseWriter, r *http.Request) {
	if err := c.Purge(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	c.diag.Logf("All measurement data deleted via web interface")
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type fileInfo struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	SizeHuman    string `json:"sizeHuman"`
	LastModified int64  `json:"lastModified"`
}

func (c *Controller) getFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	files := []fileInfo{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			Name:         e.Name(),
			Size:         info.Size(),
			SizeHuman:    humanize.Bytes(uint64(info.Size())),
			LastModified: info.ModTime().Unix(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"files": files})
}

// resolve maps a requested name onto the data directory, refusing anything
// that would escape it or address the directory itself.
func (c *Controller) resolve(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", false
	}
	return filepath.Join(c.dir, name), true
}

func (c *Controller) getFile(w http.ResponseWriter, r *http.Request) {
	path, ok := c.resolve(r.URL.Query().Get("name"))
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "filename_required"})
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (c *Controller) deleteFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	path, ok := c.resolve(name)
	if !ok {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "filename_required"})
		return
	}
	// Only plain files are deletable; the data directory and anything
	// nested must survive every request.
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "message": "Failed to delete file",
		})
		return
	}
	if err := os.Remove(path); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false, "message": "Failed to delete file",
		})
		return
	}
	c.diag.Logf("Deleted file: %s", name)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true, "message": "File deleted successfully",
	})
}
