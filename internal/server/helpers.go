package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// parseFrameIndex accepts "7", "7.png" and "0007.png".
func parseFrameIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(s, ".png"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid frame index: %q", s)
	}
	return n, nil
}

// elapsed returns the run time of a job so far.
func elapsed(job *Job) time.Duration {
	if job.EndTime != nil {
		return job.EndTime.Sub(job.StartTime)
	}
	return time.Since(job.StartTime)
}

// framesPerSecond is the processing rate of a job.
func framesPerSecond(processed int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(processed) / d.Seconds()
}
