package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"quickplan/app/models"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["taskID"], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

type failedWrite struct {
	ID    int64  `json:"id"`
	Rank  int    `json:"rank"`
	Error string `json:"error"`
}

// writeError maps service errors onto status codes. Store failures are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		verr    *models.ValidationError
		berr    *models.BudgetExceededError
		reorder *models.ReorderError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.As(err, &berr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":               berr.Error(),
			"available":           berr.Available,
			"parentHours":         berr.ParentHours,
			"currentSubtaskHours": berr.CurrentSubtaskHours,
			"requested":           berr.Requested,
		})
	case errors.Is(err, models.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &reorder):
		failed := []failedWrite{}
		for _, fw := range reorder.Result.Failed() {
			failed = append(failed, failedWrite{ID: fw.ID, Rank: fw.Rank, Error: fw.Err.Error()})
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":     "reorder partially applied",
			"committed": reorder.Result.Committed(),
			"failed":    failed,
		})
	default:
		logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
