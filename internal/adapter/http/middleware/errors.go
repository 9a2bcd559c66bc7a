package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iho/entryledger/internal/adapter/http/dto"
)

// writeError writes resp in the same shape the handlers use.
func writeError(w http.ResponseWriter, status int, resp dto.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
