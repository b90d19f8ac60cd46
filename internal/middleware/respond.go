package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/taskshare/taskshare/internal/handler/dto"
)

// writeError answers with the API error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.Fail(status, message))
}
