package common

import (
	"encoding/json"
	"net/http"
)

// SuccessResponse is the minimal acknowledgement body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// RespondSuccess writes {success:true} with an optional message.
func RespondSuccess(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: message})
}

// RespondFailure writes {success:false, message}.
func RespondFailure(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, SuccessResponse{Success: false, Message: message})
}

// DecodeJSONBody decodes a JSON body bounded by maxBytes.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
