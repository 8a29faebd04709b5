package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with. Success responses
// carry data (and count on list endpoints); error responses carry a stable
// error label and a human-readable message.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RespondWithJSON sends a raw JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// RespondWithData sends a success envelope with data and an optional message
func RespondWithData(w http.ResponseWriter, statusCode int, data interface{}, message string) {
	RespondWithJSON(w, statusCode, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// RespondWithCount sends a success envelope for list endpoints, including the
// item count
func RespondWithCount(w http.ResponseWriter, statusCode int, data interface{}, count int) {
	RespondWithJSON(w, statusCode, Response{
		Success: true,
		Data:    data,
		Count:   &count,
	})
}

// RespondWithError sends an error envelope with a stable error label and a
// human-readable message
func RespondWithError(w http.ResponseWriter, statusCode int, errorLabel, message string) {
	RespondWithJSON(w, statusCode, Response{
		Success: false,
		Error:   errorLabel,
		Message: message,
	})
}

// RespondWithValidationErrors sends a 400 error envelope summarizing field
// validation failures
func RespondWithValidationErrors(w http.ResponseWriter, errors []ValidationError) {
	messages := make([]string, len(errors))
	for i, e := range errors {
		messages[i] = e.Field + ": " + e.Message
	}

	RespondWithError(w, http.StatusBadRequest, "Validation failed", strings.Join(messages, "; "))
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
