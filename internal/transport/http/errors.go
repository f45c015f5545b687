package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"adaptive-quiz-service/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindInvalidState:     http.StatusConflict,
	domain.KindOutOfRange:       http.StatusUnprocessableEntity,
	domain.KindNoValidQuestions: http.StatusBadGateway,
	domain.KindUpstreamFailure:  http.StatusBadGateway,
	domain.KindInvalidArgument:  http.StatusBadRequest,
}

// errorDetails classifies err. Unclassified errors are logged and reported as internal.
func errorDetails(err error) (int, errorDetail) {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Printf("http: internal error: %v", err)
		return http.StatusInternalServerError, errorDetail{Kind: "Internal", Message: "internal error"}
	}
	return status, errorDetail{Kind: kind, Message: publicMessage(err)}
}

// publicMessage is the message of the outermost domain error, without wrapped causes.
func publicMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return string(domain.KindOf(err))
}

func writeError(w http.ResponseWriter, err error) {
	status, detail := errorDetails(err)
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}
