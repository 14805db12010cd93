package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/louisbranch/emberforge/internal/platform/errors"

	"github.com/louisbranch/emberforge/internal/platform/errors/i18n"
)

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

// writeError renders a domain error with its mapped HTTP status and a
// message localized from the request's Accept-Language.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	catalog := i18n.Resolve(r.Header.Get("Accept-Language"))

	appErr, ok := apperrors.As(err)
	if !ok {
		s.logger.Printf("internal error method=%s path=%s: %v", r.Method, r.URL.Path, err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    string(apperrors.CodeUnknown),
			Message: catalog.Format(apperrors.CodeUnknown, nil),
		}})
		return
	}

	s.writeJSON(w, appErr.Code.HTTPStatus(), errorResponse{Error: errorBody{
		Code:     string(appErr.Code),
		Message:  catalog.FormatError(appErr),
		Metadata: appErr.Metadata,
	}})
}
