// Package relay exposes the text relay over HTTP.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"drafty-relay/internal/handler/http/respond"
	relayUC "drafty-relay/internal/usecase/relay"
)

// Processor runs one relay request.
type Processor interface {
	Process(ctx context.Context, req relayUC.Request) (*relayUC.Result, error)
}

var (
	errInvalidJSON      = errors.New("invalid JSON")
	errBodyTooLarge     = errors.New("request body too large")
	errMethodNotAllowed = errors.New("method not allowed")
)

// Handler serves one mode. Legacy selects the {"polishedText": ...} body.
type Handler struct {
	Svc    Processor
	Mode   relayUC.Mode
	Legacy bool
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		respond.SafeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	var body RequestDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.SafeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return
		}
		respond.SafeError(w, http.StatusBadRequest, errInvalidJSON)
		return
	}

	res, err := h.Svc.Process(r.Context(), relayUC.Request{
		Mode:     h.Mode,
		Text:     body.Text,
		Type:     body.Type,
		Tone:     body.Tone,
		Language: body.Language,
		Platform: body.Platform,
	})
	if err != nil {
		if relayUC.IsValidationError(err) {
			respond.SafeError(w, http.StatusBadRequest, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, fmt.Errorf("relay %s: %w", h.Mode, err))
		return
	}

	if h.Legacy {
		respond.JSON(w, http.StatusOK, PolishResponseDTO{PolishedText: res.Text})
		return
	}
	respond.JSON(w, http.StatusOK, ResponseDTO{
		Result:   res.Text,
		Fallback: res.Fallback,
		Mode:     string(res.Mode),
	})
}

// NotFound answers every unrouted path with a JSON 404.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	respond.SafeError(w, http.StatusNotFound, errors.New("not found"))
}
