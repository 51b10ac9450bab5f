package relay

import (
	"net/http"

	relayUC "drafty-relay/internal/usecase/relay"
)

// Register mounts the relay endpoints and the JSON 404 catch-all.
func Register(mux *http.ServeMux, svc Processor) {
	mux.Handle("/api/polish", Handler{Svc: svc, Mode: relayUC.ModePolish})
	mux.Handle("/api/digest", Handler{Svc: svc, Mode: relayUC.ModeDigest})
	mux.Handle("/api/rewrite", Handler{Svc: svc, Mode: relayUC.ModeRewrite})
	mux.Handle("/enhance", Handler{Svc: svc, Mode: relayUC.ModeRewrite})
	mux.Handle("/polish", Handler{Svc: svc, Mode: relayUC.ModeMobile, Legacy: true})
	mux.HandleFunc("/", NotFound)
}
