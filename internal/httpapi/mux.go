package httpapi

import (
	"net/http"

	"github.com/SCRAME314/elehant-water-new/internal/scan"
	"github.com/SCRAME314/elehant-water-new/internal/store"
)

// scanStatus is the slice of the orchestrator the HTTP surface needs.
type scanStatus interface {
	State() scan.State
	Accepted() uint64
	DropCounts() map[string]uint64
}

func NewMux(st *store.Store, status scanStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, status)
	registerReadings(mux, st)
	registerReadingsSocket(mux, st)
	return mux
}

func NewServer(addr string, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
