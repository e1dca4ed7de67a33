package httpapi

import (
	"net/http"

	"github.com/SCRAME314/elehant-water-new/internal/utils"
)

func registerHealthcheck(mux *http.ServeMux, status scanStatus) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"scanner":  status.State().String(),
			"accepted": status.Accepted(),
			"dropped":  status.DropCounts(),
		})
	})
}
