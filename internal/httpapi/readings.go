package httpapi

import (
	"net/http"
	"sort"

	"github.com/SCRAME314/elehant-water-new/internal/store"
	"github.com/SCRAME314/elehant-water-new/internal/utils"
)

func registerReadings(mux *http.ServeMux, st *store.Store) {
	mux.HandleFunc("GET /readings", func(w http.ResponseWriter, r *http.Request) {
		all := st.All()
		serials := make([]string, 0, len(all))
		for serial := range all {
			serials = append(serials, serial)
		}
		sort.Strings(serials)

		out := make([]store.Reading, 0, len(serials))
		for _, serial := range serials {
			out = append(out, all[serial])
		}
		utils.WriteJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("GET /readings/{serial}", func(w http.ResponseWriter, r *http.Request) {
		serial := r.PathValue("serial")
		if serial == "" {
			utils.WriteError(w, http.StatusBadRequest, "missing meter serial")
			return
		}
		reading, ok := st.Get(serial)
		if !ok {
			utils.WriteError(w, http.StatusNotFound, "no reading for meter "+serial)
			return
		}
		utils.WriteJSON(w, http.StatusOK, reading)
	})
}
