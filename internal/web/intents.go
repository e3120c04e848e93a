package web

import (
	"errors"
	"fmt"
	"net/http"

	"storevec/internal/liststore"
	"storevec/internal/model"

	"github.com/starfederation/datastar-go/datastar"
)

func isDatastarRequest(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// finishIntent answers a successful intent. Datastar clients get an empty
// 204 (the view's stream carries the patches); plain form posts are sent
// back to the view page.
func finishIntent(w http.ResponseWriter, r *http.Request, v *view) {
	if isDatastarRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/views/"+v.id, http.StatusSeeOther)
}

func (s *Server) intentStore(w http.ResponseWriter, r *http.Request) (*view, *liststore.Store, bool) {
	v, ok := s.lookupView(w, r)
	if !ok {
		return nil, nil, false
	}
	st, err := v.storeOrWait(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return nil, nil, false
	}
	return v, st, true
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	v, st, ok := s.intentStore(w, r)
	if !ok {
		return
	}
	it := st.Add()
	s.log.Debug("item added", "view", v.id, "id", it.ID)
	finishIntent(w, r, v)
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	v, st, ok := s.intentStore(w, r)
	if !ok {
		return
	}
	st.MutateSecondToLast()
	finishIntent(w, r, v)
}

func (s *Server) handleDeleteFirst(w http.ResponseWriter, r *http.Request) {
	v, st, ok := s.intentStore(w, r)
	if !ok {
		return
	}
	st.DeleteFirst()
	finishIntent(w, r, v)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	// The id arrives as the text the row was rendered with; parse it into an
	// owned value before touching the store.
	id, err := model.ParseItemID(r.PathValue("itemId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, st, ok := s.intentStore(w, r)
	if !ok {
		return
	}

	if err := st.DeleteByID(id); err != nil {
		var nf *liststore.NotFoundError
		if !errors.As(err, &nf) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.met.DeleteMisses.Inc()
		s.log.Warn("delete of unknown item", "view", v.id, "id", nf.ID)
		// Datastar ignores the body of a non-2xx response, so its clients get
		// the miss as a script on a normal stream.
		if isDatastarRequest(r) {
			sse := datastar.NewSSE(w, r)
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	finishIntent(w, r, v)
}
