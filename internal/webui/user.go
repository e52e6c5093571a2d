package webui

import (
	"encoding/json"
	"net/http"
	"strings"

	"planos/internal/notes"
	"planos/internal/tasks"
)

const searchLimit = 20

func (s *Server) handleNotes() http.HandlerFunc {
	ns := s.svc.Notes
	return serveCRUD(crud[notes.Note]{
		list: func(r *http.Request, owner string) (any, error) {
			if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
				return ns.Search(owner, q, searchLimit), nil
			}
			return ns.List(owner), nil
		},
		create: ns.Create,
		update: ns.Update,
		remove: ns.Delete,
	})
}

func (s *Server) handleTasks() http.HandlerFunc {
	ts := s.svc.Tasks
	return serveCRUD(crud[tasks.Task]{
		list: func(_ *http.Request, owner string) (any, error) {
			return ts.List(owner), nil
		},
		create: ts.Create,
		update: ts.Update,
		remove: ts.Delete,
	})
}

func (s *Server) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req struct {
		TaskID    string `json:"taskId"`
		ItemID    string `json:"itemId"`
		Completed bool   `json:"completed"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, err)
		return
	}
	if req.TaskID == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "taskId and itemId are required")
		return
	}
	item, err := s.svc.Tasks.SetItem(ownerOf(r), req.TaskID, req.ItemID, req.Completed)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleSettings never echoes the stored API key.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	switch r.Method {
	case http.MethodGet:
		cur, err := s.svc.Settings.Get(owner)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cur.View())
	case http.MethodPut, http.MethodPost:
		var patch map[string]json.RawMessage
		if err := decodeBody(r, &patch); err != nil {
			fail(w, err)
			return
		}
		cur, err := s.svc.Settings.Update(owner, patch)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cur.View())
	default:
		methodNotAllowed(w)
	}
}
