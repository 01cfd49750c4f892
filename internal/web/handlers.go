package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"weekplan/internal/ics"
	"weekplan/internal/importer"
	"weekplan/internal/ledger"
	appLog "weekplan/internal/log"
	"weekplan/internal/model"
)

// writeLedgerError maps ledger errors onto HTTP statuses. Conflicts carry
// the conflict list so the client can explain what is in the way.
func writeLedgerError(w http.ResponseWriter, err error) {
	var (
		conflict *ledger.ConflictError
		notTask  *ledger.NotATaskError
		notEvent *ledger.NotAnEventError
		interval *ledger.InvalidIntervalError
	)
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error:     err.Error(),
			ID:        conflict.ID,
			Conflicts: conflict.Conflicts,
		})
	case errors.As(err, &notTask), errors.As(err, &notEvent), errors.As(err, &interval):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	var st ledger.State
	s.sess.View(func(l *ledger.Ledger) { st = l.Snapshot() })
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSidebar(w http.ResponseWriter, _ *http.Request) {
	var groups []groupDTO
	s.sess.View(func(l *ledger.Ledger) {
		now := l.Now()
		for _, g := range l.TaskGroups(now) {
			tasks := make([]any, 0, len(g.Tasks))
			for _, t := range g.Tasks {
				tasks = append(tasks, toDTO(t, now))
			}
			groups = append(groups, groupDTO{
				Category: g.Category,
				Color:    model.CategoryColor(g.Category),
				Tasks:    tasks,
			})
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	var (
		item   any
		badReq error
	)
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		in, err := req.input(l.Location())
		if err != nil {
			badReq = err
			return err
		}
		id := l.AddTask(in)
		it, _ := l.Item(id)
		item = toDTO(it, l.Now())
		return nil
	})
	if badReq != nil {
		writeError(w, http.StatusBadRequest, badReq.Error())
		return
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	var (
		item   any
		badReq error
	)
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		in, err := req.input(l.Location())
		if err != nil {
			badReq = err
			return err
		}
		id := l.AddEvent(in)
		it, _ := l.Item(id)
		item = toDTO(it, l.Now())
		return nil
	})
	if badReq != nil {
		writeError(w, http.StatusBadRequest, badReq.Error())
		return
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// mutateItem runs fn under the session lock and answers with the item as it
// stands afterwards.
func (s *Server) mutateItem(w http.ResponseWriter, r *http.Request, id string, fn func(l *ledger.Ledger) error) {
	var (
		item  any
		found bool
	)
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		var it model.Item
		if it, found = l.Item(id); found {
			item = toDTO(it, l.Now())
		}
		return nil
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleUpdateItem changes common fields. Unknown ids are a no-op in the
// ledger and a 404 here.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p ledger.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := checkCategory(p.Category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mutateItem(w, r, id, func(l *ledger.Ledger) error {
		l.UpdateItem(id, p)
		return nil
	})
}

func (s *Server) handleEditTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p ledger.TaskPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := checkCategory(p.Category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mutateItem(w, r, id, func(l *ledger.Ledger) error {
		return l.EditTask(id, p)
	})
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var p ledger.EventPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if err := checkCategory(p.Category); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mutateItem(w, r, id, func(l *ledger.Ledger) error {
		return l.EditEvent(id, p)
	})
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		l.RemoveItem(id)
		return nil
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleScheduleTask(w http.ResponseWriter, r *http.Request) {
	s.place(w, r, func(l *ledger.Ledger, id string, start, end time.Time) error {
		return l.ScheduleTask(id, start, end)
	})
}

func (s *Server) handleMoveEvent(w http.ResponseWriter, r *http.Request) {
	s.place(w, r, func(l *ledger.Ledger, id string, start, end time.Time) error {
		return l.MoveEvent(id, start, end)
	})
}

func (s *Server) place(w http.ResponseWriter, r *http.Request, fn func(l *ledger.Ledger, id string, start, end time.Time) error) {
	id := r.PathValue("id")
	var req spanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	s.mutateItem(w, r, id, func(l *ledger.Ledger) error {
		return fn(l, id, req.Start.in(l.Location()), req.End.in(l.Location()))
	})
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var start, end timeValue
	if err := start.UnmarshalJSON([]byte(q.Get("start"))); err != nil || start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required (RFC 3339 or YYYY-MM-DD)")
		return
	}
	if err := end.UnmarshalJSON([]byte(q.Get("end"))); err != nil || end.IsZero() {
		writeError(w, http.StatusBadRequest, "end is required (RFC 3339 or YYYY-MM-DD)")
		return
	}

	var conflicts []model.Conflict
	s.sess.View(func(l *ledger.Ledger) {
		conflicts = l.ConflictsAt(start.in(l.Location()), end.in(l.Location()), q.Get("exclude"))
	})
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	var resp dayDTO
	var parseErr error
	s.sess.View(func(l *ledger.Ledger) {
		day := l.SelectedDate()
		if raw != "" {
			day, parseErr = time.ParseInLocation(model.DateLayout, raw, l.Location())
			if parseErr != nil {
				return
			}
		}
		resp = dayDTO{
			Date:  day.Format(model.DateLayout),
			Items: toDTOs(l.ItemsForDay(day), l.Now()),
		}
	})
	if parseErr != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func weekOf(l *ledger.Ledger) weekResponse {
	now := l.Now()
	resp := weekResponse{
		WeekStart:    l.WeekStart().Format(model.DateLayout),
		SelectedDate: l.SelectedDate().Format(model.DateLayout),
	}
	for _, d := range l.ItemsForWeek() {
		resp.Days = append(resp.Days, dayDTO{
			Date:  d.Date.Format(model.DateLayout),
			Items: toDTOs(d.Items, now),
		})
	}
	return resp
}

func (s *Server) handleWeek(w http.ResponseWriter, _ *http.Request) {
	var resp weekResponse
	s.sess.View(func(l *ledger.Ledger) { resp = weekOf(l) })
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGoToWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offset int `json:"offset"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	var resp weekResponse
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		l.GoToWeek(req.Offset)
		resp = weekOf(l)
		return nil
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectedDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date timeValue `json:"date"`
	}
	if err := decodeJSON(w, r, &req); err != nil || req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required (RFC 3339 or YYYY-MM-DD)")
		return
	}
	var selected string
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		l.SetSelectedDate(req.Date.in(l.Location()))
		selected = l.SelectedDate().Format(model.DateLayout)
		return nil
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected_date": selected})
}

// handleImport accepts task batches exported from other tools. Unknown
// fields are tolerated since exporters add their own.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importer.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	var ids []string
	var verr *importer.ValidationError
	err := s.sess.Update(r.Context(), func(l *ledger.Ledger) error {
		batch, err := importer.Normalize(req, l.Location())
		if err != nil {
			return err
		}
		ids = importer.Apply(l, batch)
		return nil
	})
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, importErrorResponse{Error: "invalid import", Fields: verr.Fields})
		return
	}
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	appLog.Info("tasks imported", "count", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	var body string
	s.sess.View(func(l *ledger.Ledger) { body = ics.Export(l.Items(), l.Now()) })
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="weekplan.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotFound, "no calendars configured")
		return
	}
	if err := s.refresh(r.Context()); err != nil {
		appLog.Error("manual refresh failed", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
