package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/cyberlab/internal/labs"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/session"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownCategory), errors.Is(err, model.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrInFlight), errors.Is(err, session.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, session.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"sessions":    s.svc.Sessions().Len(),
		"config_hash": s.svc.ConfigHash(),
	})
}

// --- Labs ---

func (s *Server) handleLabs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Labs())
}

func (s *Server) handleLab(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Lab(r.PathValue("category"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handlePayloads(w http.ResponseWriter, r *http.Request) {
	payloads, err := s.svc.Payloads(r.PathValue("category"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var sub model.Submission
	if !decodeJSON(w, r, &sub) {
		return
	}
	cat, err := model.ParseCategory(string(sub.Category))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sub.Category = cat

	res, err := s.svc.Classify(r.Context(), labs.SourceHTTP, "", sub)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Sessions ---

type createSessionRequest struct {
	Category string `json:"category"`
	Mode     string `json:"mode,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := model.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.svc.Sessions().Create(cat, model.Mode(req.Mode))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// lookup resolves the {id} path value, writing the error reply itself.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.LabSession, bool) {
	sess, err := s.svc.Sessions().Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sessions().Delete(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.SetMode(model.Mode(req.Mode)); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type inputRequest struct {
	Input       *string         `json:"input,omitempty"`
	Credentials *bool           `json:"credentials,omitempty"`
	File        *model.FileInfo `json:"file,omitempty"`
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Input != nil {
		sess.SetInput(*req.Input)
	}
	if req.Credentials != nil {
		sess.SetCredentials(*req.Credentials)
	}
	if req.File != nil {
		sess.SetFile(req.File)
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type payloadRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSelectPayload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req payloadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, found := s.svc.Catalog().Find(sess.Category(), req.Name)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("no %s payload named %q", sess.Category(), req.Name))
		return
	}
	sess.SelectPayload(entry)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Log().Entries())
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Log().Clear()
	w.WriteHeader(http.StatusNoContent)
}

// --- JWT helpers ---

type tokenRequest struct {
	Claims map[string]any `json:"claims"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := s.svc.IssueToken(req.Claims)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type tamperRequest struct {
	Token  string         `json:"token"`
	Claims map[string]any `json:"claims"`
}

func (s *Server) handleTamperToken(w http.ResponseWriter, r *http.Request) {
	var req tamperRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := s.svc.TamperToken(req.Token, req.Claims)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
