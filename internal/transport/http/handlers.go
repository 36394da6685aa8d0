package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/report"
)

// runTokenHeader correlates a client connection to its run state; the state
// itself lives server-side in the run registry, never in ambient globals.
const runTokenHeader = "X-Run-Token"

// Handler exposes the quiz use cases over JSON HTTP.
type Handler struct {
	sessions   *app.SessionService
	runner     *app.Runner
	runs       *app.RunRegistry
	aggregator *app.Aggregator
	reporter   report.Generator
	auth       *app.Authenticator
	publicURL  string
}

func NewHandler(
	sessions *app.SessionService,
	runner *app.Runner,
	runs *app.RunRegistry,
	aggregator *app.Aggregator,
	reporter report.Generator,
	auth *app.Authenticator,
	publicURL string,
) *Handler {
	return &Handler{
		sessions:   sessions,
		runner:     runner,
		runs:       runs,
		aggregator: aggregator,
		reporter:   reporter,
		auth:       auth,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

// Register wires all routes into the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.login)

	mux.HandleFunc("POST /api/sessions", h.requireTeacher(h.createSession))
	mux.HandleFunc("GET /api/sessions", h.requireTeacher(h.listSessions))
	mux.HandleFunc("GET /api/sessions/{id}", h.requireTeacher(h.getSession))
	mux.HandleFunc("POST /api/sessions/{id}/close", h.requireTeacher(h.closeSession))
	mux.HandleFunc("GET /api/sessions/{id}/stats", h.requireTeacher(h.sessionStats))
	mux.HandleFunc("POST /api/sessions/{id}/report", h.requireTeacher(h.sessionReport))
	mux.HandleFunc("GET /api/sessions/{id}/join-qr", h.requireTeacher(h.joinQR))

	mux.HandleFunc("POST /api/quiz/{id}/enter", h.enterQuiz)
	mux.HandleFunc("POST /api/quiz/run/start", h.runStart)
	mux.HandleFunc("POST /api/quiz/run/select", h.runSelect)
	mux.HandleFunc("POST /api/quiz/run/advance", h.runAdvance)
	mux.HandleFunc("POST /api/quiz/run/submit", h.runSubmit)
	mux.HandleFunc("GET /api/quiz/run/state", h.runState)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	})
}

// requireTeacher guards the teacher endpoints with a bearer token check.
func (h *Handler) requireTeacher(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		username, role, err := h.auth.Verify(token)
		if err != nil || role != "teacher" {
			writeError(w, http.StatusUnauthorized, "teacher authentication required")
			return
		}
		next(w, r, username)
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, teacher string) {
	var req struct {
		Topic    string `json:"topic"`
		Subtopic string `json:"subtopic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := h.sessions.Start(r.Context(), teacher, req.Topic, req.Subtopic)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"joinUrl": h.joinURL(id),
	})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request, teacher string) {
	sessions, err := h.sessions.ListForTeacher(r.Context(), teacher)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Close(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": true})
}

func (h *Handler) sessionStats(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	results, err := h.aggregator.Aggregate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) sessionReport(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	results, err := h.aggregator.Aggregate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	text, err := h.reporter.Generate(r.Context(), results)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": text})
}

func (h *Handler) enterQuiz(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		StudentID string `json:"studentId"`
	}
	// Body is optional; first-time students get a generated id.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.StudentID == "" {
		req.StudentID = app.NewStudentID()
	}

	state, err := h.runner.Enter(r.Context(), sessionID, req.StudentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	questions, err := h.runner.Questions(r.Context(), state)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	token := h.runs.Add(state)
	writeJSON(w, http.StatusOK, map[string]any{
		"runToken":  token,
		"studentId": state.StudentID,
		"topic":     state.Topic,
		"questions": questions,
		"run":       h.runner.View(state),
	})
}

// withRun resolves the run token, applies the lazy deadline check and hands
// the state to op. Forced completion surfaces in the returned view, not as an
// error.
func (h *Handler) withRun(w http.ResponseWriter, r *http.Request, op func(state *app.RunState) error) {
	state, ok := h.runs.Get(r.Header.Get(runTokenHeader))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run token")
		return
	}
	if _, _, err := h.runner.Observe(r.Context(), state); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if op != nil {
		if err := op(state); err != nil {
			h.writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.runner.View(state))
}

func (h *Handler) runStart(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, func(state *app.RunState) error {
		h.runner.Start(state)
		return nil
	})
}

func (h *Handler) runSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID int64  `json:"questionId"`
		Option     string `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.withRun(w, r, func(state *app.RunState) error {
		return h.runner.Select(r.Context(), state, req.QuestionID, req.Option)
	})
}

func (h *Handler) runAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.withRun(w, r, func(state *app.RunState) error {
		return h.runner.Advance(r.Context(), state, req.Delta)
	})
}

func (h *Handler) runSubmit(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, func(state *app.RunState) error {
		return h.runner.Submit(r.Context(), state)
	})
}

func (h *Handler) runState(w http.ResponseWriter, r *http.Request) {
	h.withRun(w, r, nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrNoQuestions):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSessionClosed), errors.Is(err, domain.ErrRunNotStarted), errors.Is(err, domain.ErrIncompleteAnswers):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
