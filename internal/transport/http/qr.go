package http

import (
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// joinURL encodes the session id and the student role flag into the link
// students scan to enter the quiz.
func (h *Handler) joinURL(sessionID int64) string {
	return fmt.Sprintf("%s/?session_id=%d&role=student", h.publicURL, sessionID)
}

// joinQR renders the join link as a scannable PNG.
func (h *Handler) joinQR(w http.ResponseWriter, r *http.Request, _ string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	png, err := qrcode.Encode(h.joinURL(id), qrcode.Medium, 256)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
