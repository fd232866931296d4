package api

import (
	"net/http"
)

func (s *HTTPServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	reply, err := s.deps.Chat.Send(r.Context(), body.SessionID, body.Message)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Chat.Sessions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.deps.Chat.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
