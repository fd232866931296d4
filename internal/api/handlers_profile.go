package api

import (
	"net/http"
	"strings"

	"sunolegal/internal/auth"
)

func (s *HTTPServer) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := auth.UserID(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id, true
}

func (s *HTTPServer) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	done, err := s.deps.Profiles.OnboardingCompleted(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": done})
}

func (s *HTTPServer) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.deps.Profiles.CompleteOnboarding(r.Context(), userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (s *HTTPServer) handleResetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.deps.Profiles.ResetOnboarding(r.Context(), userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": false})
}

// demoDevice returns the device id when demo mode is enabled.
func (s *HTTPServer) demoDevice(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !s.authCfg.DemoEnabled {
		writeError(w, http.StatusNotFound, "demo mode disabled")
		return "", false
	}
	return strings.TrimSpace(r.Header.Get(headerDeviceID)), true
}

func (s *HTTPServer) handleStartDemo(w http.ResponseWriter, r *http.Request) {
	device, ok := s.demoDevice(w, r)
	if !ok {
		return
	}
	userID, err := s.deps.Profiles.StartDemo(r.Context(), device)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": true, "user_id": userID})
}

func (s *HTTPServer) handleGetDemo(w http.ResponseWriter, r *http.Request) {
	device, ok := s.demoDevice(w, r)
	if !ok {
		return
	}
	userID, found, err := s.deps.Profiles.DemoUser(r.Context(), device)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": found, "user_id": userID})
}

func (s *HTTPServer) handleEndDemo(w http.ResponseWriter, r *http.Request) {
	device, ok := s.demoDevice(w, r)
	if !ok {
		return
	}
	if err := s.deps.Profiles.EndDemo(r.Context(), device); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
