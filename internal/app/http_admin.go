package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"civicvoice/api/internal/store"
)

// routeAdmin handles /api/admin/* once the moderate gate has passed.
// parts holds the path segments after "admin".
func (s *HTTPServer) routeAdmin(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 2 && parts[0] == "complaints" && parts[1] == "all" && r.Method == http.MethodGet {
		items, err := s.service.AdminComplaints(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"complaints": items})
		return
	}

	if len(parts) == 3 && parts[0] == "complaints" && r.Method == http.MethodPatch {
		id := parts[1]
		switch parts[2] {
		case "status":
			var body struct {
				Status    string `json:"status"`
				PartnerID string `json:"partnerId"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			updated, err := s.service.UpdateStatus(r.Context(), id, body.Status, body.PartnerID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
			return

		case "strike":
			updated, err := s.service.Strike(r.Context(), id)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
			return

		case "assign":
			var body struct {
				PartnerID string `json:"partnerId"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			updated, err := s.service.AssignPartner(r.Context(), id, body.PartnerID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
			return
		}
	}

	if len(parts) == 1 && parts[0] == "partners" && r.Method == http.MethodGet {
		partners, err := s.service.PartnersByCategory(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"partners": partners})
		return
	}

	if len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet {
		users, err := s.service.AdminUsers(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
		return
	}

	if len(parts) == 3 && parts[0] == "users" && parts[2] == "block" && r.Method == http.MethodPatch {
		var body struct {
			Blocked *bool `json:"blocked"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		// Missing flag means block; the original toggle endpoint only blocked.
		blocked := true
		if body.Blocked != nil {
			blocked = *body.Blocked
		}
		user, err := s.service.SetUserBlocked(r.Context(), parts[1], blocked)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// routeSuperadmin handles /api/superadmin/* once the provision gate has
// passed. parts holds the path segments after "superadmin".
func (s *HTTPServer) routeSuperadmin(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 1 && r.Method == http.MethodPost && (parts[0] == "create-admin" || parts[0] == "create-staff") {
		var body struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Category string `json:"category"`
			Zone     string `json:"zone"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		role := "admin"
		if parts[0] == "create-staff" {
			role = "partner"
		}
		user, err := s.service.CreateStaff(r.Context(), CreateStaffInput{
			Name:     body.Name,
			Email:    body.Email,
			Password: body.Password,
			Role:     role,
			Category: store.Category(body.Category),
			ZoneID:   body.Zone,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
		return
	}

	// "locations" is the older client's name for zones.
	if len(parts) == 1 && r.Method == http.MethodPost && (parts[0] == "zones" || parts[0] == "locations") {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		zone, err := s.service.CreateZone(r.Context(), body.Name, body.Description)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"zone": zone})
		return
	}

	if len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet {
		users, err := s.service.AdminUsers(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
		return
	}

	if len(parts) == 3 && parts[0] == "users" && parts[2] == "role" && r.Method == http.MethodPatch {
		var body struct {
			Role string `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.ChangeRole(r.Context(), parts[1], body.Role)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// routePartner handles /api/partner/* once the workflow gate has passed.
// parts holds the path segments after "partner".
func (s *HTTPServer) routePartner(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 1 && parts[0] == "complaints" && r.Method == http.MethodGet {
		items, err := s.service.PartnerQueue(r.Context(), session)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"complaints": items})
		return
	}

	if len(parts) == 3 && parts[0] == "complaints" && r.Method == http.MethodPatch {
		id := parts[1]
		switch parts[2] {
		case "accept":
			var body struct {
				TentativeDate   string `json:"tentativeDate"`
				AssignedWorkers string `json:"assignedWorkers"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			tentative, err := parseDate(body.TentativeDate)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
				return
			}
			updated, err := s.service.PartnerAccept(r.Context(), session, id, tentative, body.AssignedWorkers)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
			return

		case "reject":
			var body struct {
				Reason string `json:"reason"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			updated, err := s.service.PartnerReject(r.Context(), session, id, body.Reason)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
			return

		case "resolve":
			s.handlePartnerResolve(w, r, session, id)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handlePartnerResolve accepts a multipart form carrying the feedback text
// and the resolution photo.
func (s *HTTPServer) handlePartnerResolve(w http.ResponseWriter, r *http.Request, session Session, id string) {
	var feedback string
	var image *ImageUpload
	cleanup := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
			return
		}
		feedback = r.FormValue("feedback")
		upload, closeFile, err := formImage(r, "resolutionImage")
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if upload == nil {
			upload, closeFile, err = formImage(r, "image")
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
		}
		image = upload
		cleanup = closeFile
	} else {
		var body struct {
			Feedback string `json:"feedback"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		feedback = body.Feedback
	}
	defer cleanup()

	updated, err := s.service.PartnerResolve(r.Context(), session, id, feedback, image)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"complaint": updated})
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("tentativeDate is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("tentativeDate must be RFC 3339 or YYYY-MM-DD")
}
