package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/inkgrade/inkgrade/internal/handler/views"
	appI18n "github.com/inkgrade/inkgrade/internal/i18n"
	"github.com/inkgrade/inkgrade/internal/model"
)

func (h *Handler) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.grading.Stats()
	if err != nil {
		slog.Error("failed to gather admin stats", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var message string
	switch r.URL.Query().Get("cleared") {
	case "submissions":
		message = appI18n.T(r.Context(), "SubmissionsCleared")
	case "exams":
		message = appI18n.T(r.Context(), "ExamsCleared")
	case "uploads":
		message = appI18n.T(r.Context(), "UploadsCleared")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Admin(w, views.AdminData{
		Stats:     stats,
		Message:   message,
		Error:     r.URL.Query().Get("error"),
		CSRFToken: model.CSRFTokenFromContext(r.Context()),
	}); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleClearSubmissions(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearSubmissions(); err != nil {
		slog.Error("failed to clear submissions", "error", err)
		http.Redirect(w, r, "/admin?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	slog.Info("cleared all submissions")
	http.Redirect(w, r, "/admin?cleared=submissions", http.StatusSeeOther)
}

func (h *Handler) handleClearExams(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearExams(); err != nil {
		slog.Error("failed to clear exams", "error", err)
		http.Redirect(w, r, "/admin?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	slog.Info("cleared all exams and submissions")
	http.Redirect(w, r, "/admin?cleared=exams", http.StatusSeeOther)
}

func (h *Handler) handleClearUploads(w http.ResponseWriter, r *http.Request) {
	if err := h.uploads.Clear(); err != nil {
		slog.Error("failed to clear uploads", "error", err)
		http.Redirect(w, r, "/admin?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	slog.Info("cleared uploads folder")
	http.Redirect(w, r, "/admin?cleared=uploads", http.StatusSeeOther)
}
