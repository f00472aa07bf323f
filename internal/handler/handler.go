package handler

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkgrade/inkgrade/internal/handler/views"
	appI18n "github.com/inkgrade/inkgrade/internal/i18n"
	"github.com/inkgrade/inkgrade/internal/model"
	"github.com/inkgrade/inkgrade/internal/service"
	"github.com/inkgrade/inkgrade/internal/store"
	"github.com/inkgrade/inkgrade/internal/upload"
)

const maxUploadBytes = 32 << 20

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	grading *service.GradingService
	uploads *upload.Store
	config  model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, grading *service.GradingService, uploads *upload.Store, cfg model.AppConfig) *Handler {
	return &Handler{store: s, grading: grading, uploads: uploads, config: cfg}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get("/exams/new", h.handleExamForm)
	r.Post("/exams/new", h.handleExamSubmit)
	r.Get("/take", h.handleTakeForm)
	r.Post("/take", h.handleTakeSubmit)
	r.Get("/submissions", h.handleSubmissionsList)
	r.Get("/submissions/{submissionID}", h.handleSubmissionDetail)

	r.Group(func(gr chi.Router) {
		gr.Use(h.csrfMiddleware)
		gr.Get("/login", h.handleLoginPage)
		gr.Post("/login", h.handleLogin)
		gr.Post("/logout", h.handleLogout)
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(h.csrfMiddleware)
		ar.Use(h.requireAuth)
		ar.Use(requireRole(model.UserRoleAdmin))
		ar.Get("/", h.handleAdminPage)
		ar.Post("/clear-submissions", h.handleClearSubmissions)
		ar.Post("/clear-exams", h.handleClearExams)
		ar.Post("/clear-uploads", h.handleClearUploads)
	})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Index(w, views.IndexData{
		Exams:   exams,
		Message: appI18n.T(r.Context(), "NoExams"),
	}); err != nil {
		slog.Error("render error", "error", err)
	}
}

func blankDraft() model.ExamDraft {
	return model.ExamDraft{
		Questions: []model.QuestionDraft{{Points: 10}},
	}
}

func (h *Handler) handleExamForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ExamForm(w, views.ExamFormData{Draft: blankDraft()}); err != nil {
		slog.Error("render error", "error", err)
	}
}

// draftFromForm rebuilds the in-progress draft from the posted form fields.
func draftFromForm(r *http.Request) model.ExamDraft {
	count, err := strconv.Atoi(r.FormValue("question_count"))
	if err != nil || count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}

	draft := model.ExamDraft{Title: r.FormValue("title")}
	for i := 0; i < count; i++ {
		idx := strconv.Itoa(i)
		points, err := strconv.Atoi(r.FormValue("q_points_" + idx))
		if err != nil || points < 1 {
			points = 10
		}
		draft.Questions = append(draft.Questions, model.QuestionDraft{
			Text:          r.FormValue("q_text_" + idx),
			CorrectAnswer: r.FormValue("q_answer_" + idx),
			Points:        points,
		})
	}
	return draft
}

func (h *Handler) handleExamSubmit(w http.ResponseWriter, r *http.Request) {
	draft := draftFromForm(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if r.FormValue("action") == "add" {
		draft.Questions = append(draft.Questions, model.QuestionDraft{Points: 10})
		if err := views.ExamForm(w, views.ExamFormData{Draft: draft}); err != nil {
			slog.Error("render error", "error", err)
		}
		return
	}

	if _, err := h.grading.CreateExam(draft); err != nil {
		if model.KindOf(err) == model.KindValidation {
			if err := views.ExamForm(w, views.ExamFormData{
				Draft: draft,
				Error: appI18n.T(r.Context(), "ExamFormError"),
			}); err != nil {
				slog.Error("render error", "error", err)
			}
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The draft is discarded on success; a fresh one replaces it.
	if err := views.ExamForm(w, views.ExamFormData{
		Draft:   blankDraft(),
		Message: appI18n.Td(r.Context(), "ExamCreated", map[string]any{"Title": draft.Title}),
	}); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleTakeForm(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := views.TakeData{Exams: exams}
	if examID, err := strconv.ParseInt(r.URL.Query().Get("exam"), 10, 64); err == nil {
		exam, err := h.store.GetExam(examID)
		if err == nil {
			questions, err := h.store.GetQuestionsForExam(exam.ID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			data.Selected = &exam
			data.Questions = questions
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Take(w, data); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleTakeSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "upload too large", http.StatusBadRequest)
		return
	}

	examID, _ := strconv.ParseInt(r.FormValue("exam_id"), 10, 64)
	req := model.SubmissionRequest{
		ExamID:      examID,
		StudentName: r.FormValue("student_name"),
		MatricNo:    r.FormValue("matric_number"),
		Department:  r.FormValue("department"),
	}

	questions, err := h.store.GetQuestionsForExam(examID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	images := make(map[int64]service.AnswerImage)
	for _, q := range questions {
		headers := r.MultipartForm.File["answer_q"+strconv.FormatInt(q.ID, 10)]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		images[q.ID] = service.AnswerImage{
			Filename: fh.Filename,
			MIME:     fh.Header.Get("Content-Type"),
			Data:     data,
		}
	}

	view, err := h.grading.GradeSubmission(r.Context(), req, images)
	if err != nil {
		if model.KindOf(err) == model.KindValidation {
			h.renderTakeError(w, r, examID, req)
			return
		}
		slog.Error("grade submission failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Results(w, views.ResultsData{View: view}); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) renderTakeError(w http.ResponseWriter, r *http.Request, examID int64, req model.SubmissionRequest) {
	exams, err := h.store.ListExams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := views.TakeData{
		Exams: exams,
		Req:   req,
		Error: appI18n.T(r.Context(), "IntakeFormError"),
	}
	if exam, err := h.store.GetExam(examID); err == nil {
		questions, err := h.store.GetQuestionsForExam(exam.ID)
		if err == nil {
			data.Selected = &exam
			data.Questions = questions
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	if err := views.Take(w, data); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleSubmissionsList(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubmissions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Submissions(w, views.SubmissionsData{
		Submissions: subs,
		Message:     appI18n.T(r.Context(), "NoSubmissions"),
	}); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleSubmissionDetail(w http.ResponseWriter, r *http.Request) {
	submissionID, err := strconv.ParseInt(chi.URLParam(r, "submissionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid submission ID", http.StatusBadRequest)
		return
	}

	view, err := h.store.GetSubmissionView(submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Submission(w, views.SubmissionData{View: view}); err != nil {
		slog.Error("render error", "error", err)
	}
}
