// Package views renders the HTML surface from embedded templates. Each page
// template defines a "content" block slotted into the shared layout.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/inkgrade/inkgrade/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"score": func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"finalScore": func(p *float64) string {
		if p == nil {
			return "Incomplete"
		}
		return fmt.Sprintf("%.2f", *p)
	},
	"inc": func(i int) int { return i + 1 },
}

func mustPage(file string) *template.Template {
	return template.Must(
		template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+file),
	)
}

var (
	indexTmpl       = mustPage("index.html")
	examFormTmpl    = mustPage("exam_form.html")
	takeTmpl        = mustPage("take.html")
	resultsTmpl     = mustPage("results.html")
	submissionsTmpl = mustPage("submissions.html")
	submissionTmpl  = mustPage("submission.html")
	adminTmpl       = mustPage("admin.html")
	loginTmpl       = mustPage("login.html")
)

// IndexData feeds the landing page.
type IndexData struct {
	Exams   []model.Exam
	Message string
}

// ExamFormData feeds the authoring form.
type ExamFormData struct {
	Draft   model.ExamDraft
	Error   string
	Message string
}

// TakeData feeds the intake form.
type TakeData struct {
	Exams     []model.Exam
	Selected  *model.Exam
	Questions []model.Question
	Req       model.SubmissionRequest
	Error     string
}

// ResultsData feeds the post-grading results page.
type ResultsData struct {
	View *model.SubmissionView
}

// SubmissionsData feeds the review list.
type SubmissionsData struct {
	Submissions []model.Submission
	Message     string
}

// SubmissionData feeds the review detail page.
type SubmissionData struct {
	View *model.SubmissionView
}

// AdminData feeds the admin page.
type AdminData struct {
	Stats     model.AdminStats
	Message   string
	Error     string
	CSRFToken string
}

// LoginData feeds the login page.
type LoginData struct {
	Error     string
	CSRFToken string
}

func Index(w io.Writer, data IndexData) error {
	return indexTmpl.ExecuteTemplate(w, "layout.html", data)
}

func ExamForm(w io.Writer, data ExamFormData) error {
	return examFormTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Take(w io.Writer, data TakeData) error {
	return takeTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Results(w io.Writer, data ResultsData) error {
	return resultsTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Submissions(w io.Writer, data SubmissionsData) error {
	return submissionsTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Submission(w io.Writer, data SubmissionData) error {
	return submissionTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Admin(w io.Writer, data AdminData) error {
	return adminTmpl.ExecuteTemplate(w, "layout.html", data)
}

func Login(w io.Writer, data LoginData) error {
	return loginTmpl.ExecuteTemplate(w, "layout.html", data)
}
