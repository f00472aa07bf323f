package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/inkgrade/inkgrade/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// Cascades on the two ownership edges depend on this pragma.
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		correct_answer TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 10,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		student_name TEXT NOT NULL,
		matric_number TEXT NOT NULL,
		department TEXT NOT NULL,
		final_score REAL,
		total_points INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		extracted_text TEXT NOT NULL DEFAULT '',
		awarded_score REAL NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam persists an exam with its questions in one transaction,
// preserving entry order as position order.
func (s *Store) CreateExam(title string, questions []model.Question) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO exams (title, created_at) VALUES (?, ?)`, title, time.Now())
	if err != nil {
		return 0, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, q := range questions {
		_, err := tx.Exec(
			`INSERT INTO questions (exam_id, position, question_text, correct_answer, points)
			 VALUES (?, ?, ?, ?, ?)`,
			examID, i+1, q.Text, q.CorrectAnswer, q.Points,
		)
		if err != nil {
			return 0, err
		}
	}

	return examID, tx.Commit()
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, title, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.CreatedAt)
	return e, err
}

// ListExams returns all exams in creation order.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT id, title, created_at FROM exams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetQuestionsForExam returns an exam's questions in authoring order.
func (s *Store) GetQuestionsForExam(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, position, question_text, correct_answer, points
		 FROM questions WHERE exam_id = ? ORDER BY position`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Text, &q.CorrectAnswer, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, exam_id, position, question_text, correct_answer, points FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.ExamID, &q.Position, &q.Text, &q.CorrectAnswer, &q.Points)
	return q, err
}

// CreateSubmission records the start of a grading run. TotalPoints must be
// the sum of the exam's question points at this moment.
func (s *Store) CreateSubmission(sub model.Submission) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO submissions (exam_id, student_name, matric_number, department, total_points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ExamID, sub.StudentName, sub.MatricNo, sub.Department, sub.TotalPoints, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSubmission returns a submission by ID.
func (s *Store) GetSubmission(id int64) (model.Submission, error) {
	var sub model.Submission
	err := s.db.QueryRow(
		`SELECT id, exam_id, student_name, matric_number, department, final_score, total_points, created_at
		 FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.MatricNo, &sub.Department,
		&sub.FinalScore, &sub.TotalPoints, &sub.CreatedAt)
	return sub, err
}

// ListSubmissions returns all submissions, newest first.
func (s *Store) ListSubmissions() ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, student_name, matric_number, department, final_score, total_points, created_at
		 FROM submissions ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentName, &sub.MatricNo, &sub.Department,
			&sub.FinalScore, &sub.TotalPoints, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// AddAnswer inserts a graded answer.
func (s *Store) AddAnswer(a model.Answer) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO answers (submission_id, question_id, extracted_text, awarded_score, feedback)
		 VALUES (?, ?, ?, ?, ?)`,
		a.SubmissionID, a.QuestionID, a.ExtractedText, a.AwardedScore, a.Feedback,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAnswersForSubmission returns a submission's answers in grading order.
func (s *Store) GetAnswersForSubmission(submissionID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT id, submission_id, question_id, extracted_text, awarded_score, feedback
		 FROM answers WHERE submission_id = ? ORDER BY id`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.ExtractedText, &a.AwardedScore, &a.Feedback); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// FinalizeSubmission writes the final score once all answers are stored.
// This is the only update a submission ever receives.
func (s *Store) FinalizeSubmission(id int64, finalScore float64) error {
	_, err := s.db.Exec(`UPDATE submissions SET final_score = ? WHERE id = ?`, finalScore, id)
	return err
}

// GetSubmissionView builds a full view of a submission with its exam and
// each answer paired with its question.
func (s *Store) GetSubmissionView(submissionID int64) (*model.SubmissionView, error) {
	sub, err := s.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}
	exam, err := s.GetExam(sub.ExamID)
	if err != nil {
		return nil, err
	}
	answers, err := s.GetAnswersForSubmission(submissionID)
	if err != nil {
		return nil, err
	}

	var answerViews []model.AnswerView
	for _, a := range answers {
		q, err := s.GetQuestion(a.QuestionID)
		if err != nil {
			return nil, err
		}
		answerViews = append(answerViews, model.AnswerView{Answer: a, Question: q})
	}

	return &model.SubmissionView{
		Submission: sub,
		Exam:       exam,
		Answers:    answerViews,
	}, nil
}

// ExamCount returns the number of exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

// QuestionCount returns the number of questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// SubmissionCount returns the number of submissions.
func (s *Store) SubmissionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&count)
	return count, err
}

// AnswerCount returns the number of answers.
func (s *Store) AnswerCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM answers`).Scan(&count)
	return count, err
}

// ClearSubmissions deletes all submissions and their answers in one
// transaction. A failure leaves row counts unchanged.
func (s *Store) ClearSubmissions() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM answers`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM submissions`); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearExams deletes all exams, questions, submissions, and answers in one
// transaction. A failure leaves row counts unchanged.
func (s *Store) ClearExams() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM answers`,
		`DELETE FROM submissions`,
		`DELETE FROM questions`,
		`DELETE FROM exams`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteExam removes one exam; its questions go with it via the cascade.
// It fails while any submission still references the exam; ClearExams is
// the path that removes exams together with their submissions.
func (s *Store) DeleteExam(id int64) error {
	_, err := s.db.Exec(`DELETE FROM exams WHERE id = ?`, id)
	return err
}

// DeleteSubmission removes one submission; its answers go with it via the cascade.
func (s *Store) DeleteSubmission(id int64) error {
	_, err := s.db.Exec(`DELETE FROM submissions WHERE id = ?`, id)
	return err
}
