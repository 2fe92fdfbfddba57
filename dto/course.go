package dto

import (
	"github.com/scaffold-ai/scaffold_api/model"
)

type CreateCourseRequest struct {
	// ID is optional; the web client may bring its own opaque token,
	// otherwise the server generates one.
	ID    string `json:"id"`
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// ReplaceCoursesRequest rewrites the owner's whole course list in one
// save. There is no partial update endpoint.
type ReplaceCoursesRequest struct {
	Courses []model.Course `json:"courses" validate:"required"`
}

type CourseListResponse struct {
	Courses   []model.Course `json:"courses"`
	UpdatedAt string         `json:"updatedAt,omitempty"`
}

type CourseProgressResponse struct {
	CourseID  string  `json:"courseId"`
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
}

// IngestResponse reports the outcome of merging freshly generated
// outline content into a course. Zero new modules is a valid,
// non-error outcome.
type IngestResponse struct {
	Course     model.Course `json:"course"`
	NewModules int          `json:"newModules"`
	NewFiles   int          `json:"newFiles"`
}

type GradeQuizRequest struct {
	// Answers holds the selected option text per question, in
	// question order. Unanswered questions may be empty strings.
	Answers []string `json:"answers" validate:"required"`
}

type QuizQuestionResult struct {
	Question      string `json:"question"`
	Selected      string `json:"selected"`
	CorrectOption string `json:"correctOption"`
	Correct       bool   `json:"correct"`
}

type GradeQuizResponse struct {
	Score     int                  `json:"score"` // percent, rounded
	Correct   int                  `json:"correct"`
	Total     int                  `json:"total"`
	Results   []QuizQuestionResult `json:"results"`
	Completed bool                 `json:"completed"`
}

type ChatRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

type ChatResponse struct {
	Message string              `json:"message"`
	History []model.ChatMessage `json:"history,omitempty"`
}
