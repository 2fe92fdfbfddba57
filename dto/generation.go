package dto

import (
	"github.com/scaffold-ai/scaffold_api/model"
)

// Wire shapes of the external generation backend. Stored payloads
// (model.LessonPhase, model.Quiz) are reused verbatim so cached
// content round-trips without translation.

// IngestFile is one uploaded source file, buffered so the multipart
// body can be rebuilt on retry.
type IngestFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type OutlineTopic struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Subtopics []string `json:"subtopics"`
}

type OutlineResponse struct {
	Topics []OutlineTopic `json:"topics"`
}

type LessonContentResponse struct {
	TopicTitle   string              `json:"topic_title"`
	LessonPhases []model.LessonPhase `json:"lesson_phases"`
}

type ChatbotResponse struct {
	Message string `json:"message"`
}
