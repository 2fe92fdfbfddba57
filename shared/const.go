package shared

const (
	UserID = "user_id"

	// Endpoint types for rate limiting the generation proxy
	EndpointOutline = "outline"
	EndpointLesson  = "lesson"
	EndpointQuiz    = "quiz"
	EndpointChat    = "chat"

	// Upload constraints carried over from the beta web client
	MaxUploadSizeBytes = 5 * 1024 * 1024
	PDFContentType     = "application/pdf"

	DefaultQuizQuestionCount = 5
)
