package handlers

import (
	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
)

type CourseServiceInterface interface {
	GetCourses(uid string) (*dto.CourseListResponse, error)
	GetCourse(uid, courseID string) (*model.Course, error)
	CreateCourse(uid string, req dto.CreateCourseRequest) (*model.Course, error)
	ReplaceCourses(uid string, req dto.ReplaceCoursesRequest) error
	DeleteCourse(uid, courseID string) error
	RemoveFile(uid, courseID, fileName string) (*model.Course, error)
	IngestMaterials(uid, courseID string, files []dto.IngestFile, urls []string) (*dto.IngestResponse, error)
	SetSubModuleCompletion(uid, courseID string, moduleIndex, subIndex int, completed bool) (*dto.CourseProgressResponse, error)
	MarkSubModuleSeen(uid, courseID string, moduleIndex, subIndex int) error
	CourseProgress(uid, courseID string) (*dto.CourseProgressResponse, error)
	GetLessonSlides(uid, courseID string, moduleIndex, subIndex int) ([]model.LessonPhase, bool, error)
	GetQuiz(uid, courseID string, moduleIndex, subIndex, questionCount int) (*model.Quiz, bool, error)
	RetakeQuiz(uid, courseID string, moduleIndex, subIndex, questionCount int) (*model.Quiz, error)
	GetModuleQuiz(uid, courseID string, moduleIndex, questionCount int) (*model.Quiz, error)
	GradeQuiz(uid, courseID string, moduleIndex, subIndex int, req dto.GradeQuizRequest) (*dto.GradeQuizResponse, error)
	Chat(uid, courseID string, moduleIndex, subIndex int, req dto.ChatRequest) (*dto.ChatResponse, error)
}

type UserServiceInterface interface {
	GetProfile(uid string) (*dto.UserResponse, error)
	SaveProfile(uid string, req dto.SaveUserRequest) (*dto.UserResponse, error)
	UpdateProfile(uid string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
}

type NoteServiceInterface interface {
	GetNote(uid, courseID string, moduleIndex, subModuleIndex int) (*dto.NoteResponse, error)
	ListNotes(uid, courseID string) (*dto.NoteListResponse, error)
	SaveNote(uid string, req dto.SaveNoteRequest) (*dto.NoteResponse, error)
}
