package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
	"github.com/scaffold-ai/scaffold_api/shared"
)

func newTestSql(t *testing.T) *SqlService {
	t.Helper()
	s := &SqlService{database: ":memory:"}
	require.NoError(t, s.Start())
	return s
}

func newTestCourseService(t *testing.T, upstream http.Handler) (*CourseService, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(upstream)
	t.Cleanup(ts.Close)

	svc := &CourseService{
		sqlSvc: newTestSql(t),
		genSvc: &GenerationService{
			httpClient:  ts.Client(),
			baseURL:     ts.URL,
			maxAttempts: 3,
			backoffBase: time.Millisecond,
		},
	}
	return svc, ts
}

func seedCourses(t *testing.T, svc *CourseService, uid string, courses ...model.Course) {
	t.Helper()
	require.NoError(t, svc.sqlSvc.SaveCourses(uid, courses))
}

func lessonUpstream(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		_ = json.NewEncoder(w).Encode(dto.LessonContentResponse{
			TopicTitle: "Vectors",
			LessonPhases: []model.LessonPhase{
				{PhaseName: "intro", Steps: []model.LessonStep{{Narration: "hi", Board: "v = (x, y)"}}},
			},
		})
	})
}

func quizUpstream(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		_ = json.NewEncoder(w).Encode(model.Quiz{
			TopicTitle: fmt.Sprintf("Vectors #%d", n),
			Flashcards: []model.QuizQuestion{
				{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, Answer: "B"},
			},
		})
	})
}

func TestLessonGeneratedOnceThenCached(t *testing.T) {
	var calls int32
	svc, _ := newTestCourseService(t, lessonUpstream(&calls))
	seedCourses(t, svc, "u1", *seedCourse())

	slides, cached, err := svc.GetLessonSlides("u1", "c1", 0, 0)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, slides, 1)

	slides, cached, err = svc.GetLessonSlides("u1", "c1", 0, 0)
	require.NoError(t, err)
	assert.True(t, cached)
	require.Len(t, slides, 1)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second read must be served from the stored deck")

	// The cached deck survives a reload from the database
	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.Len(t, courses[0].Modules[0].SubModules[0].Slides, 1)
}

func TestQuizCachedAndRetakeRegenerates(t *testing.T) {
	var calls int32
	svc, _ := newTestCourseService(t, quizUpstream(&calls))
	seedCourses(t, svc, "u1", *seedCourse())

	quiz, cached, err := svc.GetQuiz("u1", "c1", 0, 0, 5)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Vectors #1", quiz.TopicTitle)

	quiz, cached, err = svc.GetQuiz("u1", "c1", 0, 0, 5)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Vectors #1", quiz.TopicTitle)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	quiz, err = svc.RetakeQuiz("u1", "c1", 0, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "Vectors #2", quiz.TopicTitle)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// The retake overwrote the stored quiz
	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.Equal(t, "Vectors #2", courses[0].Modules[0].SubModules[0].Quiz.TopicTitle)
}

func TestGradeQuiz(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())

	course := *seedCourse()
	course.Modules[0].SubModules[0].Quiz = &model.Quiz{
		TopicTitle: "Velocity",
		Flashcards: []model.QuizQuestion{
			{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, Answer: "B"},
			{Question: "3*3?", Options: []string{"6", "7", "8", "9"}, Answer: "D"},
		},
	}
	seedCourses(t, svc, "u1", course)

	resp, err := svc.GradeQuiz("u1", "c1", 0, 0, dto.GradeQuizRequest{Answers: []string{"4", "6"}})
	require.NoError(t, err)

	assert.Equal(t, 50, resp.Score)
	assert.Equal(t, 1, resp.Correct)
	assert.Equal(t, 2, resp.Total)
	assert.True(t, resp.Completed)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Correct)
	assert.False(t, resp.Results[1].Correct)
	assert.Equal(t, "9", resp.Results[1].CorrectOption)

	// Finishing the quiz completes the submodule
	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.True(t, courses[0].Modules[0].SubModules[0].Completed)
}

func TestGradeQuizWithoutCachedQuiz(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	_, err := svc.GradeQuiz("u1", "c1", 0, 0, dto.GradeQuizRequest{Answers: []string{"4"}})
	require.Error(t, err)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestSetSubModuleCompletionPropagates(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	progress, err := svc.SetSubModuleCompletion("u1", "c1", 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, float64(50), progress.Progress)
	assert.False(t, progress.Completed)

	progress, err = svc.SetSubModuleCompletion("u1", "c1", 0, 1, true)
	require.NoError(t, err)
	assert.Equal(t, float64(100), progress.Progress)
	assert.True(t, progress.Completed)

	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.True(t, courses[0].Modules[0].Completed)

	// Un-marking folds the module back to incomplete
	progress, err = svc.SetSubModuleCompletion("u1", "c1", 0, 1, false)
	require.NoError(t, err)
	assert.False(t, progress.Completed)

	courses, err = svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.False(t, courses[0].Modules[0].Completed)
}

func TestSetSubModuleCompletionBounds(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	_, err := svc.SetSubModuleCompletion("u1", "c1", 5, 0, true)
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)

	_, err = svc.SetSubModuleCompletion("u1", "missing", 0, 0, true)
	appErr, ok = shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestMarkSeenLeavesCompletionAlone(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())

	course := *seedCourse()
	course.Modules[0].IsNew = true
	course.Modules[0].SubModules[0].IsNew = true
	course.Modules[0].SubModules[1].IsNew = true
	seedCourses(t, svc, "u1", course)

	require.NoError(t, svc.MarkSubModuleSeen("u1", "c1", 0, 0))

	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	module := courses[0].Modules[0]
	assert.False(t, module.SubModules[0].IsNew)
	assert.True(t, module.IsNew, "one unseen submodule keeps the module new")
	assert.False(t, module.SubModules[0].Completed)

	require.NoError(t, svc.MarkSubModuleSeen("u1", "c1", 0, 1))

	courses, err = svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.False(t, courses[0].Modules[0].IsNew)
}

func TestIngestMaterialsMergesOutline(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.OutlineResponse{
			Topics: []dto.OutlineTopic{
				{Title: "Kinematics", Summary: "dup"},
				{Title: "Dynamics", Summary: "fresh", Subtopics: []string{"Newton's Laws"}},
			},
		})
	})
	svc, _ := newTestCourseService(t, upstream)
	seedCourses(t, svc, "u1", *seedCourse())

	files := []dto.IngestFile{
		{Name: "forces.pdf", ContentType: shared.PDFContentType, Data: []byte("pdf bytes")},
	}
	resp, err := svc.IngestMaterials("u1", "c1", files, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.NewModules)
	assert.Equal(t, 1, resp.NewFiles)
	assert.Len(t, resp.Course.Modules, 2)
	assert.Equal(t, "Dynamics", resp.Course.Modules[1].Title)
	assert.True(t, resp.Course.Modules[1].IsNew)

	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.Len(t, courses[0].Modules, 2)
	assert.Len(t, courses[0].Files, 2)
}

func TestIngestMaterialsRejectsNonPDF(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	files := []dto.IngestFile{{Name: "notes.txt", ContentType: "text/plain", Data: []byte("x")}}
	_, err := svc.IngestMaterials("u1", "c1", files, nil)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestIngestMaterialsRequiresInput(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	_, err := svc.IngestMaterials("u1", "c1", nil, nil)

	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestChatAppendsHistory(t *testing.T) {
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.ChatbotResponse{Message: "A vector has magnitude and direction."})
	})
	svc, _ := newTestCourseService(t, upstream)
	seedCourses(t, svc, "u1", *seedCourse())

	resp, err := svc.Chat("u1", "c1", 0, 0, dto.ChatRequest{Text: "what is a vector?"})
	require.NoError(t, err)

	assert.Equal(t, "A vector has magnitude and direction.", resp.Message)
	require.Len(t, resp.History, 2)
	assert.Equal(t, "user", resp.History[0].Role)
	assert.Equal(t, "assistant", resp.History[1].Role)

	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.Len(t, courses[0].Modules[0].SubModules[0].ChatHistory, 2)
}

func TestCreateCourse(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())

	course, err := svc.CreateCourse("u1", dto.CreateCourseRequest{Title: "Chemistry"})
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, "Chemistry", course.Title)

	// Duplicate explicit id is rejected
	_, err = svc.CreateCourse("u1", dto.CreateCourseRequest{ID: course.ID, Title: "Chemistry II"})
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestGetCourseNotFound(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())

	_, err := svc.GetCourse("u1", "nope")
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestDeleteCourse(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	require.NoError(t, svc.DeleteCourse("u1", "c1"))

	courses, err := svc.sqlSvc.LoadCourses("u1")
	require.NoError(t, err)
	assert.Empty(t, courses)

	err = svc.DeleteCourse("u1", "c1")
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestCoursesAreIsolatedPerOwner(t *testing.T) {
	svc, _ := newTestCourseService(t, http.NotFoundHandler())
	seedCourses(t, svc, "u1", *seedCourse())

	resp, err := svc.GetCourses("u2")
	require.NoError(t, err)
	assert.Empty(t, resp.Courses)

	_, err = svc.GetCourse("u2", "c1")
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestPersonalizationAffectsGeneration(t *testing.T) {
	var adapt, analogy string
	upstream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		adapt = payload["adapt"]
		analogy = payload["analogy"]
		_ = json.NewEncoder(w).Encode(dto.LessonContentResponse{
			LessonPhases: []model.LessonPhase{{PhaseName: "intro"}},
		})
	})
	svc, _ := newTestCourseService(t, upstream)
	seedCourses(t, svc, "u1", *seedCourse())

	require.NoError(t, svc.sqlSvc.SaveUser(&model.User{
		UID: "u1", Email: "a@b.c", Name: "A", AdaptLevel: 9, Analogy: "football",
	}))

	_, _, err := svc.GetLessonSlides("u1", "c1", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "9", adapt)
	assert.Equal(t, "football", analogy)
}
