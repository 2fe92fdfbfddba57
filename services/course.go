package services

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
	"github.com/scaffold-ai/scaffold_api/shared"
)

// CourseService owns the course tree: merging generated outlines,
// completion propagation, and the fetch-once cache for generated
// lesson and quiz content. Every mutation rewrites the owner's whole
// course list through SqlService.
type CourseService struct {
	appContext.DefaultService

	sqlSvc   *SqlService
	genSvc   *GenerationService
	minioSvc *MinIOService
}

const COURSE_SVC = "course_svc"

func (svc CourseService) Id() string {
	return COURSE_SVC
}

func (svc *CourseService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *CourseService) Start() error {
	svc.sqlSvc = svc.Service(SQL_SVC).(*SqlService)
	svc.genSvc = svc.Service(GENERATION_SVC).(*GenerationService)
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

// ==================== COURSE CRUD ====================

func (svc *CourseService) GetCourses(uid string) (*dto.CourseListResponse, error) {
	doc, err := svc.sqlSvc.LoadCourseDocument(uid)
	if err != nil {
		return nil, err
	}

	resp := &dto.CourseListResponse{Courses: []model.Course{}}
	if doc == nil {
		return resp, nil
	}

	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	resp.Courses = courses
	resp.UpdatedAt = doc.UpdatedAt.UTC().Format(time.RFC3339)
	return resp, nil
}

func (svc *CourseService) GetCourse(uid, courseID string) (*model.Course, error) {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		if courses[i].ID == courseID {
			return &courses[i], nil
		}
	}
	return nil, shared.NewNotFoundError("course not found")
}

func (svc *CourseService) CreateCourse(uid string, req dto.CreateCourseRequest) (*model.Course, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError("Validation failed", dto.FormatValidationErrors(err))
	}

	course := model.Course{
		ID:        req.ID,
		Title:     strings.TrimSpace(req.Title),
		Modules:   []model.Module{},
		Files:     []model.UploadedFile{},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if course.ID == "" {
		course.ID = uuid.New().String()
	}

	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		if c.ID == course.ID {
			return nil, shared.NewBadRequestError("course id already exists", nil)
		}
	}

	courses = append(courses, course)
	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, err
	}
	return &course, nil
}

// ReplaceCourses rewrites the owner's whole list in one save. This is
// the raw persistence surface the web client uses; last write wins
// across tabs.
func (svc *CourseService) ReplaceCourses(uid string, req dto.ReplaceCoursesRequest) error {
	if req.Courses == nil {
		return shared.NewBadRequestError("courses array is required", nil)
	}
	return svc.saveCourses(uid, req.Courses)
}

func (svc *CourseService) DeleteCourse(uid, courseID string) error {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return err
	}

	var removed *model.Course
	filtered := make([]model.Course, 0, len(courses))
	for i := range courses {
		if courses[i].ID == courseID {
			removed = &courses[i]
			continue
		}
		filtered = append(filtered, courses[i])
	}
	if removed == nil {
		return shared.NewNotFoundError("course not found")
	}

	if err := svc.saveCourses(uid, filtered); err != nil {
		return err
	}
	svc.removeStoredFiles(uid, removed.Files)
	return nil
}

// RemoveFile drops one file record from a course. Modules generated
// from it stay; only the record and the stored object go.
func (svc *CourseService) RemoveFile(uid, courseID, fileName string) (*model.Course, error) {
	var updated *model.Course
	err := svc.updateCourse(uid, courseID, func(course *model.Course) error {
		filtered := make([]model.UploadedFile, 0, len(course.Files))
		for _, f := range course.Files {
			if f.Name == fileName {
				continue
			}
			filtered = append(filtered, f)
		}
		course.Files = filtered
		updated = course
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.removeStoredFiles(uid, []model.UploadedFile{{Name: fileName}})
	return updated, nil
}

func (svc *CourseService) removeStoredFiles(uid string, files []model.UploadedFile) {
	if svc.minioSvc == nil {
		return
	}
	ctx := context.Background()
	for _, f := range files {
		if err := svc.minioSvc.RemoveDocument(ctx, uid, f.Name); err != nil {
			log.WithError(err).WithField("file", f.Name).Warn("Failed to remove stored document")
		}
	}
}

// ==================== MATERIAL INGESTION & MERGE ====================

// IngestMaterials stores the uploads, asks the generation backend for
// an outline, and merges the result into the course without
// duplicating modules or files. Zero new unique modules is a valid,
// non-error outcome.
func (svc *CourseService) IngestMaterials(uid, courseID string, files []dto.IngestFile, urls []string) (*dto.IngestResponse, error) {
	if len(files) == 0 && len(urls) == 0 {
		return nil, shared.NewBadRequestError("at least one file or url is required", nil)
	}
	for _, f := range files {
		if int64(len(f.Data)) > shared.MaxUploadSizeBytes {
			return nil, shared.NewBadRequestError(
				fmt.Sprintf("file %s exceeds the %dMB limit", f.Name, shared.MaxUploadSizeBytes/(1024*1024)), nil)
		}
		if f.ContentType != shared.PDFContentType {
			return nil, shared.NewBadRequestError("only PDF files are supported", nil)
		}
	}

	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, shared.NewNotFoundError("course not found")
	}

	if svc.minioSvc != nil {
		ctx := context.Background()
		for _, f := range files {
			if _, err := svc.minioSvc.StoreDocument(ctx, uid, f.Name, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType); err != nil {
				log.WithError(err).WithField("file", f.Name).Warn("Failed to store source document")
			}
		}
	}

	outline, err := svc.genSvc.GenerateOutline(uid, files, urls, existingOutline(course))
	if err != nil {
		return nil, err
	}

	newModules, newFiles := mergeOutline(course, outline.Topics, files, time.Now().UTC())

	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"course_id":   courseID,
		"new_modules": newModules,
		"new_files":   newFiles,
	}).Info("Merged generated outline")

	return &dto.IngestResponse{
		Course:     *course,
		NewModules: newModules,
		NewFiles:   newFiles,
	}, nil
}

// existingOutline rebuilds the outline the course already has so the
// backend's update endpoint can skip known topics.
func existingOutline(course *model.Course) *dto.OutlineResponse {
	if len(course.Modules) == 0 {
		return nil
	}
	topics := make([]dto.OutlineTopic, len(course.Modules))
	for i, m := range course.Modules {
		topics[i] = dto.OutlineTopic{
			Title:     m.Title,
			Summary:   m.Summary,
			Subtopics: m.Subtopics,
		}
	}
	return &dto.OutlineResponse{Topics: topics}
}

// mergeOutline integrates generated topics and the triggering uploads
// into the course. Dedup is by normalized title/name,
// first-write-wins for a module's definition; existing entries are
// never removed or reordered. Duplicates are a silent no-op.
func mergeOutline(course *model.Course, topics []dto.OutlineTopic, files []dto.IngestFile, now time.Time) (newModules, newFiles int) {
	timestamp := now.Format(time.RFC3339)

	moduleTitles := course.ModuleTitleSet()
	for _, topic := range topics {
		key := model.NormalizeTitle(topic.Title)
		if key == "" {
			continue
		}
		if _, exists := moduleTitles[key]; exists {
			continue
		}
		moduleTitles[key] = struct{}{}

		subModules := make([]model.SubModule, len(topic.Subtopics))
		for i, sub := range topic.Subtopics {
			subModules[i] = model.SubModule{
				Title:   sub,
				IsNew:   true,
				AddedAt: timestamp,
			}
		}

		course.Modules = append(course.Modules, model.Module{
			Title:      topic.Title,
			Summary:    topic.Summary,
			Subtopics:  topic.Subtopics,
			SubModules: subModules,
			IsNew:      true,
			AddedAt:    timestamp,
		})
		newModules++
	}

	fileNames := course.FileNameSet()
	for _, f := range files {
		key := model.NormalizeTitle(f.Name)
		if _, exists := fileNames[key]; exists {
			continue
		}
		fileNames[key] = struct{}{}

		course.Files = append(course.Files, model.UploadedFile{
			Name:       f.Name,
			Size:       int64(len(f.Data)),
			UploadedAt: timestamp,
		})
		newFiles++
	}

	return newModules, newFiles
}

// ==================== COMPLETION & SEEN PROPAGATION ====================

// SetSubModuleCompletion flips one submodule and refolds the module
// flag. Course-level completion stays derived on read.
func (svc *CourseService) SetSubModuleCompletion(uid, courseID string, moduleIndex, subIndex int, completed bool) (*dto.CourseProgressResponse, error) {
	var progress *dto.CourseProgressResponse
	err := svc.updateCourse(uid, courseID, func(course *model.Course) error {
		sub, module, err := locateSubModule(course, moduleIndex, subIndex)
		if err != nil {
			return err
		}
		sub.Completed = completed
		module.RecomputeCompleted()
		progress = &dto.CourseProgressResponse{
			CourseID:  course.ID,
			Progress:  course.Progress(),
			Completed: course.Completed(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// MarkSubModuleSeen clears the isNew hint after a visit. Visiting
// content does not imply completing it: this fold only ever touches
// the isNew fields.
func (svc *CourseService) MarkSubModuleSeen(uid, courseID string, moduleIndex, subIndex int) error {
	return svc.updateCourse(uid, courseID, func(course *model.Course) error {
		sub, module, err := locateSubModule(course, moduleIndex, subIndex)
		if err != nil {
			return err
		}
		sub.IsNew = false
		module.RecomputeSeen()
		return nil
	})
}

func (svc *CourseService) CourseProgress(uid, courseID string) (*dto.CourseProgressResponse, error) {
	course, err := svc.GetCourse(uid, courseID)
	if err != nil {
		return nil, err
	}
	return &dto.CourseProgressResponse{
		CourseID:  course.ID,
		Progress:  course.Progress(),
		Completed: course.Completed(),
	}, nil
}

// ==================== LAZY-GENERATION CACHE ====================

// GetLessonSlides serves the cached deck when present; otherwise it
// generates once with the owner's personalization and persists the
// payload on the submodule before returning it.
func (svc *CourseService) GetLessonSlides(uid, courseID string, moduleIndex, subIndex int) ([]model.LessonPhase, bool, error) {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, false, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, false, shared.NewNotFoundError("course not found")
	}
	sub, module, err := locateSubModule(course, moduleIndex, subIndex)
	if err != nil {
		return nil, false, err
	}

	if len(sub.Slides) > 0 {
		return sub.Slides, true, nil
	}

	adaptLevel, analogy := svc.personalization(uid)
	lesson, err := svc.genSvc.GenerateLesson(module.Title, sub.Title, adaptLevel, analogy, uid)
	if err != nil {
		return nil, false, err
	}

	sub.Slides = lesson.LessonPhases
	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, false, err
	}
	return sub.Slides, false, nil
}

// GetQuiz is the quiz counterpart of GetLessonSlides.
func (svc *CourseService) GetQuiz(uid, courseID string, moduleIndex, subIndex, questionCount int) (*model.Quiz, bool, error) {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, false, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, false, shared.NewNotFoundError("course not found")
	}
	sub, module, err := locateSubModule(course, moduleIndex, subIndex)
	if err != nil {
		return nil, false, err
	}

	if sub.Quiz != nil {
		return sub.Quiz, true, nil
	}

	quiz, err := svc.genSvc.GenerateQuiz(module.Title, sub.Title, uid, questionCount)
	if err != nil {
		return nil, false, err
	}

	sub.Quiz = quiz
	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, false, err
	}
	return quiz, false, nil
}

// RetakeQuiz discards the cached quiz and forces one regeneration.
// This is the only sanctioned way back from a cached quiz.
func (svc *CourseService) RetakeQuiz(uid, courseID string, moduleIndex, subIndex, questionCount int) (*model.Quiz, error) {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, shared.NewNotFoundError("course not found")
	}
	sub, module, err := locateSubModule(course, moduleIndex, subIndex)
	if err != nil {
		return nil, err
	}

	quiz, err := svc.genSvc.GenerateQuiz(module.Title, sub.Title, uid, questionCount)
	if err != nil {
		return nil, err
	}

	sub.Quiz = quiz
	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, err
	}
	return quiz, nil
}

// GetModuleQuiz generates a module-level quiz covering all subtopics.
// The entity has no cache slot for it, so it is generated per request.
func (svc *CourseService) GetModuleQuiz(uid, courseID string, moduleIndex, questionCount int) (*model.Quiz, error) {
	course, err := svc.GetCourse(uid, courseID)
	if err != nil {
		return nil, err
	}
	if moduleIndex < 0 || moduleIndex >= len(course.Modules) {
		return nil, shared.NewBadRequestError("invalid module index", nil)
	}

	return svc.genSvc.GenerateQuiz(course.Modules[moduleIndex].Title, "", uid, questionCount)
}

// ==================== QUIZ GRADING ====================

// GradeQuiz scores the submitted answers against the cached quiz and,
// matching the lesson flow, completes the submodule once the quiz is
// finished regardless of score.
func (svc *CourseService) GradeQuiz(uid, courseID string, moduleIndex, subIndex int, req dto.GradeQuizRequest) (*dto.GradeQuizResponse, error) {
	if req.Answers == nil {
		return nil, shared.NewBadRequestError("answers array is required", nil)
	}

	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, shared.NewNotFoundError("course not found")
	}
	sub, module, err := locateSubModule(course, moduleIndex, subIndex)
	if err != nil {
		return nil, err
	}
	if sub.Quiz == nil {
		return nil, shared.NewBadRequestError("quiz has not been generated yet", nil)
	}

	result := gradeQuiz(sub.Quiz, req.Answers)

	sub.Completed = true
	module.RecomputeCompleted()
	result.Completed = true

	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, err
	}
	return result, nil
}

// gradeQuiz compares selected option text against the option indexed
// by the answer letter ("A".."D").
func gradeQuiz(quiz *model.Quiz, answers []string) *dto.GradeQuizResponse {
	total := len(quiz.Flashcards)
	correct := 0
	results := make([]dto.QuizQuestionResult, total)

	for i, card := range quiz.Flashcards {
		correctOption := ""
		if len(card.Answer) > 0 {
			idx := int(card.Answer[0]) - 'A'
			if idx >= 0 && idx < len(card.Options) {
				correctOption = card.Options[idx]
			}
		}

		selected := ""
		if i < len(answers) {
			selected = answers[i]
		}

		isCorrect := correctOption != "" && selected == correctOption
		if isCorrect {
			correct++
		}
		results[i] = dto.QuizQuestionResult{
			Question:      card.Question,
			Selected:      selected,
			CorrectOption: correctOption,
			Correct:       isCorrect,
		}
	}

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return &dto.GradeQuizResponse{
		Score:   score,
		Correct: correct,
		Total:   total,
		Results: results,
	}
}

// ==================== CHAT ====================

// Chat proxies one tutor-chat message and appends both turns to the
// submodule's history.
func (svc *CourseService) Chat(uid, courseID string, moduleIndex, subIndex int, req dto.ChatRequest) (*dto.ChatResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError("Validation failed", dto.FormatValidationErrors(err))
	}

	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return nil, err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return nil, shared.NewNotFoundError("course not found")
	}
	sub, _, err := locateSubModule(course, moduleIndex, subIndex)
	if err != nil {
		return nil, err
	}

	reply, err := svc.genSvc.Chat(req.Text, uid)
	if err != nil {
		return nil, err
	}

	sub.ChatHistory = append(sub.ChatHistory,
		model.ChatMessage{ID: uuid.New().String(), Role: "user", Content: req.Text},
		model.ChatMessage{ID: uuid.New().String(), Role: "assistant", Content: reply},
	)

	if err := svc.saveCourses(uid, courses); err != nil {
		return nil, err
	}

	return &dto.ChatResponse{
		Message: reply,
		History: sub.ChatHistory,
	}, nil
}

// ==================== HELPERS ====================

func (svc *CourseService) personalization(uid string) (int, string) {
	user, err := svc.sqlSvc.GetUser(uid)
	if err != nil || user == nil {
		return 5, ""
	}
	adaptLevel := user.AdaptLevel
	if adaptLevel < 1 || adaptLevel > 10 {
		adaptLevel = 5
	}
	return adaptLevel, user.Analogy
}

func (svc *CourseService) saveCourses(uid string, courses []model.Course) error {
	if err := svc.sqlSvc.SaveCourses(uid, courses); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to save course list")
		return shared.NewPersistenceError()
	}
	return nil
}

// updateCourse runs one read-modify-write cycle against the owner's
// whole course list.
func (svc *CourseService) updateCourse(uid, courseID string, mutate func(*model.Course) error) error {
	courses, err := svc.sqlSvc.LoadCourses(uid)
	if err != nil {
		return err
	}
	course := findCourse(courses, courseID)
	if course == nil {
		return shared.NewNotFoundError("course not found")
	}
	if err := mutate(course); err != nil {
		return err
	}
	return svc.saveCourses(uid, courses)
}

func findCourse(courses []model.Course, courseID string) *model.Course {
	for i := range courses {
		if courses[i].ID == courseID {
			return &courses[i]
		}
	}
	return nil
}

func locateSubModule(course *model.Course, moduleIndex, subIndex int) (*model.SubModule, *model.Module, error) {
	if moduleIndex < 0 || moduleIndex >= len(course.Modules) {
		return nil, nil, shared.NewBadRequestError("invalid module index", nil)
	}
	module := &course.Modules[moduleIndex]
	if subIndex < 0 || subIndex >= len(module.SubModules) {
		return nil, nil, shared.NewBadRequestError("invalid submodule index", nil)
	}
	return &module.SubModules[subIndex], module, nil
}
