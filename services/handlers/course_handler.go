package handlers

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/shared"
)

type CourseHandler struct {
	courseSvc CourseServiceInterface
}

func NewCourseHandler(courseSvc CourseServiceInterface) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

func ownerID(c *fiber.Ctx) string {
	uid, _ := c.Locals(shared.UserID).(string)
	return uid
}

func pathIndex(c *fiber.Ctx, name string) (int, error) {
	idx, err := strconv.Atoi(c.Params(name))
	if err != nil || idx < 0 {
		return 0, shared.NewBadRequestError("invalid "+name, nil)
	}
	return idx, nil
}

func urlDecodedParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", shared.NewBadRequestError("invalid "+name, nil)
	}
	return decoded, nil
}

// @Summary List courses
// @Description Get the owner's full course list
// @Tags courses
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.CourseListResponse}
// @Router /api/v1/courses [get]
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	resp, err := h.courseSvc.GetCourses(ownerID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Replace courses
// @Description Replace the owner's whole course list in one save
// @Tags courses
// @Accept json
// @Produce json
// @Security Bearer
// @Param replaceRequest body dto.ReplaceCoursesRequest true "Full course list"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/courses [put]
func (h *CourseHandler) ReplaceCourses(c *fiber.Ctx) error {
	var req dto.ReplaceCoursesRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	if err := h.courseSvc.ReplaceCourses(ownerID(c), req); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Courses saved", nil)
}

// @Summary Create course
// @Description Create an empty course shell
// @Tags courses
// @Accept json
// @Produce json
// @Security Bearer
// @Param createRequest body dto.CreateCourseRequest true "Course title"
// @Success 201 {object} shared.Response{data=model.Course}
// @Router /api/v1/courses [post]
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req dto.CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	course, err := h.courseSvc.CreateCourse(ownerID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Course created", course)
}

// @Summary Get course
// @Tags courses
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=model.Course}
// @Router /api/v1/courses/{courseId} [get]
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.courseSvc.GetCourse(ownerID(c), c.Params("courseId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", course)
}

// @Summary Delete course
// @Tags courses
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/courses/{courseId} [delete]
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	if err := h.courseSvc.DeleteCourse(ownerID(c), c.Params("courseId")); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Course deleted", nil)
}

// @Summary Ingest study materials
// @Description Upload PDFs and/or URLs, generate an outline and merge it into the course
// @Tags courses
// @Accept mpfd
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param files formData file false "PDF files (max 5MB each)"
// @Param urls formData string false "Comma-separated source URLs"
// @Success 200 {object} shared.Response{data=dto.IngestResponse}
// @Router /api/v1/courses/{courseId}/materials [post]
func (h *CourseHandler) IngestMaterials(c *fiber.Ctx) error {
	var files []dto.IngestFile

	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, header := range form.File["files"] {
			if header.Size > shared.MaxUploadSizeBytes {
				return shared.NewBadRequestError("file "+header.Filename+" exceeds the 5MB limit", nil)
			}

			f, err := header.Open()
			if err != nil {
				return shared.NewBadRequestError("could not read file "+header.Filename, nil)
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return shared.NewBadRequestError("could not read file "+header.Filename, nil)
			}

			contentType := header.Header.Get("Content-Type")
			files = append(files, dto.IngestFile{
				Name:        header.Filename,
				ContentType: contentType,
				Data:        data,
			})
		}
	}

	var urls []string
	if raw := c.FormValue("urls"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}

	resp, err := h.courseSvc.IngestMaterials(ownerID(c), c.Params("courseId"), files, urls)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Materials ingested", resp)
}

// @Summary Remove uploaded file
// @Description Remove one file record; modules generated from it stay
// @Tags courses
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param fileName path string true "File name"
// @Success 200 {object} shared.Response{data=model.Course}
// @Router /api/v1/courses/{courseId}/files/{fileName} [delete]
func (h *CourseHandler) RemoveFile(c *fiber.Ctx) error {
	fileName, err := urlDecodedParam(c, "fileName")
	if err != nil {
		return err
	}

	course, err := h.courseSvc.RemoveFile(ownerID(c), c.Params("courseId"), fileName)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "File removed", course)
}

// @Summary Course progress
// @Tags courses
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Success 200 {object} shared.Response{data=dto.CourseProgressResponse}
// @Router /api/v1/courses/{courseId}/progress [get]
func (h *CourseHandler) CourseProgress(c *fiber.Ctx) error {
	resp, err := h.courseSvc.CourseProgress(ownerID(c), c.Params("courseId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Set submodule completion
// @Description Mark a submodule complete (default) or incomplete; the module flag is refolded
// @Tags progress
// @Accept json
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Success 200 {object} shared.Response{data=dto.CourseProgressResponse}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/complete [post]
func (h *CourseHandler) SetCompletion(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	completed := true
	var body struct {
		Completed *bool `json:"completed"`
	}
	if err := c.BodyParser(&body); err == nil && body.Completed != nil {
		completed = *body.Completed
	}

	resp, err := h.courseSvc.SetSubModuleCompletion(ownerID(c), c.Params("courseId"), moduleIndex, subIndex, completed)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Progress updated", resp)
}

// @Summary Mark submodule visited
// @Description Clear the isNew hint after the owner opens fresh content
// @Tags progress
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/visit [post]
func (h *CourseHandler) MarkVisited(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	if err := h.courseSvc.MarkSubModuleSeen(ownerID(c), c.Params("courseId"), moduleIndex, subIndex); err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Marked as seen", nil)
}

// @Summary Get lesson slides
// @Description Return the cached slide deck, generating and persisting it on first request
// @Tags content
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Success 200 {object} shared.Response{data=[]model.LessonPhase}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/lesson [get]
func (h *CourseHandler) GetLesson(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	slides, cached, err := h.courseSvc.GetLessonSlides(ownerID(c), c.Params("courseId"), moduleIndex, subIndex)
	if err != nil {
		return err
	}

	message := "Lesson generated"
	if cached {
		message = "Success"
	}
	return shared.ResponseJSON(c, http.StatusOK, message, slides)
}

// @Summary Get quiz
// @Description Return the cached quiz, generating and persisting it on first request
// @Tags content
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Param questionCount query int false "Question count" default(5)
// @Success 200 {object} shared.Response{data=model.Quiz}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/quiz [get]
func (h *CourseHandler) GetQuiz(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}
	questionCount := c.QueryInt("questionCount", shared.DefaultQuizQuestionCount)

	quiz, cached, err := h.courseSvc.GetQuiz(ownerID(c), c.Params("courseId"), moduleIndex, subIndex, questionCount)
	if err != nil {
		return err
	}

	message := "Quiz generated"
	if cached {
		message = "Success"
	}
	return shared.ResponseJSON(c, http.StatusOK, message, quiz)
}

// @Summary Retake quiz
// @Description Discard the cached quiz and generate a fresh one
// @Tags content
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Param questionCount query int false "Question count" default(5)
// @Success 200 {object} shared.Response{data=model.Quiz}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/quiz/retake [post]
func (h *CourseHandler) RetakeQuiz(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}
	questionCount := c.QueryInt("questionCount", shared.DefaultQuizQuestionCount)

	quiz, err := h.courseSvc.RetakeQuiz(ownerID(c), c.Params("courseId"), moduleIndex, subIndex, questionCount)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Quiz regenerated", quiz)
}

// @Summary Grade quiz
// @Description Score the submitted answers against the cached quiz
// @Tags content
// @Accept json
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Param gradeRequest body dto.GradeQuizRequest true "Selected option text per question"
// @Success 200 {object} shared.Response{data=dto.GradeQuizResponse}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/quiz/grade [post]
func (h *CourseHandler) GradeQuiz(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	var req dto.GradeQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	resp, err := h.courseSvc.GradeQuiz(ownerID(c), c.Params("courseId"), moduleIndex, subIndex, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Quiz graded", resp)
}

// @Summary Get module quiz
// @Description Generate a quiz spanning the whole module; not cached
// @Tags content
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param questionCount query int false "Question count" default(5)
// @Success 200 {object} shared.Response{data=model.Quiz}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/quiz [get]
func (h *CourseHandler) GetModuleQuiz(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	questionCount := c.QueryInt("questionCount", shared.DefaultQuizQuestionCount)

	quiz, err := h.courseSvc.GetModuleQuiz(ownerID(c), c.Params("courseId"), moduleIndex, questionCount)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Quiz generated", quiz)
}

// @Summary Tutor chat
// @Description Send one chat message in a submodule's context and append both turns to its history
// @Tags content
// @Accept json
// @Produce json
// @Security Bearer
// @Param courseId path string true "Course ID"
// @Param moduleIndex path int true "Module index"
// @Param subIndex path int true "Submodule index"
// @Param chatRequest body dto.ChatRequest true "Message text"
// @Success 200 {object} shared.Response{data=dto.ChatResponse}
// @Router /api/v1/courses/{courseId}/modules/{moduleIndex}/submodules/{subIndex}/chat [post]
func (h *CourseHandler) Chat(c *fiber.Ctx) error {
	moduleIndex, err := pathIndex(c, "moduleIndex")
	if err != nil {
		return err
	}
	subIndex, err := pathIndex(c, "subIndex")
	if err != nil {
		return err
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError("Invalid request", err.Error())
	}

	resp, err := h.courseSvc.Chat(ownerID(c), c.Params("courseId"), moduleIndex, subIndex, req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}
