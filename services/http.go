package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/services/handlers"
	"github.com/scaffold-ai/scaffold_api/shared"
)

type HttpService struct {
	appContext.DefaultService

	authMiddleware *AuthMiddleware
	rateLimitSvc   *RateLimitService

	courseHandler *handlers.CourseHandler
	userHandler   *handlers.UserHandler
	noteHandler   *handlers.NoteHandler

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8080
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authMiddleware = svc.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)

	courseSvc := svc.Service(COURSE_SVC).(*CourseService)
	userSvc := svc.Service(USER_SVC).(*UserService)
	noteSvc := svc.Service(NOTE_SVC).(*NoteService)

	svc.courseHandler = handlers.NewCourseHandler(courseSvc)
	svc.userHandler = handlers.NewUserHandler(userSvc)
	svc.noteHandler = handlers.NewNoteHandler(noteSvc)

	app := fiber.New(fiber.Config{
		JSONEncoder:  shared.JSONEncoder,
		JSONDecoder:  shared.JSONDecoder,
		ErrorHandler: svc.handleError,
		BodyLimit:    8 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length",
	}))
	app.Use(MonitoringMiddleware())

	app.Get("/ping", svc.ping)

	svc.registerRoutes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, http.StatusNotFound, "page not found", nil)
	})

	svc.server = app

	log.WithField("port", svc.port).Info("HTTP server starting")
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) registerRoutes(app *fiber.App) {
	v1 := app.Group("/api/v1", svc.authMiddleware.RequiredAuth())

	courses := v1.Group("/courses")
	courses.Get("/", svc.courseHandler.ListCourses)
	courses.Put("/", svc.courseHandler.ReplaceCourses)
	courses.Post("/", svc.courseHandler.CreateCourse)
	courses.Get("/:courseId", svc.courseHandler.GetCourse)
	courses.Delete("/:courseId", svc.courseHandler.DeleteCourse)
	courses.Post("/:courseId/materials", svc.rateLimitSvc.Limit(shared.EndpointOutline), svc.courseHandler.IngestMaterials)
	courses.Delete("/:courseId/files/:fileName", svc.courseHandler.RemoveFile)
	courses.Get("/:courseId/progress", svc.courseHandler.CourseProgress)
	courses.Get("/:courseId/notes", svc.noteHandler.ListNotes)

	modules := courses.Group("/:courseId/modules/:moduleIndex")
	modules.Get("/quiz", svc.rateLimitSvc.Limit(shared.EndpointQuiz), svc.courseHandler.GetModuleQuiz)

	subModules := modules.Group("/submodules/:subIndex")
	subModules.Post("/complete", svc.courseHandler.SetCompletion)
	subModules.Post("/visit", svc.courseHandler.MarkVisited)
	subModules.Get("/lesson", svc.rateLimitSvc.Limit(shared.EndpointLesson), svc.courseHandler.GetLesson)
	subModules.Get("/quiz", svc.rateLimitSvc.Limit(shared.EndpointQuiz), svc.courseHandler.GetQuiz)
	subModules.Post("/quiz/retake", svc.rateLimitSvc.Limit(shared.EndpointQuiz), svc.courseHandler.RetakeQuiz)
	subModules.Post("/quiz/grade", svc.courseHandler.GradeQuiz)
	subModules.Post("/chat", svc.rateLimitSvc.Limit(shared.EndpointChat), svc.courseHandler.Chat)
	subModules.Get("/note", svc.noteHandler.GetNote)

	v1.Put("/notes", svc.noteHandler.SaveNote)

	v1.Get("/profile", svc.userHandler.GetProfile)
	v1.Post("/profile", svc.userHandler.SaveProfile)
	v1.Patch("/profile", svc.userHandler.UpdateProfile)
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")

	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

// handleError maps typed application errors onto the response
// envelope; anything untyped is a plain 500.
func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("Unhandled request error")
	return shared.ResponseInternalError(c)
}
