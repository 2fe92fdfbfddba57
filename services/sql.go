package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/scaffold-ai/scaffold_api/model"
)

// SqlService owns the document store: one row of courses per owner,
// profile rows and note rows. Postgres when DATABASE_URL or DB_HOST
// is configured, sqlite otherwise (dev and tests).
type SqlService struct {
	context.DefaultService
	db *gorm.DB

	dsn      string // postgres
	database string // sqlite file
}

const SQL_SVC = "sql_svc"

// Id returns Service ID
func (ds SqlService) Id() string {
	return SQL_SVC
}

// Db Access to raw SqlService db
func (ds SqlService) Db() *gorm.DB {
	return ds.db
}

// Configure the service
func (ds *SqlService) Configure(ctx *context.Context) error {
	ds.dsn = os.Getenv("DATABASE_URL")
	if ds.dsn == "" && os.Getenv("DB_HOST") != "" {
		host := os.Getenv("DB_HOST")
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "scaffold"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		ds.dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	ds.database = os.Getenv("DB_DATABASE")
	if ds.dsn == "" && ds.database == "" {
		ds.database = "scaffold.db"
	}

	return ds.DefaultService.Configure(ctx)
}

// Start the service and open connection to the database
// Migrate any tables that have changed since last runtime
func (ds *SqlService) Start() (err error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	}

	if ds.dsn != "" {
		ds.db, err = gorm.Open(postgres.Open(ds.dsn), cfg)
	} else {
		ds.db, err = gorm.Open(sqlite.Open(ds.database), cfg)
	}
	if err != nil {
		return err
	}

	models := []interface{}{
		&model.CourseDocument{},
		&model.User{},
		&model.Note{},
	}

	err = ds.db.AutoMigrate(models...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *SqlService) Shutdown() {
}

func (ds *SqlService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

// ==================== COURSE DOCUMENT METHODS ====================

// LoadCourseDocument returns the owner's raw document, or nil when
// the owner has no saved courses yet.
func (ds *SqlService) LoadCourseDocument(uid string) (*model.CourseDocument, error) {
	var doc model.CourseDocument
	err := ds.db.First(&doc, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return &doc, nil
}

// LoadCourses decodes the owner's full course list. A missing
// document is an empty list, not an error.
func (ds *SqlService) LoadCourses(uid string) ([]model.Course, error) {
	doc, err := ds.LoadCourseDocument(uid)
	if err != nil {
		return nil, err
	}
	if doc == nil || len(doc.Courses) == 0 {
		return []model.Course{}, nil
	}

	var courses []model.Course
	if err := json.Unmarshal(doc.Courses, &courses); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to unmarshal course document")
		return nil, fmt.Errorf("corrupt course document: %w", err)
	}
	return courses, nil
}

// SaveCourses replaces the owner's whole course list in one upsert.
// Every mutation anywhere in the course tree goes through here;
// concurrent writers race at whole-list granularity (last write wins).
func (ds *SqlService) SaveCourses(uid string, courses []model.Course) error {
	raw, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("failed to marshal courses: %w", err)
	}

	doc := model.CourseDocument{
		UID:       uid,
		Courses:   raw,
		UpdatedAt: time.Now().UTC(),
	}
	return ds.HandleError(ds.db.Save(&doc).Error)
}

// ==================== USER METHODS ====================

func (ds *SqlService) GetUser(uid string) (*model.User, error) {
	var user model.User
	err := ds.db.First(&user, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return &user, nil
}

func (ds *SqlService) SaveUser(user *model.User) error {
	existing, err := ds.GetUser(user.UID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user.UpdatedAt = now
	if existing == nil {
		user.CreatedAt = now
		return ds.HandleError(ds.db.Create(user).Error)
	}
	user.CreatedAt = existing.CreatedAt
	return ds.HandleError(ds.db.Save(user).Error)
}

// ==================== NOTE METHODS ====================

func (ds *SqlService) GetNote(uid, courseID string, moduleIndex, subModuleIndex int) (*model.Note, error) {
	var note model.Note
	err := ds.db.First(&note,
		"uid = ? AND course_id = ? AND module_index = ? AND sub_module_index = ?",
		uid, courseID, moduleIndex, subModuleIndex).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return &note, nil
}

func (ds *SqlService) GetCourseNotes(uid, courseID string) ([]model.Note, error) {
	var notes []model.Note
	err := ds.db.
		Where("uid = ? AND course_id = ?", uid, courseID).
		Order("module_index, sub_module_index").
		Find(&notes).Error
	if err != nil {
		return nil, ds.HandleError(err)
	}
	return notes, nil
}

func (ds *SqlService) SaveNote(uid, courseID string, moduleIndex, subModuleIndex int, content string) (*model.Note, error) {
	existing, err := ds.GetNote(uid, courseID, moduleIndex, subModuleIndex)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Content = content
		existing.UpdatedAt = now
		if err := ds.HandleError(ds.db.Save(existing).Error); err != nil {
			return nil, err
		}
		return existing, nil
	}

	note := &model.Note{
		ID:             uuid.New().String(),
		UID:            uid,
		CourseID:       courseID,
		ModuleIndex:    moduleIndex,
		SubModuleIndex: subModuleIndex,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := ds.HandleError(ds.db.Create(note).Error); err != nil {
		return nil, err
	}
	return note, nil
}
