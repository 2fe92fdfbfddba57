package services

import (
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
	"github.com/scaffold-ai/scaffold_api/shared"
)

// NoteService stores free-text study notes, one per submodule. Notes
// live in their own table keyed by indices, not inside the course
// document.
type NoteService struct {
	appContext.DefaultService

	sqlSvc *SqlService
}

const NOTE_SVC = "note_svc"

func (svc NoteService) Id() string {
	return NOTE_SVC
}

func (svc *NoteService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *NoteService) Start() error {
	svc.sqlSvc = svc.Service(SQL_SVC).(*SqlService)
	return nil
}

func (svc *NoteService) GetNote(uid, courseID string, moduleIndex, subModuleIndex int) (*dto.NoteResponse, error) {
	note, err := svc.sqlSvc.GetNote(uid, courseID, moduleIndex, subModuleIndex)
	if err != nil {
		return nil, err
	}
	if note == nil {
		// An unsaved note reads back as empty content, not an error.
		return &dto.NoteResponse{
			CourseID:       courseID,
			ModuleIndex:    moduleIndex,
			SubModuleIndex: subModuleIndex,
		}, nil
	}
	return toNoteResponse(note), nil
}

func (svc *NoteService) ListNotes(uid, courseID string) (*dto.NoteListResponse, error) {
	notes, err := svc.sqlSvc.GetCourseNotes(uid, courseID)
	if err != nil {
		return nil, err
	}

	resp := &dto.NoteListResponse{Notes: make([]dto.NoteResponse, len(notes))}
	for i := range notes {
		resp.Notes[i] = *toNoteResponse(&notes[i])
	}
	return resp, nil
}

func (svc *NoteService) SaveNote(uid string, req dto.SaveNoteRequest) (*dto.NoteResponse, error) {
	if err := dto.GetValidator().Struct(req); err != nil {
		return nil, shared.NewBadRequestError("Validation failed", dto.FormatValidationErrors(err))
	}

	note, err := svc.sqlSvc.SaveNote(uid, req.CourseID, *req.ModuleIndex, *req.SubModuleIndex, req.Content)
	if err != nil {
		log.WithError(err).WithField("course_id", req.CourseID).Error("Failed to save note")
		return nil, shared.NewPersistenceError()
	}
	return toNoteResponse(note), nil
}

func toNoteResponse(note *model.Note) *dto.NoteResponse {
	return &dto.NoteResponse{
		CourseID:       note.CourseID,
		ModuleIndex:    note.ModuleIndex,
		SubModuleIndex: note.SubModuleIndex,
		Content:        note.Content,
		CreatedAt:      note.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      note.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
