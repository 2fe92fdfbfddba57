package services

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/shared"
)

func newTestNoteService(t *testing.T) *NoteService {
	t.Helper()
	return &NoteService{sqlSvc: newTestSql(t)}
}

func intPtr(v int) *int { return &v }

func TestSaveAndGetNote(t *testing.T) {
	svc := newTestNoteService(t)

	saved, err := svc.SaveNote("u1", dto.SaveNoteRequest{
		CourseID:       "c1",
		ModuleIndex:    intPtr(0),
		SubModuleIndex: intPtr(2),
		Content:        "remember the chain rule",
	})
	require.NoError(t, err)
	assert.Equal(t, "remember the chain rule", saved.Content)

	got, err := svc.GetNote("u1", "c1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, saved.Content, got.Content)
}

func TestGetNoteNeverSaved(t *testing.T) {
	svc := newTestNoteService(t)

	got, err := svc.GetNote("u1", "c1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got.Content)
	assert.Equal(t, "c1", got.CourseID)
}

func TestSaveNoteValidation(t *testing.T) {
	svc := newTestNoteService(t)

	_, err := svc.SaveNote("u1", dto.SaveNoteRequest{
		CourseID: "c1",
		Content:  "missing indices",
	})
	appErr, ok := shared.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestSaveNoteIndexZeroIsValid(t *testing.T) {
	svc := newTestNoteService(t)

	_, err := svc.SaveNote("u1", dto.SaveNoteRequest{
		CourseID:       "c1",
		ModuleIndex:    intPtr(0),
		SubModuleIndex: intPtr(0),
		Content:        "",
	})
	require.NoError(t, err)
}
