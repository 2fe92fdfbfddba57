package dto

// SaveNoteRequest upserts the note for one submodule. Indices are
// pointers so a missing index is distinguishable from index zero.
type SaveNoteRequest struct {
	CourseID       string `json:"courseId" validate:"required"`
	ModuleIndex    *int   `json:"moduleIndex" validate:"required,min=0"`
	SubModuleIndex *int   `json:"subModuleIndex" validate:"required,min=0"`
	Content        string `json:"content"`
}

type NoteResponse struct {
	CourseID       string `json:"courseId"`
	ModuleIndex    int    `json:"moduleIndex"`
	SubModuleIndex int    `json:"subModuleIndex"`
	Content        string `json:"content"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

type NoteListResponse struct {
	Notes []NoteResponse `json:"notes"`
}
