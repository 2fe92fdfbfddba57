// model/note.go
package model

import "time"

// Note is keyed by its full composite key; one note per submodule.
type Note struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	UID            string    `json:"uid" gorm:"not null;uniqueIndex:idx_note_key"`
	CourseID       string    `json:"courseId" gorm:"not null;uniqueIndex:idx_note_key"`
	ModuleIndex    int       `json:"moduleIndex" gorm:"uniqueIndex:idx_note_key"`
	SubModuleIndex int       `json:"subModuleIndex" gorm:"uniqueIndex:idx_note_key"`
	Content        string    `json:"content" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
