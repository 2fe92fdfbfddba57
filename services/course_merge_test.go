package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scaffold-ai/scaffold_api/dto"
	"github.com/scaffold-ai/scaffold_api/model"
)

func seedCourse() *model.Course {
	return &model.Course{
		ID:    "c1",
		Title: "Physics",
		Modules: []model.Module{
			{
				Title:      "Kinematics",
				Summary:    "Motion without forces",
				Subtopics:  []string{"Velocity", "Acceleration"},
				SubModules: []model.SubModule{{Title: "Velocity"}, {Title: "Acceleration"}},
			},
		},
		Files: []model.UploadedFile{
			{Name: "mechanics.pdf", Size: 1024},
		},
	}
}

func TestMergeOutlineAppendsNewTopics(t *testing.T) {
	course := seedCourse()
	now := time.Now().UTC()

	topics := []dto.OutlineTopic{
		{Title: "Dynamics", Summary: "Forces and motion", Subtopics: []string{"Newton's Laws"}},
	}

	newModules, newFiles := mergeOutline(course, topics, nil, now)

	assert.Equal(t, 1, newModules)
	assert.Equal(t, 0, newFiles)
	assert.Len(t, course.Modules, 2)

	added := course.Modules[1]
	assert.Equal(t, "Dynamics", added.Title)
	assert.True(t, added.IsNew)
	assert.Equal(t, now.Format(time.RFC3339), added.AddedAt)
	assert.Len(t, added.SubModules, 1)
	assert.True(t, added.SubModules[0].IsNew)
}

func TestMergeOutlineDedupsByNormalizedTitle(t *testing.T) {
	course := seedCourse()

	topics := []dto.OutlineTopic{
		{Title: "  KINEMATICS ", Summary: "Different summary, same topic"},
		{Title: "Thermodynamics", Summary: "Heat and energy"},
	}

	newModules, _ := mergeOutline(course, topics, nil, time.Now().UTC())

	assert.Equal(t, 1, newModules)
	assert.Len(t, course.Modules, 2)
	// First write wins: the existing definition is untouched
	assert.Equal(t, "Kinematics", course.Modules[0].Title)
	assert.Equal(t, "Motion without forces", course.Modules[0].Summary)
}

func TestMergeOutlineZeroNewIsSuccess(t *testing.T) {
	course := seedCourse()

	topics := []dto.OutlineTopic{
		{Title: "Kinematics", Summary: "Already there"},
	}

	newModules, newFiles := mergeOutline(course, topics, nil, time.Now().UTC())

	assert.Equal(t, 0, newModules)
	assert.Equal(t, 0, newFiles)
	assert.Len(t, course.Modules, 1)
}

func TestMergeOutlineIsIdempotent(t *testing.T) {
	course := seedCourse()
	topics := []dto.OutlineTopic{
		{Title: "Waves", Subtopics: []string{"Interference"}},
	}

	first, _ := mergeOutline(course, topics, nil, time.Now().UTC())
	second, _ := mergeOutline(course, topics, nil, time.Now().UTC())

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Len(t, course.Modules, 2)
}

func TestMergeOutlineNeverRemoves(t *testing.T) {
	course := seedCourse()
	course.Modules[0].SubModules[0].Completed = true

	newModules, _ := mergeOutline(course, nil, nil, time.Now().UTC())

	assert.Equal(t, 0, newModules)
	assert.Len(t, course.Modules, 1)
	assert.True(t, course.Modules[0].SubModules[0].Completed, "existing progress survives a merge")
}

func TestMergeOutlineSkipsBlankTitles(t *testing.T) {
	course := seedCourse()

	topics := []dto.OutlineTopic{
		{Title: "   "},
		{Title: ""},
	}

	newModules, _ := mergeOutline(course, topics, nil, time.Now().UTC())
	assert.Equal(t, 0, newModules)
}

func TestMergeOutlineDedupsFiles(t *testing.T) {
	course := seedCourse()

	files := []dto.IngestFile{
		{Name: "mechanics.pdf", Data: []byte("dup")},
		{Name: "optics.pdf", Data: []byte("fresh content")},
	}

	_, newFiles := mergeOutline(course, nil, files, time.Now().UTC())

	assert.Equal(t, 1, newFiles)
	assert.Len(t, course.Files, 2)
	assert.Equal(t, "optics.pdf", course.Files[1].Name)
	assert.Equal(t, int64(len("fresh content")), course.Files[1].Size)
}
