package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoModuleCourse() Course {
	return Course{
		ID:     "crs1",
		Status: StatusPublished,
		Modules: []Module{
			{ID: "m1", Title: "Basics", Lessons: []Lesson{
				{ID: "A", Title: "Intro", Type: LessonText, TextBody: "hi"},
				{ID: "B", Title: "Setup", Type: LessonVideo, FileURL: "https://cdn.example.com/b.mp4"},
			}},
			{ID: "m2", Title: "Advanced", Lessons: []Lesson{
				{ID: "C", Title: "Wrap up", Type: LessonText, TextBody: "bye"},
			}},
		},
	}
}

func TestFlattenLessons(t *testing.T) {
	crs := twoModuleCourse()
	// empty module must not break ordering
	crs.Modules = append(crs.Modules[:1], append([]Module{{ID: "mEmpty", Title: "Empty"}}, crs.Modules[1:]...)...)

	seq := FlattenLessons(crs)
	require.Len(t, seq, 3)
	assert.Equal(t, "A", seq[0].ID)
	assert.Equal(t, "B", seq[1].ID)
	assert.Equal(t, "C", seq[2].ID)
	assert.Equal(t, 3, TotalLessons(crs))
}

func TestUnlockProgression(t *testing.T) {
	crs := twoModuleCourse()

	tests := []struct {
		name         string
		completed    []string
		wantUnlocked []string
		wantHead     string
		wantHeadOK   bool
	}{
		{"fresh start", nil, []string{"A"}, "A", true},
		{"first done", []string{"A"}, []string{"A", "B"}, "B", true},
		{"module boundary", []string{"A", "B"}, []string{"A", "B", "C"}, "C", true},
		{"all done", []string{"A", "B", "C"}, []string{"A", "B", "C"}, "", false},
		{"stale id ignored", []string{"A", "ghost"}, []string{"A", "B"}, "B", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completed := NewIDSet(tt.completed)

			unlocked := UnlockedLessonIDs(crs, completed)
			assert.Len(t, unlocked, len(tt.wantUnlocked))
			for _, id := range tt.wantUnlocked {
				assert.True(t, unlocked[id], "expected %s unlocked", id)
			}

			head, ok := FirstUncompleted(crs, completed)
			assert.Equal(t, tt.wantHeadOK, ok)
			if tt.wantHeadOK {
				assert.Equal(t, tt.wantHead, head.ID)
			}
		})
	}
}

func TestNextLesson(t *testing.T) {
	crs := twoModuleCourse()

	tests := []struct {
		name    string
		current string
		want    string
		wantOK  bool
	}{
		{"within module", "A", "B", true},
		{"across module boundary", "B", "C", true},
		{"last lesson", "C", "", false},
		{"unknown lesson", "ghost", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextLesson(crs, tt.current)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, next.ID)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	crs := twoModuleCourse()

	assert.Equal(t, 0.0, Progress(crs, nil))
	assert.InDelta(t, 1.0/3, Progress(crs, NewIDSet([]string{"A"})), 1e-9)
	assert.InDelta(t, 2.0/3, Progress(crs, NewIDSet([]string{"A", "B"})), 1e-9)
	assert.Equal(t, 1.0, Progress(crs, NewIDSet([]string{"A", "B", "C"})))

	// completions referencing removed lessons do not count
	assert.InDelta(t, 1.0/3, Progress(crs, NewIDSet([]string{"A", "ghost"})), 1e-9)

	// a course without lessons never divides by zero
	empty := Course{Modules: []Module{{ID: "m1", Title: "Empty"}}}
	assert.Equal(t, 0.0, Progress(empty, NewIDSet([]string{"A"})))
}

func TestSequenceStates(t *testing.T) {
	crs := twoModuleCourse()
	states := SequenceStates(crs, NewIDSet([]string{"A"}))
	require.Len(t, states, 3)

	assert.Equal(t, "m1", states[0].ModuleID)
	assert.True(t, states[0].Completed)
	assert.True(t, states[0].Unlocked)

	assert.False(t, states[1].Completed)
	assert.True(t, states[1].Unlocked)

	assert.Equal(t, "m2", states[2].ModuleID)
	assert.False(t, states[2].Completed)
	assert.False(t, states[2].Unlocked)
}
