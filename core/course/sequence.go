package course

// The canonical lesson sequence of a course is its lessons flattened in
// (module order, lesson-within-module order). Which lessons a learner may
// open and what comes next both derive from that total order and the
// learner's completed set, recomputed on every call.
// Nothing here caches an index; the completed set is the only state.

// LessonState is a lesson's position in the unlock computation.
type LessonState struct {
	Lesson    Lesson `json:"lesson"`
	ModuleID  string `json:"module_id"`
	Completed bool   `json:"completed"`
	Unlocked  bool   `json:"unlocked"`
}

// FlattenLessons returns the canonical lesson sequence. Empty modules
// contribute nothing.
func FlattenLessons(crs Course) []Lesson {
	var seq []Lesson
	for _, mod := range crs.Modules {
		seq = append(seq, mod.Lessons...)
	}
	return seq
}

// TotalLessons counts all lessons across all modules.
func TotalLessons(crs Course) int {
	var n int
	for _, mod := range crs.Modules {
		n += len(mod.Lessons)
	}
	return n
}

// HasLesson reports whether the lesson belongs to the course's module tree.
func HasLesson(crs Course, lessonID string) bool {
	for _, mod := range crs.Modules {
		for _, l := range mod.Lessons {
			if l.ID == lessonID {
				return true
			}
		}
	}
	return false
}

// FirstUncompleted returns the first lesson in the canonical sequence not in
// the completed set. ok is false when every lesson is completed or the
// course has no lessons.
func FirstUncompleted(crs Course, completed map[string]bool) (lesson Lesson, ok bool) {
	for _, l := range FlattenLessons(crs) {
		if !completed[l.ID] {
			return l, true
		}
	}
	return Lesson{}, false
}

// SequenceStates computes the per-lesson unlock state: a lesson is unlocked
// if it is completed, or if it is the current head. Everything past the head
// is locked.
func SequenceStates(crs Course, completed map[string]bool) []LessonState {
	head, hasHead := FirstUncompleted(crs, completed)

	var states []LessonState
	for _, mod := range crs.Modules {
		for _, l := range mod.Lessons {
			done := completed[l.ID]
			states = append(states, LessonState{
				Lesson:    l,
				ModuleID:  mod.ID,
				Completed: done,
				Unlocked:  done || (hasHead && l.ID == head.ID),
			})
		}
	}
	return states
}

// UnlockedLessonIDs returns the set of lesson IDs a learner may open.
func UnlockedLessonIDs(crs Course, completed map[string]bool) map[string]bool {
	unlocked := make(map[string]bool)
	for _, st := range SequenceStates(crs, completed) {
		if st.Unlocked {
			unlocked[st.Lesson.ID] = true
		}
	}
	return unlocked
}

// NextLesson returns the lesson immediately following current in the
// canonical sequence: the next lesson in the same module if one exists, else
// the first lesson of the next non-empty module. ok is false when current is
// the last lesson overall or is not part of the course.
func NextLesson(crs Course, currentID string) (lesson Lesson, ok bool) {
	seq := FlattenLessons(crs)
	for i, l := range seq {
		if l.ID == currentID {
			if i+1 < len(seq) {
				return seq[i+1], true
			}
			return Lesson{}, false
		}
	}
	return Lesson{}, false
}

// Progress derives the completion ratio in [0, 1] from the completed set.
// Only lessons present in the module tree count; a course with no lessons
// has progress 0, never a division error.
func Progress(crs Course, completed map[string]bool) float64 {
	total := TotalLessons(crs)
	if total == 0 {
		return 0
	}
	var done int
	for _, l := range FlattenLessons(crs) {
		if completed[l.ID] {
			done++
		}
	}
	return float64(done) / float64(total)
}

// NewIDSet builds a membership set from a list of lesson IDs.
func NewIDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
