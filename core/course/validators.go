package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tlmsproject/tlms/core"
)

var (
	lessonTypeTag  = "lessontype"
	lessonTypeText = "invalid lesson type"

	lessonPayloadTag  = "lessonpayload"
	lessonPayloadText = "lesson content does not match its type"
)

// InitValidators registers the course package's custom validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(validate, translator, lessonTypeTag, lessonTypeText)

	validate.RegisterStructValidation(lessonStructValidation, Lesson{})
	core.RegisterCustomTranslation(validate, translator, lessonPayloadTag, lessonPayloadText)
}

// Custom Validators

// lessonTypeValidation checks that a lesson type is in AllLessonTypes
func lessonTypeValidation(fl validator.FieldLevel) bool {
	typ := LessonType(fl.Field().String())
	for _, t := range AllLessonTypes {
		if typ == t {
			return true
		}
	}
	return false
}

// lessonStructValidation enforces the per-type payload variant:
// - text lessons need a body
// - video/pdf/presentation lessons need a file URL
// - quiz lessons need at least one question, and only quizzes carry questions
func lessonStructValidation(sl validator.StructLevel) {
	lesson, ok := sl.Current().Interface().(Lesson)
	if !ok {
		return
	}
	reportErr := func(field string, val interface{}) {
		sl.ReportError(val, field, field, lessonPayloadTag, "")
	}

	switch lesson.Type {
	case LessonText:
		if lesson.TextBody == "" {
			reportErr("text_body", lesson.TextBody)
		}
	case LessonVideo, LessonPDF, LessonPresentation:
		if lesson.FileURL == "" {
			reportErr("file_url", lesson.FileURL)
		}
	case LessonQuiz:
		if len(lesson.Questions) == 0 {
			reportErr("questions", lesson.Questions)
		}
	}
	if lesson.Type != LessonQuiz && len(lesson.Questions) > 0 {
		reportErr("questions", lesson.Questions)
	}
}
