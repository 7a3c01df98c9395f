package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tlmsproject/tlms/core"
)

// Status is a Course's position in the publication workflow.
// Only published courses are visible to learners.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusPendingReview Status = "pending_review"
	StatusPublished     Status = "published"
	StatusRejected      Status = "rejected"
	StatusRemoved       Status = "removed"
)

var AllStatuses = []Status{StatusDraft, StatusPendingReview, StatusPublished, StatusRejected, StatusRemoved}

// LessonType is the closed set of lesson content types.
// Branching on it must always be exhaustive; there is no "other".
type LessonType string

const (
	LessonText         LessonType = "text"
	LessonVideo        LessonType = "video"
	LessonPDF          LessonType = "pdf"
	LessonPresentation LessonType = "presentation"
	LessonQuiz         LessonType = "quiz"
)

var AllLessonTypes = []LessonType{LessonText, LessonVideo, LessonPDF, LessonPresentation, LessonQuiz}

type QuizQuestion struct {
	ID             string   `json:"id"`
	Prompt         string   `json:"prompt" validate:"required"`
	Options        []string `json:"options" validate:"required,min=2"`
	CorrectIndices []int    `json:"correct_indices" validate:"required,min=1"`
	Points         int      `json:"points"`
}

// Lesson carries the payload fields for its Type only; Validate enforces
// the variant. Lessons are immutable once their course is published.
type Lesson struct {
	ID    string     `json:"id"`
	Title string     `json:"title" validate:"required"`
	Type  LessonType `json:"type" validate:"required,lessontype"`

	// text
	TextBody string `json:"text_body,omitempty"`

	// video | pdf | presentation
	FileURL  string `json:"file_url,omitempty" validate:"omitempty,url"`
	FileName string `json:"file_name,omitempty"`

	// quiz
	Questions     []QuizQuestion `json:"questions,omitempty" validate:"omitempty,dive"`
	QuizTimeLimit time.Duration  `json:"quiz_time_limit,omitempty"`
}

type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title" validate:"required"`
	Lessons []Lesson `json:"lessons" validate:"dive"` // order is significant
}

type Course struct {
	ID          string    `json:"id"`
	EducatorID  string    `json:"educator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Status      Status    `json:"status"`
	Modules     []Module  `json:"modules"` // order is significant
	RemovalNote string    `json:"removal_note,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c *Course) IsPublished() bool { return c.Status == StatusPublished }

// NewCourse contains information needed by an educator to create a draft Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" validate:"gte=0"`
	Modules     []Module `json:"modules" validate:"dive"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what an educator may modify on a draft/rejected Course.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Modules     []Module `json:"modules" validate:"omitempty,dive"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	title := core.CleanString(uc.Title)
	if title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}

	desc := core.CleanString(uc.Description)
	if desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}

	return validate.Struct(uc)
}

// ReviewDecision is an admin's verdict on a submitted or published Course.
type ReviewDecision struct {
	Action string `json:"action" validate:"required,oneof=approve reject remove"`
	Reason string `json:"reason" validate:"required_unless=Action approve"`
}

func (rd *ReviewDecision) Validate(validate *validator.Validate) error {
	rd.Action = core.CleanString(rd.Action, true /* lower */)
	rd.Reason = core.CleanString(rd.Reason)
	return validate.Struct(rd)
}

type QueryFilter struct {
	Search     string   `query:"search"`
	EducatorID string   `query:"educator_id"`
	Statuses   []Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.EducatorID == "" && qf.Statuses == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
