package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tlmsproject/tlms/core/certificate"
	"github.com/tlmsproject/tlms/core/course"
	"github.com/tlmsproject/tlms/core/enrollment"
	"github.com/tlmsproject/tlms/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	educatorID, title string,
	status course.Status,
	price float64,
	modules []course.Module,
) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs := course.Course{
		EducatorID: educatorID,
		Title:      title,
		Price:      price,
		Status:     status,
		Modules:    modules,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateEnrollment(
	t *testing.T,
	repo enrollment.Repository,
	learnerID, courseID, paymentRef string,
) enrollment.Enrollment {
	t.Helper()

	now := time.Now().UTC()
	enr := enrollment.Enrollment{
		LearnerID:  learnerID,
		CourseID:   courseID,
		PaymentRef: paymentRef,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	enr, err := repo.CreateEnrollment(context.Background(), enr)
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

func CreateCertificate(
	t *testing.T,
	repo certificate.Repository,
	learnerID, learnerName, courseID, courseTitle, instructorName string,
) certificate.Certificate {
	t.Helper()

	cert := certificate.Certificate{
		Number:         certificate.GenerateNumber(),
		LearnerID:      learnerID,
		LearnerName:    learnerName,
		CourseID:       courseID,
		CourseTitle:    courseTitle,
		InstructorName: instructorName,
		IssuedAt:       time.Now().UTC(),
	}
	cert, err := repo.CreateCertificate(context.Background(), cert)
	if err != nil {
		t.Fatalf("CreateCertificate() failed: %v", err)
	}
	return cert
}

// TextModule builds a single-module course body with one text lesson per title.
// Lesson IDs match their titles so tests can reference them directly.
func TextModule(title string, lessonTitles ...string) course.Module {
	mod := course.Module{ID: uuid.New().String(), Title: title}
	for _, lt := range lessonTitles {
		mod.Lessons = append(mod.Lessons, course.Lesson{
			ID:       lt,
			Title:    lt,
			Type:     course.LessonText,
			TextBody: "content for " + lt,
		})
	}
	return mod
}
