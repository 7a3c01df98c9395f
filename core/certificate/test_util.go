package certificate

import (
	"context"

	"github.com/tlmsproject/tlms/core"
)

type serviceMock struct {
	*service
}

var _ Service = (*serviceMock)(nil)

// NewServiceMock wires a Service for tests.
func NewServiceMock(repo Repository, progress ProgressChecker, mailSvc core.EmailService) *serviceMock {
	return &serviceMock{
		service: NewService(repo, progress, mailSvc),
	}
}

// ProgressCheckerMock returns a fixed ratio per (learner, course) pair.
type ProgressCheckerMock struct {
	Ratios map[[2]string]float64
}

var _ ProgressChecker = (*ProgressCheckerMock)(nil)

func (m *ProgressCheckerMock) Progress(_ context.Context, learnerID, courseID string) (float64, error) {
	return m.Ratios[[2]string{learnerID, courseID}], nil
}
