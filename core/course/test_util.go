package course

import (
	"github.com/tlmsproject/tlms/core"
	"github.com/tlmsproject/tlms/core/user"
)

type serviceMock struct {
	*service
}

var _ Service = (*serviceMock)(nil)

// NewServiceMock wires a Service for tests.
func NewServiceMock(repo Repository, usrSvc user.Service, mailSvc core.EmailService) *serviceMock {
	return &serviceMock{
		service: NewService(repo, usrSvc, mailSvc),
	}
}
