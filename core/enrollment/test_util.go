package enrollment

type serviceMock struct {
	*service
}

var _ Service = (*serviceMock)(nil)

// NewServiceMock wires a Service for tests.
func NewServiceMock(repo Repository) *serviceMock {
	return &serviceMock{
		service: NewService(repo),
	}
}
