package mocks

import (
	"context"

	"dialogue-generator/internal/model"
	"dialogue-generator/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockResultRepository is a mock type for the ResultRepository type
type MockResultRepository struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, record
func (_m *MockResultRepository) Save(ctx context.Context, record *model.ResultRecord) error {
	ret := _m.Called(ctx, record)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.ResultRecord) error); ok {
		r0 = rf(ctx, record)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function
func (_m *MockResultRepository) Close() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockResultRepository creates a new instance of MockResultRepository.
// The first argument is typically a *testing.T value.
func NewMockResultRepository(t interface {
	mock.TestingT
	Helper()
}) *MockResultRepository {
	m := &MockResultRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.ResultRepository = (*MockResultRepository)(nil)
