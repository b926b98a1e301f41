package mocks

import (
	"context"

	"dialogue-generator/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateConversation provides a mock function with given fields: ctx, scenarioID, systemPrompt, userPrompt, params
func (_m *MockAIClient) GenerateConversation(ctx context.Context, scenarioID string, systemPrompt string, userPrompt string, params service.GenerationParams) (string, service.UsageInfo, error) {
	ret := _m.Called(ctx, scenarioID, systemPrompt, userPrompt, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, service.GenerationParams) string); ok {
		r0 = rf(ctx, scenarioID, systemPrompt, userPrompt, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 service.UsageInfo
	if rf, ok := ret.Get(1).(func(context.Context, string, string, string, service.GenerationParams) service.UsageInfo); ok {
		r1 = rf(ctx, scenarioID, systemPrompt, userPrompt, params)
	} else {
		if ret.Get(1) != nil {
			r1 = ret.Get(1).(service.UsageInfo)
		}
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, string, string, service.GenerationParams) error); ok {
		r2 = rf(ctx, scenarioID, systemPrompt, userPrompt, params)
	} else {
		err := ret.Error(2)
		if err != nil {
			r2 = err
		}
	}

	return r0, r1, r2
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAIClient(t interface {
	mock.TestingT
	Helper()
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.AIClient = (*MockAIClient)(nil)
