package services_test

import (
	"context"

	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/stretchr/testify/mock"
)

func init() {
	_ = logger.Initialize(logger.Config{Level: "error", Environment: "development"})
}

// MockAPI is a mock implementation of salesforce.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Query(ctx context.Context, soql string) (*salesforce.QueryResult, error) {
	args := m.Called(ctx, soql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.QueryResult), args.Error(1)
}

func (m *MockAPI) Describe(ctx context.Context, object string) (*salesforce.DescribeResult, error) {
	args := m.Called(ctx, object)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.DescribeResult), args.Error(1)
}

func (m *MockAPI) DescribeGlobal(ctx context.Context) (*salesforce.DescribeGlobalResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.DescribeGlobalResult), args.Error(1)
}

func (m *MockAPI) UpdateRecords(ctx context.Context, object string, records []salesforce.UpdateRecord, allOrNone bool) ([]salesforce.SaveResult, error) {
	args := m.Called(ctx, object, records, allOrNone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]salesforce.SaveResult), args.Error(1)
}

func (m *MockAPI) UpdateRecord(ctx context.Context, object, id string, fields map[string]any) error {
	args := m.Called(ctx, object, id, fields)
	return args.Error(0)
}

func (m *MockAPI) Identity(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockAPI) OrgID() string {
	args := m.Called()
	return args.String(0)
}

// queryResult builds a QueryResult from records.
func queryResult(records ...salesforce.Record) *salesforce.QueryResult {
	return &salesforce.QueryResult{
		TotalSize: len(records),
		Done:      true,
		Records:   records,
	}
}
