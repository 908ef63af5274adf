package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aish-attendance/attendance-api/internal/services"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestResolveNames_SingleChunk(t *testing.T) {
	api := new(MockAPI)
	api.On("Query", mock.Anything, "SELECT Id, Name FROM Contact WHERE Id IN ('003AAAAAAAAAAAA','003BBBBBBBBBBBB')").
		Return(queryResult(
			salesforce.Record{"Id": "003AAAAAAAAAAAAXYZ", "Name": "Sarah Cohen"},
			salesforce.Record{"Id": "003BBBBBBBBBBBB", "Name": "David Levi"},
		), nil).Once()

	names := services.NewStudentService(0).ResolveNames(context.Background(), api,
		[]string{"003AAAAAAAAAAAA", "003BBBBBBBBBBBB"})

	// Results are keyed by the 15-character ID core regardless of the form
	// Salesforce returns.
	assert.Equal(t, "Sarah Cohen", names["003AAAAAAAAAAAA"])
	assert.Equal(t, "David Levi", names["003BBBBBBBBBBBB"])
	api.AssertExpectations(t)
}

func TestResolveNames_DeduplicatesOnCore15(t *testing.T) {
	api := new(MockAPI)
	api.On("Query", mock.Anything, mock.MatchedBy(func(soql string) bool {
		// The 18-char variant of the same contact must not appear twice.
		return strings.Count(soql, "003AAAAAAAAAAAA") == 1
	})).Return(queryResult(), nil).Once()

	svc := services.NewStudentService(0)
	svc.ResolveNames(context.Background(), api,
		[]string{"003AAAAAAAAAAAA", "003AAAAAAAAAAAAXYZ", "", "003AAAAAAAAAAAA"})

	api.AssertExpectations(t)
}

func TestResolveNames_Chunks(t *testing.T) {
	api := new(MockAPI)
	api.On("Query", mock.Anything, "SELECT Id, Name FROM Contact WHERE Id IN ('003AAAAAAAAAAAA','003BBBBBBBBBBBB')").
		Return(queryResult(salesforce.Record{"Id": "003AAAAAAAAAAAA", "Name": "A"}), nil).Once()
	api.On("Query", mock.Anything, "SELECT Id, Name FROM Contact WHERE Id IN ('003CCCCCCCCCCCC')").
		Return(queryResult(salesforce.Record{"Id": "003CCCCCCCCCCCC", "Name": "C"}), nil).Once()

	names := services.NewStudentService(2).ResolveNames(context.Background(), api,
		[]string{"003AAAAAAAAAAAA", "003BBBBBBBBBBBB", "003CCCCCCCCCCCC"})

	assert.Equal(t, "A", names["003AAAAAAAAAAAA"])
	assert.Equal(t, "C", names["003CCCCCCCCCCCC"])
	api.AssertExpectations(t)
}

func TestResolveNames_FailedChunkIsSkipped(t *testing.T) {
	api := new(MockAPI)
	api.On("Query", mock.Anything, mock.MatchedBy(func(soql string) bool {
		return strings.Contains(soql, "003AAAAAAAAAAAA")
	})).Return(nil, errors.New("query limit exceeded")).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(soql string) bool {
		return strings.Contains(soql, "003CCCCCCCCCCCC")
	})).Return(queryResult(salesforce.Record{"Id": "003CCCCCCCCCCCC", "Name": "C"}), nil).Once()

	names := services.NewStudentService(2).ResolveNames(context.Background(), api,
		[]string{"003AAAAAAAAAAAA", "003BBBBBBBBBBBB", "003CCCCCCCCCCCC"})

	// The failed chunk degrades the display only.
	assert.NotContains(t, names, "003AAAAAAAAAAAA")
	assert.Equal(t, "C", names["003CCCCCCCCCCCC"])
	api.AssertExpectations(t)
}

func TestResolveNames_Empty(t *testing.T) {
	api := new(MockAPI)
	names := services.NewStudentService(0).ResolveNames(context.Background(), api, nil)
	assert.Empty(t, names)
	api.AssertNotCalled(t, "Query")
}
