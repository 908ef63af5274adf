package services_test

import (
	"context"
	"testing"

	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/schema"
	"github.com/aish-attendance/attendance-api/internal/services"
	apperrors "github.com/aish-attendance/attendance-api/pkg/errors"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testMeetingID = "a07MEETINGAAAAA"
	studentA      = "003STUDENTAAAAA"
	studentB      = "003STUDENTBBBBB"
)

func newAttendanceService() *services.AttendanceService {
	discoverer := schema.NewDiscoverer(nil)
	return services.NewAttendanceService(
		discoverer,
		services.NewMeetingService(discoverer),
		services.NewStudentService(0),
	)
}

// stubAttendanceSchema wires the describe calls for an org with an attendance
// object, plus optionally a supervision object.
func stubAttendanceSchema(api *MockAPI, withSupervision bool) {
	api.On("OrgID").Return("00Dorg").Maybe()

	sobjects := []salesforce.GlobalSObject{
		{Name: "Attendance__c", Queryable: true},
	}
	if withSupervision {
		sobjects = append(sobjects, salesforce.GlobalSObject{Name: "Supervision__c", Queryable: true})
	}
	api.On("DescribeGlobal", mock.Anything).
		Return(&salesforce.DescribeGlobalResult{SObjects: sobjects}, nil)

	api.On("Describe", mock.Anything, "Attendance__c").
		Return(&salesforce.DescribeResult{Name: "Attendance__c", Fields: []salesforce.Field{
			{Name: "Meeting__c", Type: "reference", ReferenceTo: []string{schema.MeetingObject}},
			{Name: "Student__c", Type: "reference", ReferenceTo: []string{schema.ContactObject}},
			{Name: "Status__c", Type: "picklist"},
			{Name: "Comments__c", Type: "textarea"},
		}}, nil).Maybe()

	if withSupervision {
		api.On("Describe", mock.Anything, "Supervision__c").
			Return(&salesforce.DescribeResult{Name: "Supervision__c", Fields: []salesforce.Field{
				{Name: "Meeting__c", Type: "reference", ReferenceTo: []string{schema.MeetingObject}},
				{Name: "Student__c", Type: "reference", ReferenceTo: []string{schema.ContactObject}},
				{Name: "Rating__c", Type: "number"},
				{Name: "Notes__c", Type: "textarea"},
			}}, nil).Maybe()
	}
}

func stubMeetingByID(api *MockAPI, meetingID string) {
	api.On("Query", mock.Anything,
		"SELECT Id, Name FROM Yeshiva_Class_Meeting__c WHERE Id = '"+meetingID+"' LIMIT 1").
		Return(queryResult(salesforce.Record{"Id": meetingID, "Name": "CM-0001"}), nil).Once()
}

func stubMeetingExists(api *MockAPI, meetingID string) {
	api.On("Query", mock.Anything,
		"SELECT Id FROM Yeshiva_Class_Meeting__c WHERE Id = '"+meetingID+"' LIMIT 1").
		Return(queryResult(salesforce.Record{"Id": meetingID}), nil).Once()
}

func TestListByMeeting(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, true)
	stubMeetingByID(api, testMeetingID)

	api.On("Query", mock.Anything,
		"SELECT Id, Name, Student__c, Status__c, Comments__c FROM Attendance__c WHERE Meeting__c = '"+testMeetingID+"'").
		Return(queryResult(
			salesforce.Record{
				"Id":          "att1",
				"Name":        "ATT-0001",
				"Student__c":  `<a href="/` + studentA + `">Sarah Cohen</a>`,
				"Status__c":   "Present",
				"Comments__c": "on time",
			},
			salesforce.Record{
				"Id":         "att2",
				"Name":       "ATT-0002",
				"Student__c": studentB,
				"Status__c":  "Absent",
			},
		), nil).Once()

	api.On("Query", mock.Anything,
		"SELECT Id, Name, Student__c, Rating__c, Notes__c FROM Supervision__c WHERE Meeting__c = '"+testMeetingID+"'").
		Return(queryResult(
			salesforce.Record{
				"Id":         "sup1",
				"Name":       "SUP-0001",
				"Student__c": studentB,
				"Rating__c":  "4",
				"Notes__c":   "improving",
			},
		), nil).Once()

	// Only studentB needs name resolution; the anchor already carried one.
	api.On("Query", mock.Anything,
		"SELECT Id, Name FROM Contact WHERE Id IN ('"+studentA+"','"+studentB+"')").
		Return(queryResult(
			salesforce.Record{"Id": studentB, "Name": "David Levi"},
		), nil).Once()

	got, err := newAttendanceService().ListByMeeting(context.Background(), api,
		models.MeetingQuery{MeetingID: testMeetingID})
	require.NoError(t, err)

	assert.Equal(t, "meetingId", got.UsedMeetingFields.Via)
	require.NotNil(t, got.Meeting)
	assert.Equal(t, testMeetingID, got.Meeting.ID)

	require.Len(t, got.Attendance, 2)
	assert.Equal(t, studentA, got.Attendance[0].StudentID)
	assert.Equal(t, "Sarah Cohen", got.Attendance[0].StudentName)
	assert.Equal(t, "Present", got.Attendance[0].Status)
	assert.Equal(t, "on time", got.Attendance[0].Comments)
	assert.Equal(t, studentB, got.Attendance[1].StudentID)
	assert.Equal(t, "David Levi", got.Attendance[1].StudentName)

	require.Len(t, got.Supervision, 1)
	assert.Equal(t, "4", got.Supervision[0].Rating)
	assert.Equal(t, "David Levi", got.Supervision[0].StudentName)

	api.AssertExpectations(t)
}

func TestListByMeeting_IdOnlyFallback(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingByID(api, testMeetingID)

	api.On("Query", mock.Anything,
		"SELECT Id, Name, Student__c, Status__c, Comments__c FROM Attendance__c WHERE Meeting__c = '"+testMeetingID+"'").
		Return(nil, &salesforce.APIError{StatusCode: 400, ErrorCode: "INVALID_FIELD", Message: "bad column"}).Once()

	api.On("Query", mock.Anything,
		"SELECT Id FROM Attendance__c WHERE Meeting__c = '"+testMeetingID+"'").
		Return(queryResult(salesforce.Record{"Id": "att1"}), nil).Once()

	got, err := newAttendanceService().ListByMeeting(context.Background(), api,
		models.MeetingQuery{MeetingID: testMeetingID})
	require.NoError(t, err)

	require.Len(t, got.Attendance, 1)
	assert.Equal(t, "att1", got.Attendance[0].ID)
	assert.Empty(t, got.Attendance[0].Status)
	assert.Nil(t, got.Supervision)

	api.AssertExpectations(t)
}

func TestApplyUpdates_MeetingNotFound(t *testing.T) {
	api := new(MockAPI)
	api.On("Query", mock.Anything, mock.Anything).Return(queryResult(), nil).Once()

	_, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID:  testMeetingID,
		Attendance: []models.UpdateItem{{ID: "att1", Fields: map[string]any{"status": "Present"}}},
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	api.AssertNotCalled(t, "DescribeGlobal")
}

func TestApplyUpdates_ByID_Batch(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	expected := []salesforce.UpdateRecord{
		{ID: "att1", Fields: map[string]any{"Status__c": "Present"}},
		{ID: "att2", Fields: map[string]any{"Status__c": "Late", "Comments__c": "bus"}},
	}
	api.On("UpdateRecords", mock.Anything, "Attendance__c", expected, false).
		Return([]salesforce.SaveResult{
			{ID: "att1", Success: true},
			{Success: false, Errors: []salesforce.SaveError{{Message: "validation failed"}}},
		}, nil).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{ID: "att1", Fields: map[string]any{"status": "Present"}},
			{ID: "att2", Fields: map[string]any{"status": "Late", "comments": "bus"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Updated)
	assert.Equal(t, 1, got.Attendance.Failed)
	require.Len(t, got.Attendance.Errors, 1)
	assert.Equal(t, "att2", got.Attendance.Errors[0].ID)
	assert.Equal(t, "validation failed", got.Attendance.Errors[0].Message)

	api.AssertExpectations(t)
}

func TestApplyUpdates_ByStudent(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	// The 18-char submitted form matches on its 15-char core.
	submitted := studentA + "XYZ"
	api.On("Query", mock.Anything,
		"SELECT Id FROM Attendance__c WHERE Meeting__c = '"+testMeetingID+"' AND Student__c LIKE '"+studentA+"%' LIMIT 1").
		Return(queryResult(salesforce.Record{"Id": "att9"}), nil).Once()
	api.On("UpdateRecord", mock.Anything, "Attendance__c", "att9",
		map[string]any{"Status__c": "Present"}).Return(nil).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{StudentID: submitted, Fields: map[string]any{"status": "Present"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Updated)
	assert.Zero(t, got.Attendance.Failed)
	api.AssertExpectations(t)
}

func TestApplyUpdates_ByStudent_NoRecord(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	api.On("Query", mock.Anything, mock.Anything).Return(queryResult(), nil).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{StudentID: studentA, Fields: map[string]any{"status": "Present"}},
		},
	})
	require.NoError(t, err)

	assert.Zero(t, got.Attendance.Updated)
	assert.Equal(t, 1, got.Attendance.Failed)
	require.Len(t, got.Attendance.Errors, 1)
	assert.Contains(t, got.Attendance.Errors[0].Message, studentA)
	api.AssertNotCalled(t, "UpdateRecord")
}

func TestApplyUpdates_IDWinsOverStudentID(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	api.On("UpdateRecords", mock.Anything, "Attendance__c",
		[]salesforce.UpdateRecord{{ID: "att1", Fields: map[string]any{"Status__c": "Present"}}}, false).
		Return([]salesforce.SaveResult{{ID: "att1", Success: true}}, nil).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{ID: "att1", StudentID: studentA, Fields: map[string]any{"status": "Present"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Updated)
	api.AssertExpectations(t)
}

func TestApplyUpdates_SupervisionMissing_AttendanceProceeds(t *testing.T) {
	api := new(MockAPI)
	// Org has an attendance object but no supervision object.
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	api.On("UpdateRecords", mock.Anything, "Attendance__c",
		[]salesforce.UpdateRecord{{ID: "att1", Fields: map[string]any{"Status__c": "Present"}}}, false).
		Return([]salesforce.SaveResult{{ID: "att1", Success: true}}, nil).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{ID: "att1", Fields: map[string]any{"status": "Present"}},
		},
		Supervision: []models.UpdateItem{
			{ID: "sup1", Fields: map[string]any{"rating": "5"}},
			{StudentID: studentB, Fields: map[string]any{"notes": "good"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Updated)
	assert.Zero(t, got.Supervision.Updated)
	assert.Equal(t, 2, got.Supervision.Failed)
	require.Len(t, got.Supervision.Errors, 2)
	assert.Contains(t, got.Supervision.Errors[0].Message, "no supervision object")

	api.AssertExpectations(t)
}

func TestApplyUpdates_ItemWithoutIdentifier(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{Fields: map[string]any{"status": "Present"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Failed)
	require.Len(t, got.Attendance.Errors, 1)
	assert.Contains(t, got.Attendance.Errors[0].Message, "id or a studentId")
}

func TestApplyUpdates_UnknownFieldsOnly(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{ID: "att1", Fields: map[string]any{"favorite_color": "blue"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Attendance.Failed)
	assert.Contains(t, got.Attendance.Errors[0].Message, "no updatable fields")
	api.AssertNotCalled(t, "UpdateRecords")
}

func TestApplyUpdates_BatchCallFailure(t *testing.T) {
	api := new(MockAPI)
	stubAttendanceSchema(api, false)
	stubMeetingExists(api, testMeetingID)

	api.On("UpdateRecords", mock.Anything, "Attendance__c", mock.Anything, false).
		Return(nil, &salesforce.APIError{StatusCode: 503, Message: "unavailable"}).Once()

	got, err := newAttendanceService().ApplyUpdates(context.Background(), api, models.ApplyUpdatesRequest{
		MeetingID: testMeetingID,
		Attendance: []models.UpdateItem{
			{ID: "att1", Fields: map[string]any{"status": "Present"}},
			{ID: "att2", Fields: map[string]any{"status": "Late"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, got.Attendance.Failed)
	assert.Zero(t, got.Attendance.Updated)
}
