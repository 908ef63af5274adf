package schema

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Initialize(logger.Config{Level: "error", Environment: "development"})
}

// fakeAPI is a function-backed salesforce.API for metadata tests.
type fakeAPI struct {
	describeFn    func(object string) (*salesforce.DescribeResult, error)
	global        *salesforce.DescribeGlobalResult
	globalErr     error
	orgID         string
	describeCalls []string
	globalCalls   int
}

func (f *fakeAPI) Describe(_ context.Context, object string) (*salesforce.DescribeResult, error) {
	f.describeCalls = append(f.describeCalls, object)
	return f.describeFn(object)
}

func (f *fakeAPI) DescribeGlobal(context.Context) (*salesforce.DescribeGlobalResult, error) {
	f.globalCalls++
	return f.global, f.globalErr
}

func (f *fakeAPI) Query(context.Context, string) (*salesforce.QueryResult, error) {
	panic("not used")
}

func (f *fakeAPI) UpdateRecords(context.Context, string, []salesforce.UpdateRecord, bool) ([]salesforce.SaveResult, error) {
	panic("not used")
}

func (f *fakeAPI) UpdateRecord(context.Context, string, string, map[string]any) error {
	panic("not used")
}

func (f *fakeAPI) Identity(context.Context) (map[string]any, error) {
	panic("not used")
}

func (f *fakeAPI) OrgID() string { return f.orgID }

func meetingDescribe(fields ...salesforce.Field) *salesforce.DescribeResult {
	return &salesforce.DescribeResult{Name: MeetingObject, Fields: fields}
}

func TestMeetingFields_ExactLookupPreferred(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(
			salesforce.Field{Name: "Some_Class_Note__c", Type: "reference", ReferenceTo: []string{"Account"}},
			salesforce.Field{Name: "Parent_Class__c", Type: "reference", ReferenceTo: []string{ClassObject}},
			salesforce.Field{Name: "Class_Start_Date__c", Type: "date"},
		), nil
	}}

	got, err := NewDiscoverer(nil).MeetingFields(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, "Parent_Class__c", got.ClassField)
	assert.Equal(t, "Class_Start_Date__c", got.DateField)
	assert.Equal(t, "date", got.DateFieldType)
}

func TestMeetingFields_KeywordFallback(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(
			salesforce.Field{Name: "Yeshiva_Class_Ref__c", Type: "reference", ReferenceTo: []string{"SomeOtherObject__c"}},
			salesforce.Field{Name: "Created_Timestamp__c", Type: "datetime"},
			salesforce.Field{Name: "Session_Start_Time__c", Type: "datetime"},
		), nil
	}}

	got, err := NewDiscoverer(nil).MeetingFields(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, "Yeshiva_Class_Ref__c", got.ClassField)
	// No date-typed field exists, so the keyword-matched datetime wins.
	assert.Equal(t, "Session_Start_Time__c", got.DateField)
	assert.Equal(t, "datetime", got.DateFieldType)
}

func TestMeetingFields_DateTypePreferredOverDatetime(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(
			salesforce.Field{Name: "Start_Time__c", Type: "datetime"},
			salesforce.Field{Name: "Other__c", Type: "date"},
		), nil
	}}

	got, err := NewDiscoverer(nil).MeetingFields(context.Background(), api)
	require.NoError(t, err)
	// No date field matches a keyword, but a positional date still beats
	// a keyword-matched datetime.
	assert.Equal(t, "Other__c", got.DateField)
	assert.Equal(t, "date", got.DateFieldType)
}

func TestMeetingFields_UnboundRolesAreEmpty(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(salesforce.Field{Name: "Name", Type: "string"}), nil
	}}

	got, err := NewDiscoverer(nil).MeetingFields(context.Background(), api)
	require.NoError(t, err)
	assert.Empty(t, got.ClassField)
	assert.Empty(t, got.DateField)
}

func TestAttendanceFields_Discovery(t *testing.T) {
	api := &fakeAPI{
		orgID: "org1",
		global: &salesforce.DescribeGlobalResult{SObjects: []salesforce.GlobalSObject{
			{Name: "Attendance__History", Queryable: true},
			{Name: "Attendance__ChangeEvent", Queryable: true},
			{Name: "Legacy_Attendance__c", Queryable: false},
			{Name: "Unrelated__c", Queryable: true},
			{Name: "Class_Attendance__c", Queryable: true},
		}},
		describeFn: func(object string) (*salesforce.DescribeResult, error) {
			require.Equal(t, "Class_Attendance__c", object)
			return &salesforce.DescribeResult{Name: object, Fields: []salesforce.Field{
				{Name: "Class_Meeting__c", Type: "reference", ReferenceTo: []string{MeetingObject}},
				{Name: "Student__c", Type: "reference", ReferenceTo: []string{ContactObject}},
				{Name: "Attendance_Status__c", Type: "picklist"},
				{Name: "Comment_Notes__c", Type: "textarea"},
			}}, nil
		},
	}

	got, err := NewDiscoverer(nil).AttendanceFields(context.Background(), api)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Class_Attendance__c", got.ObjectName)
	assert.Equal(t, "Class_Meeting__c", got.MeetingField)
	assert.Equal(t, "Student__c", got.StudentField)
	assert.Equal(t, "Attendance_Status__c", got.StatusField)
	assert.Equal(t, "Comment_Notes__c", got.NotesField)
}

func TestAttendanceFields_SkipsUndescribableCandidate(t *testing.T) {
	api := &fakeAPI{
		orgID: "org1",
		global: &salesforce.DescribeGlobalResult{SObjects: []salesforce.GlobalSObject{
			{Name: "Broken_Attendance__c", Queryable: true},
			{Name: "Attendance__c", Queryable: true},
		}},
		describeFn: func(object string) (*salesforce.DescribeResult, error) {
			if object == "Broken_Attendance__c" {
				return nil, errors.New("describe blew up")
			}
			return &salesforce.DescribeResult{Name: object, Fields: []salesforce.Field{
				{Name: "Meeting__c", Type: "reference", ReferenceTo: []string{MeetingObject}},
			}}, nil
		},
	}

	got, err := NewDiscoverer(nil).AttendanceFields(context.Background(), api)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Attendance__c", got.ObjectName)
	assert.Equal(t, "Meeting__c", got.MeetingField)
	assert.Empty(t, got.StudentField)
}

func TestAttendanceFields_NoCandidate(t *testing.T) {
	api := &fakeAPI{
		orgID: "org1",
		global: &salesforce.DescribeGlobalResult{SObjects: []salesforce.GlobalSObject{
			{Name: "Unrelated__c", Queryable: true},
			// Name matches but carries no meeting lookup.
			{Name: "Attendance_Config__c", Queryable: true},
		}},
		describeFn: func(object string) (*salesforce.DescribeResult, error) {
			return &salesforce.DescribeResult{Name: object, Fields: []salesforce.Field{
				{Name: "Name", Type: "string"},
			}}, nil
		},
	}

	got, err := NewDiscoverer(nil).AttendanceFields(context.Background(), api)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSupervisionFields_RatingKeyword(t *testing.T) {
	api := &fakeAPI{
		orgID: "org1",
		global: &salesforce.DescribeGlobalResult{SObjects: []salesforce.GlobalSObject{
			{Name: "Supervision_Entry__c", Queryable: true},
		}},
		describeFn: func(object string) (*salesforce.DescribeResult, error) {
			return &salesforce.DescribeResult{Name: object, Fields: []salesforce.Field{
				{Name: "Class_Meeting_Link__c", Type: "reference", ReferenceTo: []string{"Other__c"}},
				{Name: "Student_Contact__c", Type: "reference", ReferenceTo: []string{ContactObject}},
				{Name: "Weekly_Score__c", Type: "number"},
				{Name: "Supervisor_Comments__c", Type: "textarea"},
			}}, nil
		},
	}

	got, err := NewDiscoverer(nil).SupervisionFields(context.Background(), api)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Class_Meeting_Link__c", got.MeetingField)
	assert.Equal(t, "Student_Contact__c", got.StudentField)
	assert.Equal(t, "Weekly_Score__c", got.StatusField)
	assert.Equal(t, "Supervisor_Comments__c", got.NotesField)
}

func TestDescribeCache_ServesRepeats(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(salesforce.Field{Name: "Class_Start_Date__c", Type: "date"}), nil
	}}

	d := NewDiscoverer(NewDescribeCache(time.Minute))
	_, err := d.MeetingFields(context.Background(), api)
	require.NoError(t, err)
	_, err = d.MeetingFields(context.Background(), api)
	require.NoError(t, err)

	assert.Len(t, api.describeCalls, 1)
}

func TestDescribeCache_DisabledByZeroTTL(t *testing.T) {
	api := &fakeAPI{orgID: "org1", describeFn: func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(), nil
	}}

	d := NewDiscoverer(NewDescribeCache(0))
	_, _ = d.MeetingFields(context.Background(), api)
	_, _ = d.MeetingFields(context.Background(), api)

	assert.Len(t, api.describeCalls, 2)
}

func TestDescribeCache_KeyedByOrg(t *testing.T) {
	describe := func(string) (*salesforce.DescribeResult, error) {
		return meetingDescribe(), nil
	}
	org1 := &fakeAPI{orgID: "org1", describeFn: describe}
	org2 := &fakeAPI{orgID: "org2", describeFn: describe}

	d := NewDiscoverer(NewDescribeCache(time.Minute))
	_, _ = d.MeetingFields(context.Background(), org1)
	_, _ = d.MeetingFields(context.Background(), org2)

	assert.Len(t, org1.describeCalls, 1)
	assert.Len(t, org2.describeCalls, 1)
}
