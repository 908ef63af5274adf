package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/schema"
	apperrors "github.com/aish-attendance/attendance-api/pkg/errors"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/aish-attendance/attendance-api/pkg/sfid"
	"go.uber.org/zap"
)

// Caller-facing field names and the structural roles they map to. Only keys
// listed here are ever written; unknown keys in an update item are dropped.
var (
	attendanceFieldRoles = map[string]fieldRole{
		"status":   roleStatus,
		"comments": roleNotes,
	}
	supervisionFieldRoles = map[string]fieldRole{
		"rating": roleStatus,
		"notes":  roleNotes,
	}
)

type fieldRole int

const (
	roleStatus fieldRole = iota
	roleNotes
)

// AttendanceService reads and reconciles the attendance and supervision
// records of a class meeting. The two categories are processed independently
// end to end: a schema failure or total write failure in one never blocks
// the other, and within a category each item succeeds or fails on its own.
type AttendanceService struct {
	discoverer *schema.Discoverer
	meetings   *MeetingService
	students   *StudentService
}

// NewAttendanceService creates an attendance service.
func NewAttendanceService(discoverer *schema.Discoverer, meetings *MeetingService, students *StudentService) *AttendanceService {
	return &AttendanceService{
		discoverer: discoverer,
		meetings:   meetings,
		students:   students,
	}
}

// ListByMeeting resolves the meeting and returns its attendance roster,
// decorated with student identities, plus supervision ratings when the org
// has a supervision object.
func (s *AttendanceService) ListByMeeting(ctx context.Context, api salesforce.API, q models.MeetingQuery) (*models.MeetingAttendanceResponse, error) {
	meeting, used, err := s.meetings.Resolve(ctx, api, q)
	if err != nil {
		return nil, err
	}

	response := &models.MeetingAttendanceResponse{
		ClassID:           q.ClassID,
		Start:             q.Date,
		Meeting:           meeting,
		UsedMeetingFields: used,
		Attendance:        []models.AttendanceRecord{},
	}

	attFields, err := s.discoverer.AttendanceFields(ctx, api)
	if err != nil {
		return nil, err
	}
	if attFields == nil {
		return nil, apperrors.ConfigurationError("no attendance object found in org schema")
	}

	attRecords := s.queryCategoryRecords(ctx, api, attFields, meeting.ID)

	var studentIDs []string
	for _, rec := range attRecords {
		row := models.AttendanceRecord{
			ID:       rec.ID(),
			Name:     rec.StringField("Name"),
			Status:   rec.StringField(attFields.StatusField),
			Comments: rec.StringField(attFields.NotesField),
		}
		identity := sfid.ParseReference(rec[attFields.StudentField])
		row.StudentID = identity.ID
		row.StudentName = identity.DisplayName
		if identity.ID != "" {
			studentIDs = append(studentIDs, identity.ID)
		}
		response.Attendance = append(response.Attendance, row)
	}

	supFields, err := s.discoverer.SupervisionFields(ctx, api)
	if err != nil {
		// Supervision is an optional enrichment on reads.
		logger.Warn("Supervision object discovery failed", zap.Error(err))
		supFields = nil
	}

	var supRecords []salesforce.Record
	if supFields != nil {
		supRecords = s.queryCategoryRecords(ctx, api, supFields, meeting.ID)
		response.Supervision = []models.SupervisionRecord{}
		for _, rec := range supRecords {
			row := models.SupervisionRecord{
				ID:     rec.ID(),
				Name:   rec.StringField("Name"),
				Rating: rec.StringField(supFields.StatusField),
				Notes:  rec.StringField(supFields.NotesField),
			}
			identity := sfid.ParseReference(rec[supFields.StudentField])
			row.StudentID = identity.ID
			row.StudentName = identity.DisplayName
			if identity.ID != "" {
				studentIDs = append(studentIDs, identity.ID)
			}
			response.Supervision = append(response.Supervision, row)
		}
	}

	// One name-resolution pass covers both categories. Rows whose reference
	// already carried a display name keep it.
	names := s.students.ResolveNames(ctx, api, studentIDs)
	for i := range response.Attendance {
		row := &response.Attendance[i]
		if row.StudentName == "" && row.StudentID != "" {
			row.StudentName = names[sfid.TruncateToCore15(row.StudentID)]
		}
	}
	for i := range response.Supervision {
		row := &response.Supervision[i]
		if row.StudentName == "" && row.StudentID != "" {
			row.StudentName = names[sfid.TruncateToCore15(row.StudentID)]
		}
	}

	return response, nil
}

// queryCategoryRecords fetches the category rows for one meeting. When the
// full field list cannot be queried, an Id-only retry keeps the roster shape
// intact: the front-end renders rows without decoration rather than nothing.
func (s *AttendanceService) queryCategoryRecords(ctx context.Context, api salesforce.API, fields *schema.RecordFields, meetingID string) []salesforce.Record {
	selected := []string{"Id", "Name"}
	for _, f := range []string{fields.StudentField, fields.StatusField, fields.NotesField} {
		if f != "" {
			selected = append(selected, f)
		}
	}

	where := fmt.Sprintf("WHERE %s = %s", fields.MeetingField, salesforce.QuoteString(meetingID))

	soql := fmt.Sprintf("SELECT %s FROM %s %s", strings.Join(selected, ", "), fields.ObjectName, where)
	result, err := api.Query(ctx, soql)
	if err == nil {
		return result.Records
	}

	logger.Warn("Category query failed, retrying with Id only",
		zap.String("object", fields.ObjectName),
		zap.Error(err))

	fallback := fmt.Sprintf("SELECT Id FROM %s %s", fields.ObjectName, where)
	result, err = api.Query(ctx, fallback)
	if err != nil {
		logger.Warn("Id-only category query failed",
			zap.String("object", fields.ObjectName),
			zap.Error(err))
		return nil
	}
	return result.Records
}

// ApplyUpdates verifies the meeting exists and applies the submitted
// attendance and supervision updates, returning one ledger per category.
// Partial success is the normal outcome and is never rolled back.
func (s *AttendanceService) ApplyUpdates(ctx context.Context, api salesforce.API, req models.ApplyUpdatesRequest) (*models.ApplyUpdatesResponse, error) {
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE Id = %s LIMIT 1",
		schema.MeetingObject, salesforce.QuoteString(req.MeetingID))
	result, err := api.Query(ctx, soql)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, apperrors.NotFoundError("meeting")
	}

	response := &models.ApplyUpdatesResponse{MeetingID: req.MeetingID}

	if len(req.Attendance) > 0 {
		attFields, attErr := s.discoverer.AttendanceFields(ctx, api)
		response.Attendance = s.applyCategory(ctx, api, "attendance", attFields, attErr,
			req.MeetingID, req.Attendance, attendanceFieldRoles)
	}

	if len(req.Supervision) > 0 {
		supFields, supErr := s.discoverer.SupervisionFields(ctx, api)
		response.Supervision = s.applyCategory(ctx, api, "supervision", supFields, supErr,
			req.MeetingID, req.Supervision, supervisionFieldRoles)
	}

	return response, nil
}

// applyCategory reconciles one category's items. A missing or undiscoverable
// category object fails every submitted item of that category, recorded in
// the ledger rather than raised, so the sibling category still proceeds.
func (s *AttendanceService) applyCategory(ctx context.Context, api salesforce.API, category string, fields *schema.RecordFields, discoverErr error, meetingID string, items []models.UpdateItem, roles map[string]fieldRole) models.Ledger {
	var ledger models.Ledger
	if len(items) == 0 {
		return ledger
	}

	if discoverErr != nil || fields == nil {
		msg := fmt.Sprintf("no %s object found in org schema", category)
		if discoverErr != nil {
			msg = fmt.Sprintf("%s object discovery failed: %v", category, discoverErr)
		}
		for _, item := range items {
			ledger.RecordFailure(item.ID, msg)
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
		}
		return ledger
	}

	var byID []updateTarget
	var byStudent []updateTarget

	for _, item := range items {
		fieldValues, err := mapFields(item.Fields, roles, fields)
		if err != nil {
			ledger.RecordFailure(item.ID, err.Error())
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
			continue
		}

		target := updateTarget{item: item, fields: fieldValues}
		switch {
		case item.ID != "":
			// id wins when both identifiers are present.
			byID = append(byID, target)
		case item.StudentID != "":
			byStudent = append(byStudent, target)
		default:
			ledger.RecordFailure("", "update item needs an id or a studentId")
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
		}
	}

	s.applyByID(ctx, api, category, fields.ObjectName, byID, &ledger)
	s.applyByStudent(ctx, api, category, fields, meetingID, byStudent, &ledger)

	return ledger
}

type updateTarget struct {
	item   models.UpdateItem
	fields map[string]any
}

// mapFields translates caller field names to the org's bound field names. An
// item whose every key is unknown or whose roles are unbound has nothing to
// write and is rejected.
func mapFields(submitted map[string]any, roles map[string]fieldRole, fields *schema.RecordFields) (map[string]any, error) {
	out := make(map[string]any)
	for key, value := range submitted {
		role, ok := roles[key]
		if !ok {
			continue
		}
		var bound string
		switch role {
		case roleStatus:
			bound = fields.StatusField
		case roleNotes:
			bound = fields.NotesField
		}
		if bound == "" {
			continue
		}
		out[bound] = value
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no updatable fields in item")
	}
	return out, nil
}

// applyByID writes directly-addressed items through one collections call with
// allOrNone off. Results come back in request order; each maps to its item.
func (s *AttendanceService) applyByID(ctx context.Context, api salesforce.API, category, object string, targets []updateTarget, ledger *models.Ledger) {
	if len(targets) == 0 {
		return
	}

	records := make([]salesforce.UpdateRecord, 0, len(targets))
	for _, t := range targets {
		records = append(records, salesforce.UpdateRecord{ID: t.item.ID, Fields: t.fields})
	}

	results, err := api.UpdateRecords(ctx, object, records, false)
	if err != nil {
		for _, t := range targets {
			ledger.RecordFailure(t.item.ID, err.Error())
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
		}
		return
	}

	for i, t := range targets {
		if i < len(results) && results[i].Success {
			ledger.RecordSuccess()
			metrics.ReconcileItems.WithLabelValues(category, "updated").Inc()
			continue
		}
		msg := "update failed"
		if i < len(results) {
			msg = results[i].ErrorMessage()
		}
		ledger.RecordFailure(t.item.ID, msg)
		metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
	}
}

// applyByStudent locates each student's record within the meeting and patches
// it individually. The student match is on the 15-character ID core, since
// the submitted form and the stored form may differ in length.
func (s *AttendanceService) applyByStudent(ctx context.Context, api salesforce.API, category string, fields *schema.RecordFields, meetingID string, targets []updateTarget, ledger *models.Ledger) {
	if len(targets) == 0 {
		return
	}

	if fields.StudentField == "" {
		for _, t := range targets {
			ledger.RecordFailure("", fmt.Sprintf("no student field on %s to match studentId %s", fields.ObjectName, t.item.StudentID))
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
		}
		return
	}

	for _, t := range targets {
		core := sfid.TruncateToCore15(t.item.StudentID)
		soql := fmt.Sprintf("SELECT Id FROM %s WHERE %s = %s AND %s LIKE %s LIMIT 1",
			fields.ObjectName,
			fields.MeetingField, salesforce.QuoteString(meetingID),
			fields.StudentField, salesforce.QuoteString(core+"%"))

		result, err := api.Query(ctx, soql)
		if err != nil {
			ledger.RecordFailure("", fmt.Sprintf("lookup for student %s failed: %v", t.item.StudentID, err))
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
			continue
		}
		if len(result.Records) == 0 {
			ledger.RecordFailure("", fmt.Sprintf("no %s record for student %s in meeting", category, t.item.StudentID))
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
			continue
		}

		recordID := result.Records[0].ID()
		if err := api.UpdateRecord(ctx, fields.ObjectName, recordID, t.fields); err != nil {
			ledger.RecordFailure(recordID, err.Error())
			metrics.ReconcileItems.WithLabelValues(category, "failed").Inc()
			continue
		}

		ledger.RecordSuccess()
		metrics.ReconcileItems.WithLabelValues(category, "updated").Inc()
	}
}
