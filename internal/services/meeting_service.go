package services

import (
	"context"
	"fmt"

	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/schema"
	apperrors "github.com/aish-attendance/attendance-api/pkg/errors"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"go.uber.org/zap"
)

// MeetingService resolves a class meeting from either a direct meeting ID or
// a (class, date) pair. Resolution is cheapest-first: direct ID, then the
// exact expected schema, then metadata discovery. The exact-schema attempt is
// allowed to fail silently because its only failure mode of interest, an org
// with renamed fields, is precisely what discovery handles.
type MeetingService struct {
	discoverer *schema.Discoverer
}

// NewMeetingService creates a meeting service.
func NewMeetingService(discoverer *schema.Discoverer) *MeetingService {
	return &MeetingService{discoverer: discoverer}
}

// MeetingNotFoundError reports a failed meeting lookup together with the
// resolution path and field bindings that were attempted, so the caller can
// diagnose schema drift from the 404 body instead of a bare message.
type MeetingNotFoundError struct {
	Used models.UsedMeetingFields
}

func (e *MeetingNotFoundError) Error() string {
	return "meeting not found"
}

func (e *MeetingNotFoundError) Unwrap() error {
	return apperrors.ErrNotFound
}

// Resolve locates the meeting for the given query. The returned
// UsedMeetingFields always reports which path and bindings were attempted,
// also on failure, so callers can diagnose schema drift.
func (s *MeetingService) Resolve(ctx context.Context, api salesforce.API, q models.MeetingQuery) (*models.MeetingRef, models.UsedMeetingFields, error) {
	if q.MeetingID != "" {
		return s.resolveByID(ctx, api, q.MeetingID)
	}

	if q.ClassID == "" || q.Date == "" {
		return nil, models.UsedMeetingFields{}, apperrors.InvalidInputError("meeting", "provide meetingId or classId and date")
	}

	if ref, used, ok := s.resolveExact(ctx, api, q); ok {
		return ref, used, nil
	}

	return s.resolveDiscovered(ctx, api, q)
}

func (s *MeetingService) resolveByID(ctx context.Context, api salesforce.API, meetingID string) (*models.MeetingRef, models.UsedMeetingFields, error) {
	used := models.UsedMeetingFields{Via: "meetingId"}

	soql := fmt.Sprintf("SELECT Id, Name FROM %s WHERE Id = %s LIMIT 1",
		schema.MeetingObject, salesforce.QuoteString(meetingID))

	result, err := api.Query(ctx, soql)
	if err != nil {
		metrics.MeetingLookups.WithLabelValues("meetingId", "error").Inc()
		return nil, used, err
	}
	if len(result.Records) == 0 {
		metrics.MeetingLookups.WithLabelValues("meetingId", "not_found").Inc()
		return nil, used, &MeetingNotFoundError{Used: used}
	}

	metrics.MeetingLookups.WithLabelValues("meetingId", "success").Inc()
	rec := result.Records[0]
	return &models.MeetingRef{ID: rec.ID(), Name: rec.StringField("Name")}, used, nil
}

// resolveExact tries the expected schema verbatim. Any query error means the
// org has drifted from it, so the error is logged and swallowed in favor of
// discovery.
func (s *MeetingService) resolveExact(ctx context.Context, api salesforce.API, q models.MeetingQuery) (*models.MeetingRef, models.UsedMeetingFields, bool) {
	soql := fmt.Sprintf("SELECT Id, Name FROM %s WHERE %s = %s AND %s = %s LIMIT 1",
		schema.MeetingObject,
		schema.ExactClassField, salesforce.QuoteString(q.ClassID),
		schema.ExactDateField, q.Date)

	result, err := api.Query(ctx, soql)
	if err != nil {
		logger.Debug("Exact meeting schema query failed, falling back to discovery",
			zap.String("class_id", q.ClassID),
			zap.Error(err))
		return nil, models.UsedMeetingFields{}, false
	}
	if len(result.Records) == 0 {
		return nil, models.UsedMeetingFields{}, false
	}

	metrics.MeetingLookups.WithLabelValues("exact", "success").Inc()
	rec := result.Records[0]
	return &models.MeetingRef{ID: rec.ID(), Name: rec.StringField("Name")},
		models.UsedMeetingFields{
			Via:        "exact",
			ClassField: schema.ExactClassField,
			DateField:  schema.ExactDateField,
			DateType:   "date",
		}, true
}

func (s *MeetingService) resolveDiscovered(ctx context.Context, api salesforce.API, q models.MeetingQuery) (*models.MeetingRef, models.UsedMeetingFields, error) {
	fields, err := s.discoverer.MeetingFields(ctx, api)
	if err != nil {
		metrics.MeetingLookups.WithLabelValues("discovered", "error").Inc()
		return nil, models.UsedMeetingFields{Via: "discovered"}, err
	}

	classField := fields.ClassField
	dateField := fields.DateField
	dateType := fields.DateFieldType

	// Caller overrides pin a binding for orgs where the heuristics guess
	// wrong. Overridden date fields are assumed to be plain dates.
	if override := salesforce.SanitizeFieldName(q.ClassFieldOverride); override != "" {
		classField = override
	}
	if override := salesforce.SanitizeFieldName(q.DateFieldOverride); override != "" {
		dateField = override
		dateType = "date"
	}

	used := models.UsedMeetingFields{
		Via:        "discovered",
		ClassField: classField,
		DateField:  dateField,
		DateType:   dateType,
	}

	if classField == "" || dateField == "" {
		metrics.MeetingLookups.WithLabelValues("discovered", "unbound").Inc()
		return nil, used, apperrors.ConfigurationError(fmt.Sprintf(
			"cannot locate meeting: class field %q, date field %q on %s",
			classField, dateField, fields.ObjectName))
	}

	// Datetime fields cannot be compared to a date literal directly.
	predicate := dateField + " = " + q.Date
	if dateType == "datetime" {
		predicate = fmt.Sprintf("DAY_ONLY(%s) = %s", dateField, q.Date)
	}

	soql := fmt.Sprintf("SELECT Id, Name FROM %s WHERE %s = %s AND %s LIMIT 1",
		fields.ObjectName, classField, salesforce.QuoteString(q.ClassID), predicate)

	result, err := api.Query(ctx, soql)
	if err != nil {
		metrics.MeetingLookups.WithLabelValues("discovered", "error").Inc()
		return nil, used, err
	}
	if len(result.Records) == 0 {
		metrics.MeetingLookups.WithLabelValues("discovered", "not_found").Inc()
		return nil, used, &MeetingNotFoundError{Used: used}
	}

	metrics.MeetingLookups.WithLabelValues("discovered", "success").Inc()
	rec := result.Records[0]
	return &models.MeetingRef{ID: rec.ID(), Name: rec.StringField("Name")}, used, nil
}
