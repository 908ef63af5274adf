// Package schema locates the concrete field and object names that play the
// structural roles the relay depends on. Orgs diverge from the expected
// schema, so every role is bound defensively: exact relationship-target
// matches first, then case-insensitive keyword heuristics.
package schema

import (
	"context"
	"strings"

	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"go.uber.org/zap"
)

// Object and field names of the expected schema version. The exact names are
// tried first; discovery is the fallback when an org has drifted.
const (
	MeetingObject = "Yeshiva_Class_Meeting__c"
	ClassObject   = "Yeshiva_Classes__c"
	ContactObject = "Contact"

	ExactClassField = "Yeshiva_Classes__c"
	ExactDateField  = "Class_Start_Date__c"
)

// MeetingFields binds the structural roles of the class meeting object. A
// role may be empty when no candidate field matched; callers decide whether
// the unbound role is mandatory for their operation.
type MeetingFields struct {
	ObjectName    string `json:"objectName"`
	ClassField    string `json:"classFieldName"`
	DateField     string `json:"dateFieldName"`
	DateFieldType string `json:"dateFieldType"`
}

// RecordFields binds the structural roles of an attendance-like object: the
// mandatory meeting lookup plus optional student, status and notes fields.
type RecordFields struct {
	ObjectName   string `json:"objectName"`
	MeetingField string `json:"meetingLookupField"`
	StudentField string `json:"studentFieldName,omitempty"`
	StatusField  string `json:"statusFieldName,omitempty"`
	NotesField   string `json:"notesFieldName,omitempty"`
}

// Discoverer performs role discovery against org metadata, with an optional
// describe cache in front of the metadata endpoints.
type Discoverer struct {
	cache *DescribeCache
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(cache *DescribeCache) *Discoverer {
	if cache == nil {
		cache = NewDescribeCache(0)
	}
	return &Discoverer{cache: cache}
}

func (d *Discoverer) describe(ctx context.Context, api salesforce.API, object string) (*salesforce.DescribeResult, error) {
	key := "describe:" + api.OrgID() + ":" + object
	if v, ok := d.cache.get("describe", key); ok {
		return v.(*salesforce.DescribeResult), nil
	}
	desc, err := api.Describe(ctx, object)
	if err != nil {
		return nil, err
	}
	d.cache.set(key, desc)
	return desc, nil
}

func (d *Discoverer) describeGlobal(ctx context.Context, api salesforce.API) (*salesforce.DescribeGlobalResult, error) {
	key := "global:" + api.OrgID()
	if v, ok := d.cache.get("global", key); ok {
		return v.(*salesforce.DescribeGlobalResult), nil
	}
	global, err := api.DescribeGlobal(ctx)
	if err != nil {
		return nil, err
	}
	d.cache.set(key, global)
	return global, nil
}

// MeetingFields discovers the class lookup and date field of the meeting
// object. Unbound roles come back empty, not as errors.
func (d *Discoverer) MeetingFields(ctx context.Context, api salesforce.API) (*MeetingFields, error) {
	desc, err := d.describe(ctx, api, MeetingObject)
	if err != nil {
		return nil, err
	}

	result := &MeetingFields{ObjectName: MeetingObject}

	if f := findLookupTo(desc.Fields, ClassObject); f != nil {
		result.ClassField = f.Name
	} else if f := findLookupByKeyword(desc.Fields, "class"); f != nil {
		result.ClassField = f.Name
	}

	if f, fieldType := findDateField(desc.Fields, "date", "start"); f != nil {
		result.DateField = f.Name
		result.DateFieldType = fieldType
	}

	return result, nil
}

// AttendanceFields discovers the object that records attendance for a
// meeting. Returns nil when no candidate object qualifies.
func (d *Discoverer) AttendanceFields(ctx context.Context, api salesforce.API) (*RecordFields, error) {
	return d.discoverRecordObject(ctx, api, "attendance", []string{"status"}, []string{"notes", "comment"})
}

// SupervisionFields discovers the object that records supervision ratings
// for a meeting. Returns nil when no candidate object qualifies.
func (d *Discoverer) SupervisionFields(ctx context.Context, api salesforce.API) (*RecordFields, error) {
	return d.discoverRecordObject(ctx, api, "supervision", []string{"rating", "score"}, []string{"notes", "comment"})
}

// discoverRecordObject enumerates queryable objects whose name contains the
// role keyword, skipping audit variants, and returns the first one carrying a
// lookup to the meeting object. Optional fields are bound best-effort; their
// absence is not a failure. A describe error for one candidate must not
// abort evaluation of the next.
func (d *Discoverer) discoverRecordObject(ctx context.Context, api salesforce.API, objectKeyword string, statusKeywords, notesKeywords []string) (*RecordFields, error) {
	global, err := d.describeGlobal(ctx, api)
	if err != nil {
		return nil, err
	}

	for _, sobject := range global.SObjects {
		if !sobject.Queryable {
			continue
		}
		name := sobject.Name
		if !containsFold(name, objectKeyword) {
			continue
		}
		if hasSuffixFold(name, "ChangeEvent") || hasSuffixFold(name, "History") {
			continue
		}

		desc, describeErr := d.describe(ctx, api, name)
		if describeErr != nil {
			logger.Warn("Skipping undescribable candidate object",
				zap.String("object", name),
				zap.Error(describeErr))
			continue
		}

		lookup := findLookupTo(desc.Fields, MeetingObject)
		if lookup == nil {
			lookup = findLookupByKeyword(desc.Fields, "class_meeting")
		}
		if lookup == nil {
			continue
		}

		result := &RecordFields{
			ObjectName:   name,
			MeetingField: lookup.Name,
		}

		if f := findLookupByKeyword(desc.Fields, "student"); f != nil {
			result.StudentField = f.Name
		} else if f := findLookupTo(desc.Fields, ContactObject); f != nil {
			result.StudentField = f.Name
		}
		if f := findByKeyword(desc.Fields, statusKeywords...); f != nil {
			result.StatusField = f.Name
		}
		if f := findByKeyword(desc.Fields, notesKeywords...); f != nil {
			result.NotesField = f.Name
		}

		return result, nil
	}

	return nil, nil
}

// findLookupTo returns the first reference field whose declared targets
// include the given object.
func findLookupTo(fields []salesforce.Field, target string) *salesforce.Field {
	for i := range fields {
		f := &fields[i]
		if f.Type != "reference" {
			continue
		}
		for _, ref := range f.ReferenceTo {
			if strings.EqualFold(ref, target) {
				return f
			}
		}
	}
	return nil
}

// findLookupByKeyword returns the first reference field whose name contains
// the keyword. Only used when no exact relationship-target match exists.
func findLookupByKeyword(fields []salesforce.Field, keyword string) *salesforce.Field {
	for i := range fields {
		f := &fields[i]
		if f.Type == "reference" && containsFold(f.Name, keyword) {
			return f
		}
	}
	return nil
}

// findDateField binds the date role. Order matters: an exact date type is
// preferred over datetime because the query predicate differs, and keyword
// matches are preferred over positional fallbacks.
func findDateField(fields []salesforce.Field, keywords ...string) (*salesforce.Field, string) {
	for _, fieldType := range []string{"date", "datetime"} {
		if f := findTypedByKeyword(fields, fieldType, keywords...); f != nil {
			return f, fieldType
		}
		for i := range fields {
			if fields[i].Type == fieldType {
				return &fields[i], fieldType
			}
		}
	}
	return nil, ""
}

func findTypedByKeyword(fields []salesforce.Field, fieldType string, keywords ...string) *salesforce.Field {
	for i := range fields {
		f := &fields[i]
		if f.Type != fieldType {
			continue
		}
		for _, kw := range keywords {
			if containsFold(f.Name, kw) {
				return f
			}
		}
	}
	return nil
}

// findByKeyword returns the first field of any type whose name contains one
// of the keywords.
func findByKeyword(fields []salesforce.Field, keywords ...string) *salesforce.Field {
	for i := range fields {
		f := &fields[i]
		for _, kw := range keywords {
			if containsFold(f.Name, kw) {
				return f
			}
		}
	}
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasSuffixFold(s, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(s), strings.ToLower(suffix))
}
