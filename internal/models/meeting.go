package models

// MeetingRef identifies a resolved class meeting. Derived fresh per request,
// never stored.
type MeetingRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UsedMeetingFields records which resolution path and field bindings located
// the meeting. Returned to the caller for diagnostics.
type UsedMeetingFields struct {
	Via        string `json:"via"` // meetingId, exact or discovered
	ClassField string `json:"classField,omitempty"`
	DateField  string `json:"dateField,omitempty"`
	DateType   string `json:"dateType,omitempty"`
}

// MeetingQuery is the input to meeting resolution: either a direct meeting ID
// or a (classId, date) pair. Date is already normalized to YYYY-MM-DD. The
// field overrides let a caller pin discovery results for their org.
type MeetingQuery struct {
	MeetingID          string
	ClassID            string
	Date               string
	ClassFieldOverride string
	DateFieldOverride  string
}

// AttendanceRecord is one attendance row decorated with the resolved student
// identity.
type AttendanceRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	StudentID   string `json:"studentId,omitempty"`
	StudentName string `json:"studentName,omitempty"`
	Status      string `json:"status,omitempty"`
	Comments    string `json:"comments,omitempty"`
}

// SupervisionRecord is one supervision rating row decorated with the resolved
// student identity.
type SupervisionRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	StudentID   string `json:"studentId,omitempty"`
	StudentName string `json:"studentName,omitempty"`
	Rating      string `json:"rating,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// MeetingAttendanceResponse is the payload of the by-meeting read operation.
// Supervision is omitted when the org has no discoverable supervision object.
type MeetingAttendanceResponse struct {
	ClassID           string              `json:"classId,omitempty"`
	Start             string              `json:"start,omitempty"`
	Meeting           *MeetingRef         `json:"meeting"`
	UsedMeetingFields UsedMeetingFields   `json:"usedMeetingFields"`
	Attendance        []AttendanceRecord  `json:"attendance"`
	Supervision       []SupervisionRecord `json:"supervision,omitempty"`
}
