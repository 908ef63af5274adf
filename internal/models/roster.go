package models

// ClassSummary is one class row in a roster listing.
type ClassSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// TeacherGroup groups a teacher's classes within the requested period.
type TeacherGroup struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Classes []ClassSummary `json:"classes"`
}

// RosterResponse is the payload of the roster-by-period operation. Groups are
// sorted by teacher name ascending; classes keep query order.
type RosterResponse struct {
	Start         string         `json:"start"`
	End           string         `json:"end"`
	TeacherGroups []TeacherGroup `json:"teacherGroups"`
}

// ClassAddRequestPayload asks the registrar to add a student to a class.
type ClassAddRequestPayload struct {
	To          string `json:"to" binding:"required,email"`
	ClassName   string `json:"className" binding:"required"`
	TeacherName string `json:"teacherName" binding:"required"`
	StudentName string `json:"studentName" binding:"required"`
}
