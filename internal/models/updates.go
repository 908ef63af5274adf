package models

import "encoding/json"

// UpdateItem is one caller-supplied attendance or supervision update. Items
// reference a record either by primary key (id) or by student (studentId);
// when both are present id wins. All remaining JSON keys are collected into
// Fields so the mutable field mapping stays data-driven: only submitted
// fields are written, absent fields are never cleared.
type UpdateItem struct {
	ID        string
	StudentID string
	Fields    map[string]any
}

// UnmarshalJSON splits the identifying keys from the mutable field payload.
func (u *UpdateItem) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if id, ok := raw["id"].(string); ok {
		u.ID = id
	}
	if sid, ok := raw["studentId"].(string); ok {
		u.StudentID = sid
	}
	delete(raw, "id")
	delete(raw, "studentId")
	u.Fields = raw
	return nil
}

// MarshalJSON restores the flat wire shape. Mostly useful for tests and
// request logging.
func (u UpdateItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Fields)+2)
	for k, v := range u.Fields {
		out[k] = v
	}
	if u.ID != "" {
		out["id"] = u.ID
	}
	if u.StudentID != "" {
		out["studentId"] = u.StudentID
	}
	return json.Marshal(out)
}

// LedgerError is one per-item failure entry.
type LedgerError struct {
	ID      string `json:"id,omitempty"`
	Message string `json:"message"`
}

// Ledger accumulates per-item outcomes for one update category. It only ever
// grows; partial success is the accepted outcome, never rolled back.
type Ledger struct {
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Errors  []LedgerError `json:"errors"`
}

// MarshalJSON serializes errors as an empty array rather than null when no
// item failed, keeping the wire shape stable for consumers.
func (l Ledger) MarshalJSON() ([]byte, error) {
	type plainLedger Ledger
	out := plainLedger(l)
	if out.Errors == nil {
		out.Errors = []LedgerError{}
	}
	return json.Marshal(out)
}

// RecordSuccess counts one successful item.
func (l *Ledger) RecordSuccess() {
	l.Updated++
}

// RecordFailure counts one failed item with its error entry.
func (l *Ledger) RecordFailure(id, message string) {
	l.Failed++
	l.Errors = append(l.Errors, LedgerError{ID: id, Message: message})
}

// Merge appends another ledger's outcomes, preserving error order.
func (l *Ledger) Merge(other Ledger) {
	l.Updated += other.Updated
	l.Failed += other.Failed
	l.Errors = append(l.Errors, other.Errors...)
}

// ApplyUpdatesRequest is the payload of the write operation.
type ApplyUpdatesRequest struct {
	MeetingID   string       `json:"meetingId" binding:"required"`
	Attendance  []UpdateItem `json:"attendance"`
	Supervision []UpdateItem `json:"supervision"`
}

// ApplyUpdatesResponse carries one ledger per category. The categories are
// processed independently; a total failure in one never blocks the other.
type ApplyUpdatesResponse struct {
	MeetingID   string `json:"meetingId"`
	Attendance  Ledger `json:"attendance"`
	Supervision Ledger `json:"supervision"`
}
