package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/aish-attendance/attendance-api/internal/models"
	"github.com/aish-attendance/attendance-api/internal/schema"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
)

// Default period bounds applied when the caller omits them.
const (
	DefaultPeriodStart = "2025-09-01"
	DefaultPeriodEnd   = "2025-12-31"
)

// RosterService lists classes by period, grouped per teacher.
type RosterService struct{}

// NewRosterService creates a roster service.
func NewRosterService() *RosterService {
	return &RosterService{}
}

// TeachersByPeriod returns the classes fully contained in [start, end],
// grouped by teacher. Dates must already be normalized to YYYY-MM-DD. Groups
// are sorted by teacher name; classes keep query order within each group.
func (s *RosterService) TeachersByPeriod(ctx context.Context, api salesforce.API, start, end string) (*models.RosterResponse, error) {
	soql := fmt.Sprintf(
		"SELECT Id, Name, Teacher__c, Teacher__r.Name, Start_Date__c, End_Date__c FROM %s WHERE Start_Date__c >= %s AND End_Date__c <= %s",
		schema.ClassObject, start, end)

	result, err := api.Query(ctx, soql)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*models.TeacherGroup)
	var order []string

	for _, rec := range result.Records {
		teacherID := rec.StringField("Teacher__c")
		name := rec.RelatedStringField("Teacher__r", "Name")
		// A teacher lookup without a resolvable name is grouped as unassigned
		// rather than forming a nameless group.
		if teacherID == "" || name == "" {
			teacherID, name = "", "Unassigned"
		}
		group, ok := groups[teacherID]
		if !ok {
			group = &models.TeacherGroup{ID: teacherID, Name: name}
			groups[teacherID] = group
			order = append(order, teacherID)
		}
		group.Classes = append(group.Classes, models.ClassSummary{
			ID:        rec.ID(),
			Name:      rec.StringField("Name"),
			StartDate: rec.StringField("Start_Date__c"),
			EndDate:   rec.StringField("End_Date__c"),
		})
	}

	response := &models.RosterResponse{
		Start:         start,
		End:           end,
		TeacherGroups: []models.TeacherGroup{},
	}
	for _, id := range order {
		response.TeacherGroups = append(response.TeacherGroups, *groups[id])
	}
	sort.SliceStable(response.TeacherGroups, func(i, j int) bool {
		return response.TeacherGroups[i].Name < response.TeacherGroups[j].Name
	})

	return response, nil
}
