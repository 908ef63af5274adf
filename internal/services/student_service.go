package services

import (
	"context"
	"fmt"

	"github.com/aish-attendance/attendance-api/internal/schema"
	"github.com/aish-attendance/attendance-api/pkg/logger"
	"github.com/aish-attendance/attendance-api/pkg/metrics"
	"github.com/aish-attendance/attendance-api/pkg/salesforce"
	"github.com/aish-attendance/attendance-api/pkg/sfid"
	"go.uber.org/zap"
)

// DefaultContactChunkSize bounds the IN-list length of a contact name query.
// SOQL statements have a length cap, so large rosters are split into batches.
const DefaultContactChunkSize = 100

// StudentService resolves contact record IDs to display names. Name
// resolution is decorative: a failed chunk degrades the display, never the
// request, so chunk errors are logged and swallowed.
type StudentService struct {
	chunkSize int
}

// NewStudentService creates a student service. chunkSize <= 0 selects the
// default.
func NewStudentService(chunkSize int) *StudentService {
	if chunkSize <= 0 {
		chunkSize = DefaultContactChunkSize
	}
	return &StudentService{chunkSize: chunkSize}
}

// ResolveNames maps contact IDs to display names, keyed by the 15-character
// ID core so 15- and 18-character forms of the same contact collide. IDs that
// could not be resolved are simply absent from the result.
func (s *StudentService) ResolveNames(ctx context.Context, api salesforce.API, ids []string) map[string]string {
	unique := dedupeCore15(ids)
	names := make(map[string]string, len(unique))

	for start := 0; start < len(unique); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]

		soql := fmt.Sprintf("SELECT Id, Name FROM %s WHERE Id IN (%s)",
			schema.ContactObject, salesforce.QuoteIDList(chunk))

		result, err := api.Query(ctx, soql)
		if err != nil {
			metrics.ContactNameLookups.WithLabelValues("error").Inc()
			logger.Warn("Contact name lookup chunk failed",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}

		metrics.ContactNameLookups.WithLabelValues("success").Inc()
		for _, rec := range result.Records {
			if id := rec.ID(); id != "" {
				names[sfid.TruncateToCore15(id)] = rec.StringField("Name")
			}
		}
	}

	return names
}

// dedupeCore15 deduplicates IDs on their 15-character core, preserving first
// occurrence order and dropping blanks.
func dedupeCore15(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		core := sfid.TruncateToCore15(id)
		if _, ok := seen[core]; ok {
			continue
		}
		seen[core] = struct{}{}
		out = append(out, id)
	}
	return out
}
