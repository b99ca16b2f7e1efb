package index

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"workitems-ai/internal/tracker"
)

// Document is one record in the search index: a work item plus its content
// vector, or the reserved sync metadata record.
type Document struct {
	Key                string // Composite project_id key
	ItemID             string // Native numeric ID
	Title              string
	Description        string
	Type               string
	State              string
	AssignedTo         string
	Tags               string
	Project            string
	URL                string
	Priority           string
	Severity           string
	AcceptanceCriteria string
	ReproSteps         string
	CreatedDate        time.Time
	ChangedDate        time.Time
	Content            string
	Vector             []float32

	// Metadata record fields
	IsMetadata    bool
	LastSyncTime  string
	WorkItemCount int

	// Score is populated on search results only.
	Score float32
}

// FromItem builds an index document from a tracker item. The content string
// is regenerated in full; the vector is attached separately after embedding.
func FromItem(item *tracker.Item) *Document {
	return &Document{
		Key:                item.Key(),
		ItemID:             item.ID,
		Title:              item.Title,
		Description:        item.Description,
		Type:               item.Type,
		State:              item.State,
		AssignedTo:         item.AssignedTo,
		Tags:               item.Tags,
		Project:            item.Project,
		URL:                item.URL,
		Priority:           item.Priority,
		Severity:           item.Severity,
		AcceptanceCriteria: item.AcceptanceCriteria,
		ReproSteps:         item.ReproSteps,
		CreatedDate:        item.CreatedDate,
		ChangedDate:        item.ChangedDate,
		Content:            item.BuildContent(),
	}
}

// PointID derives the stable vector point ID for the document. Point IDs
// must be UUIDs, so the composite key is hashed deterministically: re-syncing
// an item always addresses the same point.
func (d *Document) PointID() string {
	return pointIDForKey(d.Key)
}

func pointIDForKey(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("workitems-ai/"+key)).String()
}

// NumericID returns the native ID as an integer for stable ordering.
// Non-numeric IDs sort first.
func (d *Document) NumericID() int {
	n, err := strconv.Atoi(d.ItemID)
	if err != nil {
		return 0
	}
	return n
}

// payload converts the document into the index payload map.
func (d *Document) payload() map[string]any {
	p := map[string]any{
		"key":         d.Key,
		"item_id":     d.ItemID,
		"title":       d.Title,
		"description": d.Description,
		"type":        d.Type,
		"state":       d.State,
		"assigned_to": d.AssignedTo,
		"tags":        d.Tags,
		"project":     d.Project,
		"url":         d.URL,
		"priority":    d.Priority,
		"severity":    d.Severity,
		"acceptance_criteria": d.AcceptanceCriteria,
		"repro_steps":         d.ReproSteps,
		"content":             d.Content,
		"is_metadata":         d.IsMetadata,
	}
	if !d.CreatedDate.IsZero() {
		p["created_date"] = d.CreatedDate.UTC().Format(time.RFC3339)
	}
	if !d.ChangedDate.IsZero() {
		p["changed_date"] = d.ChangedDate.UTC().Format(time.RFC3339)
	}
	if d.IsMetadata {
		p["last_sync_time"] = d.LastSyncTime
		p["work_item_count"] = d.WorkItemCount
	}
	return p
}

// documentFromPayload rebuilds a document from an index payload.
func documentFromPayload(payload map[string]*qdrant.Value) *Document {
	m := convertPayloadToMap(payload)

	doc := &Document{
		Key:                stringValue(m, "key"),
		ItemID:             stringValue(m, "item_id"),
		Title:              stringValue(m, "title"),
		Description:        stringValue(m, "description"),
		Type:               stringValue(m, "type"),
		State:              stringValue(m, "state"),
		AssignedTo:         stringValue(m, "assigned_to"),
		Tags:               stringValue(m, "tags"),
		Project:            stringValue(m, "project"),
		URL:                stringValue(m, "url"),
		Priority:           stringValue(m, "priority"),
		Severity:           stringValue(m, "severity"),
		AcceptanceCriteria: stringValue(m, "acceptance_criteria"),
		ReproSteps:         stringValue(m, "repro_steps"),
		Content:            stringValue(m, "content"),
		LastSyncTime:       stringValue(m, "last_sync_time"),
	}

	if b, ok := m["is_metadata"].(bool); ok {
		doc.IsMetadata = b
	}
	if n, ok := m["work_item_count"].(int64); ok {
		doc.WorkItemCount = int(n)
	}
	if s := stringValue(m, "created_date"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			doc.CreatedDate = t
		}
	}
	if s := stringValue(m, "changed_date"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			doc.ChangedDate = t
		}
	}

	return doc
}

func stringValue(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// convertPayloadToMap converts a Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
