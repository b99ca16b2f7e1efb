package tracker

import (
	"strings"
	"time"
)

// Item is one unit of trackable work fetched from the tracker.
type Item struct {
	ID                 string // Native numeric ID, stable across syncs
	Title              string
	Description        string // HTML-stripped
	Type               string // Bug, Task, User Story, Epic, Feature, ...
	State              string // Tracker-defined lifecycle state
	AssignedTo         string // Display name
	Tags               string
	Priority           string
	Severity           string
	AcceptanceCriteria string // HTML-stripped
	ReproSteps         string // HTML-stripped
	Comments           string
	Project            string
	URL                string
	CreatedDate        time.Time
	ChangedDate        time.Time
}

// Key returns the composite document key, unique per item per project.
func (i *Item) Key() string {
	return i.Project + "_" + i.ID
}

// BuildContent builds the concatenated content string used for embedding
// and keyword search. Field order is fixed and empty fields are omitted;
// the string is regenerated in full on every sync pass.
func (i *Item) BuildContent() string {
	parts := []string{
		"Title: " + i.Title,
		"Type: " + i.Type,
		"State: " + i.State,
	}

	if i.Description != "" {
		parts = append(parts, "Description: "+i.Description)
	}
	if i.AcceptanceCriteria != "" {
		parts = append(parts, "Acceptance Criteria: "+i.AcceptanceCriteria)
	}
	if i.ReproSteps != "" {
		parts = append(parts, "Repro Steps: "+i.ReproSteps)
	}
	if i.Tags != "" {
		parts = append(parts, "Tags: "+i.Tags)
	}
	if i.Priority != "" {
		parts = append(parts, "Priority: "+i.Priority)
	}
	if i.Severity != "" {
		parts = append(parts, "Severity: "+i.Severity)
	}
	if i.AssignedTo != "" {
		parts = append(parts, "Assigned To: "+i.AssignedTo)
	}
	if i.Comments != "" {
		parts = append(parts, "Comments: "+i.Comments)
	}

	return strings.Join(parts, "\n\n")
}
