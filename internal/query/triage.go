package query

import (
	"context"
	"fmt"
	"strings"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/index"
	"workitems-ai/internal/llm"
)

const (
	triageTemperature = 0.3
	triageMaxTokens   = 1500

	similarBugLimit = 10
	// similarBugDisplayLimit caps how many of the retrieved similar bugs are
	// rendered into the context and references.
	similarBugDisplayLimit = 5
	requirementLimit       = 5
	triageSnippetLen       = 200

	noSimilarBugs   = "No similar bugs found."
	noRequirements  = "No directly related requirements found."
	missingBugReply = "Please provide a bug ID (e.g., #123) or describe the bug you want to analyze."
)

const triageSystemPrompt = "You are a bug triage specialist. Analyze bugs for duplicates, match them with requirements, and provide triage decisions based on the provided context."

const triageInstruction = `Analyze this bug and provide:

1. **Similar Bugs**: List any similar or duplicate bugs found. Explain the similarities and likelihood of being duplicates.
2. **Related Requirements**: Identify which user stories/requirements this bug relates to. Explain the connection.
3. **Triage Decision**: Determine if this is:
   - A valid bug (explain why based on requirements and expected behavior)
   - A duplicate (reference the duplicate bug ID)
   - Not a bug / By design (explain based on requirements)
   - Needs more information (explain what's missing)

Provide a clear, structured analysis with specific references to work item IDs.`

// triage compares one bug against indexed bugs and user stories and streams
// a duplicate/validity analysis. The bug is either a referenced item ID or
// an inline description in the question itself.
func (o *Orchestrator) triage(ctx context.Context, question string, emit EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)

	ids := extractItemIDs(question)

	var current *index.Document
	var description string
	if len(ids) > 0 {
		vector, err := o.embedder.EmbedText(ctx, question)
		if err != nil {
			return fmt.Errorf("failed to embed question: %w", err)
		}
		bugs, err := o.store.Search(ctx, index.SearchQuery{
			Text:   question,
			Vector: vector,
			TopK:   1,
			Filter: index.And(index.AnyOf("item_id", ids), index.Eq("type", "Bug")),
		})
		if err != nil {
			return fmt.Errorf("failed to fetch bug: %w", err)
		}
		if len(bugs) > 0 {
			current = bugs[0]
			description = current.Content
		}
	} else {
		description = question
	}

	if description == "" {
		return emit(missingBugReply)
	}

	// The full bug content carries more signal than the raw question, and
	// both retrievals are vector-only: keyword overlap with a bug report is
	// mostly noise here.
	vector, err := o.embedder.EmbedText(ctx, description)
	if err != nil {
		return fmt.Errorf("failed to embed bug description: %w", err)
	}

	similarFilter := index.Eq("type", "Bug")
	if len(ids) > 0 {
		similarFilter = index.And(similarFilter, index.Not(index.AnyOf("item_id", ids)))
	}
	similarBugs, err := o.store.Search(ctx, index.SearchQuery{
		Vector: vector,
		TopK:   similarBugLimit,
		Filter: similarFilter,
	})
	if err != nil {
		return fmt.Errorf("failed to search similar bugs: %w", err)
	}

	requirements, err := o.store.Search(ctx, index.SearchQuery{
		Vector: vector,
		TopK:   requirementLimit,
		Filter: index.Eq("type", "User Story"),
	})
	if err != nil {
		return fmt.Errorf("failed to search requirements: %w", err)
	}
	logger.InfoContext(ctx, "triage evidence assembled",
		"similar_bugs", len(similarBugs), "requirements", len(requirements), "has_current_bug", current != nil)

	evidence := buildTriageContext(current, description, similarBugs, requirements)

	messages := []llm.Message{
		{Role: "system", Content: triageSystemPrompt},
		{Role: "user", Content: evidence + "\n\n" + triageInstruction},
	}

	params := llm.ChatParams{Temperature: triageTemperature, MaxTokens: triageMaxTokens}
	if err := o.generator.StreamChat(ctx, messages, params, emit); err != nil {
		logger.ErrorContext(ctx, "triage generation failed", "error", err)
		if emitErr := emit(fmt.Sprintf("\n\nError analyzing bug: %v", err)); emitErr != nil {
			return emitErr
		}
		return nil
	}

	if len(similarBugs) > 0 || len(requirements) > 0 {
		if err := emit(triageReferences(similarBugs, requirements)); err != nil {
			return err
		}
	}
	return nil
}

// buildTriageContext assembles the structured triage evidence: current bug,
// numbered similar bugs, numbered related requirements. Empty categories
// render an explicit "none found" line so the model never has to infer
// absence.
func buildTriageContext(current *index.Document, description string, similarBugs, requirements []*index.Document) string {
	var parts []string

	if current != nil {
		parts = append(parts, fmt.Sprintf(`CURRENT BUG:
Work Item #%s: %s
Type: %s
State: %s
Priority: %s
Severity: %s

Description:
%s

Repro Steps:
%s
`, current.ItemID, current.Title, current.Type, current.State,
			orNA(current.Priority), orNA(current.Severity),
			orNA(current.Description), orNA(current.ReproSteps)))
	} else {
		parts = append(parts, fmt.Sprintf("BUG DESCRIPTION PROVIDED:\n%s\n", description))
	}

	if len(similarBugs) > 0 {
		parts = append(parts, "\nSIMILAR BUGS FOUND:")
		for i, bug := range similarBugs {
			if i >= similarBugDisplayLimit {
				break
			}
			parts = append(parts, fmt.Sprintf(`
%d. Work Item #%s: %s
   State: %s | Priority: %s | Severity: %s
   Description: %s`,
				i+1, bug.ItemID, bug.Title, bug.State,
				orNA(bug.Priority), orNA(bug.Severity),
				truncate(orNA(bug.Description), triageSnippetLen)))
		}
	} else {
		parts = append(parts, "\n"+noSimilarBugs)
	}

	if len(requirements) > 0 {
		parts = append(parts, "\n\nRELATED REQUIREMENTS (User Stories):")
		for i, req := range requirements {
			parts = append(parts, fmt.Sprintf(`
%d. Work Item #%s: %s
   State: %s
   Description: %s
   Acceptance Criteria: %s`,
				i+1, req.ItemID, req.Title, req.State,
				truncate(orNA(req.Description), triageSnippetLen),
				truncate(orNA(req.AcceptanceCriteria), triageSnippetLen)))
		}
	} else {
		parts = append(parts, "\n\n"+noRequirements)
	}

	return strings.Join(parts, "\n")
}

// triageReferences renders the trailing reference block listing similar bugs
// and related requirements.
func triageReferences(similarBugs, requirements []*index.Document) string {
	var b strings.Builder
	b.WriteString("\n\n---\n\n**Referenced Work Items:**\n\n")

	if len(similarBugs) > 0 {
		b.WriteString("**Similar Bugs:**\n")
		for i, bug := range similarBugs {
			if i >= similarBugDisplayLimit {
				break
			}
			fmt.Fprintf(&b, "- [#%s - %s](%s)\n", bug.ItemID, bug.Title, bug.URL)
		}
	}
	if len(requirements) > 0 {
		b.WriteString("\n**Related Requirements:**\n")
		for _, req := range requirements {
			fmt.Fprintf(&b, "- [#%s - %s](%s)\n", req.ItemID, req.Title, req.URL)
		}
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
