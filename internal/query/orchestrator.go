package query

import (
	"context"
	"fmt"

	"workitems-ai/internal/contextutil"
	"workitems-ai/internal/index"
	"workitems-ai/internal/llm"
)

const (
	// defaultTopK is the retrieval breadth for ordinary questions.
	defaultTopK = 5
	// countTopK widens retrieval for count and list-all questions so the
	// listing has enough material.
	countTopK = 50

	noEvidenceMessage = "I couldn't find any relevant work items to answer your question. Please try rephrasing or ask about different topics."

	generalTemperature = 0.7
	generalMaxTokens   = 1000
)

const systemPrompt = `You are an AI assistant for work tracking items.

**CRITICAL RULE FOR COUNTS:**
If the context starts with "===== ANSWER: [number] =====", that number IS your answer.
- If it says "Do not list individual items", provide ONLY the count (e.g., "There are 2097 user stories.")
- If it says "Below are X sample items", provide the count AND list the items
- NEVER count items in the list yourself - use the ANSWER number

General guidelines:
1. Answer using ONLY the provided context
2. Be concise - don't provide unnecessary details
3. Reference work item IDs when listing items (e.g., "Work Item #123")
4. Include metadata when relevant: Type, State, Priority, Severity

For specific work items:
- Include all relevant fields from context
- Quote directly from Comments or Acceptance Criteria when relevant
- Be comprehensive but concise

Remember: Only use information from the provided context. Don't invent details.

Be helpful, concise, and accurate.`

// EmitFunc receives answer fragments as they are produced. Returning an
// error stops the stream.
type EmitFunc func(chunk string) error

// Orchestrator turns free-text questions into grounded, streamed answers
// over the work item index.
type Orchestrator struct {
	embedder  llm.Embedder
	generator llm.Generator
	store     index.Store
}

// NewOrchestrator creates a query orchestrator.
func NewOrchestrator(embedder llm.Embedder, generator llm.Generator, store index.Store) *Orchestrator {
	return &Orchestrator{
		embedder:  embedder,
		generator: generator,
		store:     store,
	}
}

// Answer routes the question to a response strategy and streams the answer
// through emit. Routing precedence: conversational short-circuit, bug
// triage, general retrieval.
//
// Errors from the generation stream are rendered as inline chunks rather
// than returned: a partial answer beats a crashed conversation turn.
// Failures before generation (embedding, retrieval) are returned.
func (o *Orchestrator) Answer(ctx context.Context, question string, topK int, emit EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)
	logger.InfoContext(ctx, "processing question", "length", len(question))

	if isConversational(question) {
		return emit(conversationalResponse(question))
	}
	if isTriage(question) {
		return o.triage(ctx, question, emit)
	}
	return o.general(ctx, question, topK, emit)
}

func (o *Orchestrator) general(ctx context.Context, question string, topK int, emit EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)

	idPred := itemIDFilter(question)
	typePred := typeFilter(question)
	attrPred := attributeFilter(question)
	hasStructuredFilter := idPred != nil || typePred != nil || attrPred != nil
	combined := index.And(idPred, typePred, attrPred)

	countQuery := isCountQuery(question)
	listing := wantsListing(question)

	searchTopK := topK
	if searchTopK <= 0 {
		searchTopK = defaultTopK
	}
	if countQuery {
		searchTopK = countTopK
	}

	vector, err := o.embedder.EmbedText(ctx, question)
	if err != nil {
		return fmt.Errorf("failed to embed question: %w", err)
	}

	docs, err := o.store.Search(ctx, index.SearchQuery{
		Text:   question,
		Vector: vector,
		TopK:   searchTopK,
		Filter: combined,
	})
	if err != nil {
		return fmt.Errorf("failed to search items: %w", err)
	}
	logger.InfoContext(ctx, "retrieved items",
		"count", len(docs), "filter", combined.String(), "count_query", countQuery, "wants_listing", listing)

	if len(docs) == 0 {
		return emit(noEvidenceMessage)
	}

	// The retrieved page is capped, so count questions with a structured
	// filter get the exact total from a separate filtered count.
	exactCount := -1
	if countQuery && hasStructuredFilter {
		exactCount, err = o.store.Count(ctx, combined)
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}
		logger.InfoContext(ctx, "exact count resolved", "count", exactCount)
	}

	var evidence string
	switch {
	case exactCount >= 0 && !listing:
		evidence = countOnlyContext(exactCount)
	case exactCount >= 0:
		evidence = countedContext(exactCount, docs)
	default:
		evidence = buildContext(docs)
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(`Context from tracker work items:

%s

Question: %s

Please provide a comprehensive answer based on the work items above. Include specific work item IDs when referencing information.`, evidence, question)},
	}

	params := llm.ChatParams{Temperature: generalTemperature, MaxTokens: generalMaxTokens}
	if err := o.generator.StreamChat(ctx, messages, params, emit); err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		if emitErr := emit(fmt.Sprintf("\n\nError generating response: %v", err)); emitErr != nil {
			return emitErr
		}
		return nil
	}

	// Pure bare-count answers get no reference list.
	if listing || !countQuery {
		if err := emit("\n\n---\n\n**Relevant Work Items:**\n\n" + buildReferences(docs)); err != nil {
			return err
		}
	}
	return nil
}
