package query

import (
	"regexp"
	"strings"
)

// Classifier enumerations are kept as ordered data so new synonyms are
// additive and each list is testable in isolation.

var greetings = []string{
	"hi", "hello", "hey", "greetings", "good morning", "good afternoon",
	"good evening", "howdy", "hiya", "sup", "what's up", "whats up",
}

var conversationalPhrases = []string{
	"how are you", "thank you", "thanks", "bye", "goodbye", "ok", "okay",
	"nice", "cool", "great", "awesome", "perfect",
}

// domainKeywords marks a greeting-prefixed message as a real question,
// e.g. "hi, show me all open bugs".
var domainKeywords = []string{
	"show", "find", "search", "get", "list", "what", "how", "which", "when",
	"who", "bug", "issue", "task", "work item",
}

var triagePhrases = []string{
	"similar bug", "duplicate bug", "same bug", "related bug",
	"already logged", "already reported", "already exists",
	"valid bug", "is this a bug", "triage", "related requirement",
	"match with requirement", "associated requirement", "check for duplicate",
}

var countPatterns = []*regexp.Regexp{
	regexp.MustCompile(`how many`),
	regexp.MustCompile(`count`),
	regexp.MustCompile(`number of`),
	regexp.MustCompile(`list all`),
	regexp.MustCompile(`show all`),
	regexp.MustCompile(`give me all`),
	regexp.MustCompile(`total`),
}

var listingWords = []string{"list", "show", "display", "what are", "which"}

// isConversational reports whether the question is a greeting or small talk
// that needs no retrieval.
func isConversational(question string) bool {
	text := strings.ToLower(strings.TrimSpace(question))

	for _, g := range greetings {
		if text == g {
			return true
		}
	}
	for _, c := range conversationalPhrases {
		if text == c {
			return true
		}
	}

	for _, g := range greetings {
		if strings.HasPrefix(text, g+" ") || strings.HasPrefix(text, g+"!") {
			for _, keyword := range domainKeywords {
				if strings.Contains(text, keyword) {
					return false
				}
			}
			return true
		}
	}
	return false
}

// conversationalResponse selects the canned reply for a conversational
// message.
func conversationalResponse(question string) string {
	text := strings.ToLower(strings.TrimSpace(question))

	for _, g := range []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"} {
		if strings.Contains(text, g) {
			return "Hello! I'm your work item assistant. I can help you find and analyze work items in your project.\n\n" +
				"Try asking me questions like:\n" +
				"- 'Show me all open bugs'\n" +
				"- 'What work items are assigned to [name]?'\n" +
				"- 'Find high priority tasks'\n" +
				"- 'What's the status of work item #123?'\n" +
				"- 'Show recent issues'"
		}
	}

	if strings.Contains(text, "thank") {
		return "You're welcome! Feel free to ask me anything about your work items."
	}

	for _, b := range []string{"bye", "goodbye"} {
		if strings.Contains(text, b) {
			return "Goodbye! Come back anytime you need help with your work items."
		}
	}

	return "I'm here to help you search and analyze work items. Ask me a question about your work items!"
}

// isTriage reports whether the question asks for bug triage or duplicate
// analysis.
func isTriage(question string) bool {
	text := strings.ToLower(question)
	for _, phrase := range triagePhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// isCountQuery reports whether the question asks for a count or a complete
// listing, which widens retrieval.
func isCountQuery(question string) bool {
	text := strings.ToLower(question)
	for _, pattern := range countPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// wantsListing reports whether the question asks for itemized output. This
// is a separate axis from isCountQuery: a bare count question gets a number,
// a count question with a listing word gets the number and the items.
func wantsListing(question string) bool {
	text := strings.ToLower(question)
	for _, word := range listingWords {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
