package ai

import (
	"strings"
	"unicode/utf8"
)

const SystemPrompt = `You are a financial assistant helping users analyze financial reports. When a user selects a report, it will be loaded into context. Use the information from the selected report to answer questions accurately. Always provide concise and helpful responses based on the financial report. If the user asks a question outside the scope of the report, let them know and offer general guidance. Never create documents or suggest document creation unless explicitly requested. Stay in a conversational mode.`

const TitlePrompt = `You will generate a short title based on the first message a user begins a conversation with. Ensure it is not more than 80 characters long. The title should be a summary of the user's message. Do not use quotes or colons.`

const (
	MaxTitleLength  = 80
	DefaultTitle    = "New Chat"
	reportHeading   = "Selected report:"
	truncatedMarker = "\n[report text truncated]"
)

// WithReportContext appends the report text to the system prompt.
func WithReportContext(system, reportText string) string {
	reportText = strings.TrimSpace(reportText)
	if reportText == "" {
		return system
	}
	return system + "\n\n" + reportHeading + "\n" + reportText
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// TruncateReport limits report text to n runes and marks the cut.
func TruncateReport(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return TruncateRunes(text, n) + truncatedMarker
}

// FallbackTitle derives a title from the user's message text.
func FallbackTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	title = strings.Trim(title, `"':`)
	title = strings.TrimSpace(TruncateRunes(title, MaxTitleLength))
	if title == "" {
		return DefaultTitle
	}
	return title
}

// CleanTitle normalizes a model generated title, falling back when unusable.
func CleanTitle(generated, userText string) string {
	title := strings.TrimSpace(strings.Split(strings.TrimSpace(generated), "\n")[0])
	title = strings.Trim(title, `"'`)
	title = strings.ReplaceAll(title, ":", "")
	title = strings.TrimSpace(TruncateRunes(title, MaxTitleLength))
	if title == "" {
		return FallbackTitle(userText)
	}
	return title
}
