package genai

import (
	"fmt"
	"strings"
)

// PromptParams are the pieces a generation prompt is composed from: the
// client profile identity plus the per-request content parameters. The same
// composition is used for first-time generation and regeneration.
type PromptParams struct {
	ClientName    string
	ClientWebsite string
	ClientNature  string
	Title         string
	Keywords      []string
	Length        int
	Type          string
	Headings      int
}

// BuildPrompt renders the natural-language prompt sent to the text
// generation API.
func BuildPrompt(p PromptParams) string {
	return fmt.Sprintf(
		"Client: %s\nWebsite: %s\nNature: %s\nTitle: %s\nKeywords: %s\nLength: %d words\nType: %s\nHeadings: %d\nGenerate unique SEO content.",
		p.ClientName, p.ClientWebsite, p.ClientNature, p.Title,
		strings.Join(p.Keywords, ", "), p.Length, p.Type, p.Headings,
	)
}
