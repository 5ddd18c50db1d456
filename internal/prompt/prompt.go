// Package prompt turns a content request into the instruction sent to the upstream model.
package prompt

import (
	"fmt"
	"strings"
)

// Request holds the user-facing parameters of a generation. Values are used verbatim.
type Request struct {
	Type   string
	Topic  string
	Tone   string
	Length string
}

const preamble = `You are an expert %s content creator. Your goal is to generate high-quality, human-like content that is engaging, relevant, and formatted professionally.
Topic: "%s"
Tone: %s
Length: %s`

const blogGuidelines = `**Formatting & Style Guidelines:**
- Format using strict Markdown
- Title: Use '# ' (only once at the top)
- Headings: Use '##' for sections and '###' for subpoints (if necessary)
- Avoid all non-standard formatting (like '====', asterisks for emphasis, etc.)
- Use normal paragraphs; bullet points only where they enhance clarity
- Line breaks should be clean and natural
- Use emojis only in friendly or casual tones (avoid overuse)
- Content must include natural keyword usage
- Write in a conversational, engaging tone
- End with a thought-provoking question or CTA to invite comments`

const tweetGuidelines = `**X/Twitter Content Guidelines:**
- Max 280 characters
- No Markdown, formatting, or emoji abuse
- Keep it sharp, witty, platform-appropriate
- Use trending or niche-relevant hashtags
- Make every word count`

const linkedinGuidelines = `**LinkedIn Content Guidelines:**
- Begin with a strong hook (1-2 sentences)
- Use short, impactful paragraphs (1-3 lines)
- No Markdown or formatting symbols
- Keep it professional yet personal
- Include relevant takeaways, insights, or lessons
- End with a CTA or open question to drive engagement`

const genericGuidelines = `**General Content Guidelines:**
- Ensure tone and structure are aligned with type: "%s"
- Keep language clear, impactful, and reader-friendly
- Structure the content meaningfully`

// Build returns the instruction for req. Unknown types fall back to a generic
// template that names the type literally.
func Build(req Request) string {
	var guidelines string
	switch strings.ToLower(req.Type) {
	case "blog":
		guidelines = blogGuidelines
	case "tweet", "x":
		guidelines = tweetGuidelines
	case "linkedin":
		guidelines = linkedinGuidelines
	default:
		guidelines = fmt.Sprintf(genericGuidelines, req.Type)
	}

	head := fmt.Sprintf(preamble, req.Type, req.Topic, req.Tone, req.Length)
	return strings.TrimSpace(head + "\n\n" + guidelines)
}
