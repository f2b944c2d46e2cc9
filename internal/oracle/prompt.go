package oracle

import (
	"fmt"
	"strings"
)

const navigatorSystemPrompt = `You are a document navigation expert analyzing business documents, supply chain SOPs, retail operations manuals, regulatory filings, and assortment planning guides.
Your task is to navigate a hierarchical document structure to find precise information.

NAVIGATION RULES:
1. Start from the table of contents and identify the most relevant section
2. DESCEND into sections that likely contain the answer
3. EXTRACT when you find the exact information needed
4. BACKTRACK if you went to the wrong section
5. COMPLETE when you have gathered enough information to answer

IMPORTANT:
- Be precise: extract exact numbers, specifications, procedures, policies, and requirements
- Follow document hierarchy logically (Section -> Subsection -> Paragraph)
- If information spans multiple sections, navigate to each
- For business-critical information, verify you have the complete requirement
- For cross-references (e.g., "see Section 2.3"), navigate to extract that section too
- Confidence should reflect how well the extracted info answers the query`

const operationsAddendum = `

This is a BUSINESS/OPERATIONS document. Pay special attention to:
- Specific procedure steps and their order
- Policy requirements and approval thresholds
- Markdown tiers and timing rules
- Numerical limits, percentages, and specifications
- Cross-references to other sections or procedures`

const navigationTemplate = `Current Location: %s
Query: %s

Available Sections:
%s

Current Section Content:
%s

Previously Extracted Information:
%s

Navigation Path So Far: %s

Decide your next action. Return JSON with:
- action: "descend" (go into a subsection), "extract" (capture info here), "backtrack" (go up), or "complete" (done)
- target_section: section ID to descend into (if action is descend)
- reasoning: why you're taking this action
- extracted_info: information extracted (if action is extract)
- confidence: 0.0-1.0 how confident you are this helps answer the query`

const synthesisTemplate = `Based on the following extracted information from a %s,
provide a precise, well-structured answer to the query.

Query: %s

Extracted Information:
%s

Sources: %s

Provide a clear, factual answer using only the extracted information.
Include specific numbers, percentages, procedures, and requirements where available.
For business-critical information, ensure completeness and accuracy.`

// childPreviewChars caps each child preview inside the section listing.
const childPreviewChars = 150

// isOperational matches procedure, planning and supply-chain documents.
func isOperational(docType string) bool {
	for _, marker := range []string{"SOP", "Procedure", "Planning", "Supply"} {
		if strings.Contains(docType, marker) {
			return true
		}
	}
	return false
}

func isFiling(docType string) bool {
	return strings.Contains(docType, "SEC") || strings.Contains(docType, "Filing")
}

// NavigationSystemPrompt returns the navigator instructions for a document
// type.
func NavigationSystemPrompt(docType string) string {
	if isOperational(docType) {
		return navigatorSystemPrompt + operationsAddendum
	}
	return navigatorSystemPrompt
}

// NavigationPrompt renders one step's user message.
func NavigationPrompt(nc NavigationContext) string {
	content := nc.CurrentContent
	if content == "" {
		content = "(No direct content)"
	}
	extracted := "(None yet)"
	if len(nc.Extracted) > 0 {
		extracted = strings.Join(nc.Extracted, "\n")
	}
	return fmt.Sprintf(navigationTemplate,
		nc.CurrentID+": "+nc.CurrentTitle,
		nc.Query,
		SectionListing(nc.Children),
		content,
		extracted,
		strings.Join(nc.Path, " -> "),
	)
}

// SectionListing renders children as "[+] [id] title" lines, "[+]" marking
// sections with further subsections, each followed by a short preview.
func SectionListing(children []SectionSummary) string {
	if len(children) == 0 {
		return "(No subsections - this is a leaf section)"
	}
	var b strings.Builder
	for i, c := range children {
		if i > 0 {
			b.WriteByte('\n')
		}
		marker := "[-]"
		if c.HasChildren {
			marker = "[+]"
		}
		fmt.Fprintf(&b, "%s [%s] %s", marker, c.ID, c.Title)
		if c.Preview != "" {
			fmt.Fprintf(&b, "\n   Preview: %s...", firstRunes(c.Preview, childPreviewChars))
		}
	}
	return b.String()
}

// SynthesisSystemPrompt returns the answer-writing instructions for a
// document type. Procedures get the stricter completeness rule.
func SynthesisSystemPrompt(docType string) string {
	switch {
	case isOperational(docType):
		return "You are a business documentation specialist providing precise answers. " +
			"For business procedures, ensure all steps, thresholds, and policy requirements are clearly stated. Do not omit critical details."
	case isFiling(docType):
		return "You are a financial analyst providing precise answers based on SEC filings."
	default:
		return "You are a business documentation specialist providing precise answers."
	}
}

// SynthesisPrompt renders the final-answer user message.
func SynthesisPrompt(req SynthesisRequest) string {
	bullets := make([]string, len(req.Extracts))
	for i, e := range req.Extracts {
		bullets[i] = "- " + e
	}
	docType := req.DocumentType
	if docType == "" {
		docType = "Document"
	}
	return fmt.Sprintf(synthesisTemplate,
		docType,
		req.Query,
		strings.Join(bullets, "\n"),
		strings.Join(req.Sources, ", "),
	)
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
