package prompt

import (
	"fmt"
	"strings"

	"github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/standards"
)

// ReportPrompt builds the per-report generation request: one AI call per
// report, separate from the mapping engine's batched call.
func ReportPrompt(std *standards.Standard, criteria []*standards.Criterion, evs []*evidence.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are preparing a gap-analysis report for the accreditation standard %q. Score the institution's readiness from the criteria and evidence below.

Respond with one valid JSON object only:
{
  "overall_score": <integer 0-100>,
  "summary": "<executive summary, 3-5 sentences>",
  "gaps": [
    {
      "criterion_code": "<clause code>",
      "title": "<criterion title>",
      "status": "<met|partial|no_evidence>",
      "priority": "<critical|high|medium|low>",
      "detail": "<what is missing>"
    }
  ],
  "recommendations": ["<actionable recommendation>", "..."]
}

Criteria:
`, std.Name)

	for _, c := range criteria {
		fmt.Fprintf(&b, "- %s %s\n", c.Code, c.Title)
	}

	b.WriteString("\nEvidence documents:\n")
	if len(evs) == 0 {
		b.WriteString("(none uploaded)\n")
	}
	for _, e := range evs {
		fmt.Fprintf(&b, "- %q type=%s summary=%s\n", e.Title, e.DocumentType, e.Summary)
	}
	return b.String()
}

// AssistantContext renders the aggregate platform state injected into every
// Horus chat turn as the system message.
func AssistantContext(lines []string) string {
	var b strings.Builder
	b.WriteString("You are Horus, the compliance assistant of an accreditation management platform. Answer using the current platform state below. Be concise and concrete; never invent records that are not listed.\n\nPlatform state:\n")
	if len(lines) == 0 {
		b.WriteString("(no data yet)\n")
	}
	for _, l := range lines {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}
