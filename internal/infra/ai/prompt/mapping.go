package prompt

import (
	"fmt"
	"strings"

	"github.com/edaccred/horus-backend/internal/domain/evidence"
	"github.com/edaccred/horus-backend/internal/domain/standards"
)

// MappingPrompt builds the single batched request that evaluates every
// criterion of a standard against the institution's whole evidence corpus.
// One call per run; the response must be a JSON array with one element per
// criterion, each echoing the criterion_id it refers to.
func MappingPrompt(std *standards.Standard, criteria []*standards.Criterion, evs []*evidence.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an accreditation compliance auditor. Evaluate each criterion of the standard %q against the evidence documents listed below.

Respond with one valid JSON array only (no markdown, no commentary). The array must contain exactly %d objects, one per criterion, in the same order the criteria are listed. Each object must follow this schema:
{
  "criterion_id": "<the id copied verbatim from the criteria list>",
  "status": "<met|partial|gap>",
  "confidence_score": <number 0.0-1.0>,
  "ai_reasoning": "<one or two sentences>",
  "best_evidence_id": "<id of the strongest supporting evidence, or null>"
}

Criteria:
`, std.Name, len(criteria))

	for i, c := range criteria {
		fmt.Fprintf(&b, "%d. id=%s code=%s title=%s\n", i+1, c.ID, c.Code, c.Title)
	}

	b.WriteString("\nEvidence documents:\n")
	if len(evs) == 0 {
		b.WriteString("(none uploaded)\n")
	}
	for _, e := range evs {
		fmt.Fprintf(&b, "- id=%s title=%q type=%s summary=%s\n",
			e.ID, e.Title, e.DocumentType, e.Summary)
	}

	b.WriteString("\nUse best_evidence_id only for ids present in the evidence list. Status gap means no evidence supports the criterion.")
	return b.String()
}
