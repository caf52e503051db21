package prompt

import (
	"regexp"
	"strings"
)

// SeedCriterion is one bootstrap criterion parsed from a knowledge block.
type SeedCriterion struct {
	Code        string
	Title       string
	Description string
}

// Knowledge text per standard family. Each line is "<clause> <title>: <description>".
// Parsed once when a standard has no criteria yet; never re-run afterwards.
var knowledgeByFamily = map[string]string{
	"iso21001": iso21001Knowledge,
}

const iso21001Knowledge = `
4.1 Understanding the organization and its context: Determine external and internal issues relevant to the purpose of the educational organization and its strategic direction.
4.2 Understanding the needs and expectations of interested parties: Identify learners and other beneficiaries and their requirements relevant to the management system.
4.3 Determining the scope of the management system: Establish the boundaries and applicability of the educational management system.
4.4 Management system and its processes: Establish, implement, maintain and continually improve the management system and its processes.
5.1 Leadership and commitment: Top management demonstrates leadership and commitment with respect to the management system.
5.2 Policy: Establish, review and maintain an organizational policy appropriate to the purpose of the organization.
5.3 Organizational roles, responsibilities and authorities: Assign, communicate and understand responsibilities and authorities for relevant roles.
6.1 Actions to address risks and opportunities: Plan actions to address risks and opportunities that can affect conformity of products and services.
6.2 Objectives and planning to achieve them: Establish measurable objectives at relevant functions and plan how to achieve them.
7.1 Resources: Determine and provide the resources needed, including human resources, infrastructure and learning environment.
7.2 Competence: Ensure persons doing work under the organization's control are competent on the basis of education, training or experience.
7.5 Documented information: Control the documented information required by the management system and by the standard.
8.1 Operational planning and control: Plan, implement and control the processes needed to meet requirements for educational products and services.
9.1 Monitoring, measurement, analysis and evaluation: Determine what needs to be monitored and measured and evaluate the performance of the management system.
9.2 Internal audit: Conduct internal audits at planned intervals to verify the management system conforms to requirements.
10.2 Nonconformity and corrective action: React to nonconformities, evaluate the need for action and implement corrective actions.
`

var seedLinePattern = regexp.MustCompile(`(?m)^(\d+(?:\.\d+)+)\s+([^:]+):\s*(.+)$`)

// SeedCriteriaFor returns the bootstrap criteria for a standard family, or nil
// when the family has no knowledge block.
func SeedCriteriaFor(family string) []SeedCriterion {
	text, ok := knowledgeByFamily[strings.ToLower(strings.TrimSpace(family))]
	if !ok {
		return nil
	}
	matches := seedLinePattern.FindAllStringSubmatch(text, -1)
	out := make([]SeedCriterion, 0, len(matches))
	for _, m := range matches {
		out = append(out, SeedCriterion{
			Code:        strings.TrimSpace(m[1]),
			Title:       strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}
	return out
}
