package openai

import (
	"encoding/json"
	"fmt"

	"github.com/payables-ai/invoice-triage/internal/domain/document"
	"github.com/payables-ai/invoice-triage/internal/domain/validation"
)

// buildPatchPrompt renders the document header and flagged issues for the
// correction request.
func buildPatchPrompt(doc *document.DocumentData, issues []validation.Issue) (string, error) {
	headerJSON, err := json.MarshalIndent(doc.Header, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode header: %w", err)
	}

	type issueView struct {
		Code     string `json:"code"`
		Field    string `json:"field"`
		Message  string `json:"message"`
		Expected string `json:"expected,omitempty"`
		Actual   string `json:"actual,omitempty"`
	}
	var views []issueView
	for _, issue := range issues {
		if !issue.AutoResolvable {
			continue
		}
		views = append(views, issueView{
			Code:     string(issue.Code),
			Field:    issue.Field,
			Message:  issue.Message,
			Expected: issue.Expected,
			Actual:   issue.Actual,
		})
	}
	issuesJSON, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode issues: %w", err)
	}

	return fmt.Sprintf(`These invoice header fields failed validation:

**Extracted Header:**
%s

**Validation Issues:**
%s

Propose corrections ONLY for the listed fields, and ONLY where the fault
is an obvious transcription problem (wrong format, stray characters,
misplaced separators). If a field cannot be corrected with confidence,
omit it.

Respond with ONLY a valid JSON object with this exact structure:
{
  "patches": [
    {"field": "field_name", "value": "corrected value", "rationale": "short explanation"}
  ]
}

Return an empty patches array if no confident correction exists.`,
		string(headerJSON), string(issuesJSON)), nil
}
