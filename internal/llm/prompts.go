package llm

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/causeway-ops/causeway/internal/models"
)

var generateQueriesTmpl = template.Must(template.New("generate_queries").Parse(
	`You are an SRE assistant investigating a production incident.
Given the incident below, produce {{.NQueries}} short search queries for a
knowledge base of runbooks and postmortems. Respond with a JSON object of the
form {"queries": ["...", "..."]} and nothing else.

Incident:
{{.Incident}}
`))

var verifyDocumentTmpl = template.Must(template.New("verify_document").Parse(
	`You are reviewing retrieved documentation for relevance to an incident.
Answer strictly true or false: is the following document relevant to the
incident? Do not add any other text.

Incident:
{{.Incident}}

Document:
{{.Document}}
`))

var extractLogKeysTmpl = template.Must(template.New("extract_log_keys").Parse(
	`Below are sample log records, one JSON object per line. Identify which
field holds the log severity and which holds the message body. Respond with a
JSON object of the form {"severityKey": "...", "messageKey": "..."} and
nothing else.

Log records:
{{.LogRecords}}
`))

var investigationTmpl = template.Must(template.New("investigation").Parse(
	`You are an experienced SRE writing a root-cause analysis.

Incident:
{{.Incident}}

Relevant internal documentation:
{{.Context}}

Additional information from production logs:
{{.AdditionalInfo}}

Write a concise root-cause analysis: the most likely cause, the supporting
evidence, and suggested next steps. If the evidence is inconclusive, say so.
`))

var conversationTmpl = template.Must(template.New("conversation").Parse(
	`You are an incident-response assistant. Continue the conversation below,
answering the last user message.

{{range .Messages}}{{.Role}}: {{.Content}}
{{end}}assistant:`))

// RenderGenerateQueries renders the query-generation prompt.
func RenderGenerateQueries(incident string, nQueries int) (string, error) {
	return render(generateQueriesTmpl, map[string]any{
		"Incident": incident,
		"NQueries": nQueries,
	})
}

// RenderVerifyDocument renders the yes/no relevance prompt.
func RenderVerifyDocument(incident, document string) (string, error) {
	return render(verifyDocumentTmpl, map[string]any{
		"Incident": incident,
		"Document": document,
	})
}

// RenderExtractLogKeys renders the structural-key extraction prompt.
func RenderExtractLogKeys(logRecords []string) (string, error) {
	return render(extractLogKeysTmpl, map[string]any{
		"LogRecords": strings.Join(logRecords, "\n"),
	})
}

// RenderInvestigation renders the final summarization prompt.
func RenderInvestigation(incident, contextText, additionalInfo string) (string, error) {
	return render(investigationTmpl, map[string]any{
		"Incident":       incident,
		"Context":        contextText,
		"AdditionalInfo": additionalInfo,
	})
}

// RenderConversation renders a chat history into a single prompt.
func RenderConversation(messages []models.ChatMessage) (string, error) {
	return render(conversationTmpl, map[string]any{
		"Messages": messages,
	})
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return sb.String(), nil
}
