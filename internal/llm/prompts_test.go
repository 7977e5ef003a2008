package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-ops/causeway/internal/models"
)

func TestRenderGenerateQueries(t *testing.T) {
	prompt, err := RenderGenerateQueries("Disk usage at 95% on host web-3", 3)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Disk usage at 95% on host web-3")
	assert.Contains(t, prompt, "produce 3 short search queries")
	assert.Contains(t, prompt, `{"queries":`)
}

func TestRenderVerifyDocument(t *testing.T) {
	prompt, err := RenderVerifyDocument("incident text", "document text")
	require.NoError(t, err)
	assert.Contains(t, prompt, "incident text")
	assert.Contains(t, prompt, "document text")
	assert.Contains(t, prompt, "strictly true or false")
}

func TestRenderExtractLogKeys(t *testing.T) {
	records := []string{
		`{"severity":"error","msg":"disk full"}`,
		`{"severity":"info","msg":"backup started"}`,
	}
	prompt, err := RenderExtractLogKeys(records)
	require.NoError(t, err)
	assert.Contains(t, prompt, records[0])
	assert.Contains(t, prompt, records[1])
	assert.Contains(t, prompt, "severityKey")
	assert.Contains(t, prompt, "messageKey")
}

func TestRenderInvestigation(t *testing.T) {
	prompt, err := RenderInvestigation("the incident", "the documentation", "the logs")
	require.NoError(t, err)
	assert.Contains(t, prompt, "the incident")
	assert.Contains(t, prompt, "the documentation")
	assert.Contains(t, prompt, "the logs")
	assert.Contains(t, prompt, "root-cause analysis")
}

func TestRenderConversation(t *testing.T) {
	messages := []models.ChatMessage{
		{Role: "user", Content: "what broke?"},
		{Role: "assistant", Content: "the disk filled up"},
		{Role: "user", Content: "on which host?"},
	}
	prompt, err := RenderConversation(messages)
	require.NoError(t, err)
	assert.Contains(t, prompt, "user: what broke?")
	assert.Contains(t, prompt, "assistant: the disk filled up")
	assert.Contains(t, prompt, "user: on which host?")
}
