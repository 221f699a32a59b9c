package templates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().PromptText, c.PromptText)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Help, c.Help)
}

func TestLoadOverridesOnlyPresentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := "prompt_text: \"Cosa devo ricordarti?\"\ndelivery: \"🔔 Promemoria: %s\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Cosa devo ricordarti?", c.PromptText)
	assert.Equal(t, "🔔 Promemoria: latte", c.RenderDelivery("latte"))
	// Keys not in the file keep their defaults.
	assert.Equal(t, Default().PromptDateTime, c.PromptDateTime)
	assert.Equal(t, Default().BadIndex, c.BadIndex)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompt_text: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRenderSaved(t *testing.T) {
	at := time.Date(2030, 1, 1, 9, 0, 0, 0, time.Local)
	got := Default().RenderSaved(at)
	assert.Contains(t, got, "09:00 01/01/2030")
}

func TestRenderClearPrompt(t *testing.T) {
	got := Default().RenderClearPrompt("CONFIRM")
	assert.Contains(t, got, "CONFIRM")
}
