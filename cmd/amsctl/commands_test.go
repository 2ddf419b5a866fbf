package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amsplayer/pkg/config"
	"amsplayer/pkg/logger"
)

func testEnv(t *testing.T) envFunc {
	t.Setenv("AMS_ENV", "dev")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("AMS_SETTINGS_FILE", "")
	t.Setenv("AZURE_CLIENT_ID", "platform-client")
	t.Setenv("AZURE_CLIENT_SECRET", "s3cr3t-value")
	t.Setenv("AZURE_TENANT", "contoso.onmicrosoft.com")
	t.Setenv("AZURE_REST_API_ENDPOINT", "https://acct.restv2.westeurope.media.azure.net/api/")
	return func() (config.Config, logger.Sugared) { return config.Load(), logger.Nop() }
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCredentialsFallsBackToPlatform(t *testing.T) {
	out, err := run(t, credentialsCmd(testEnv(t)), "--org", "edX")
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "platform-client", got["client_id"])
	assert.Equal(t, "s3********ue", got["client_secret"])
	assert.Equal(t, "contoso.onmicrosoft.com", got["tenant"])
}

func TestCredentialsMissing(t *testing.T) {
	env := testEnv(t)
	t.Setenv("AZURE_CLIENT_ID", "")
	t.Setenv("AZURE_CLIENT_SECRET", "")
	t.Setenv("AZURE_TENANT", "")
	t.Setenv("AZURE_REST_API_ENDPOINT", "")

	_, err := run(t, credentialsCmd(env), "--org", "edX")
	assert.ErrorIs(t, err, errNoCredentials)
}

func TestVideoInfoUnknownVideo(t *testing.T) {
	out, err := run(t, videoInfoCmd(testEnv(t)), "--org", "edX", "--video", "nope")
	require.NoError(t, err)

	var got struct {
		ErrorMessage string `json:"error_message"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.ErrorMessage)
}

func TestRequiredFlags(t *testing.T) {
	_, err := run(t, videoInfoCmd(testEnv(t)), "--org", "edX")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "***", mask("abc"))
	assert.Equal(t, "ab**ef", mask("abcdef"))
}
