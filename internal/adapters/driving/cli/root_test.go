package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/semdex/internal/logger"
)

func TestVerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, flag)
	assert.Equal(t, "v", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}

func TestVerboseFlag_EnablesLogger(t *testing.T) {
	defer func() {
		verbose = false
		logger.SetVerbose(false)
	}()

	logger.SetVerbose(false)

	_, err := execute("--verbose", "version")
	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestVerboseFlag_OffByDefault(t *testing.T) {
	defer logger.SetVerbose(false)
	logger.SetVerbose(false)

	_, err := execute("version")
	require.NoError(t, err)
	assert.False(t, logger.IsVerbose())
}
