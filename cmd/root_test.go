package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanexus/credits-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"serve", "migrate", "seed", "catalog", "describe", "audit"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "credits-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestCatalogCommand_Flags(t *testing.T) {
	for _, name := range []string{"search", "region", "industry", "sort", "xlsx"} {
		assert.NotNil(t, catalogCmd.Flags().Lookup(name), "catalog command should have --%s flag", name)
	}
	assert.Equal(t, "marketValue", catalogCmd.Flags().Lookup("sort").DefValue)
}

func TestSeedCommand_Flags(t *testing.T) {
	flag := seedCmd.Flags().Lookup("bulk")
	require.NotNil(t, flag, "seed command should have --bulk flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })

	cfg = &config.Config{}
	cfg.Store.Driver = "oracle"
	_, err := openStore(t.Context())
	assert.Error(t, err)
}

func TestOpenStore_SQLiteNeedsPath(t *testing.T) {
	old := cfg
	t.Cleanup(func() { cfg = old })

	cfg = &config.Config{}
	cfg.Store.Driver = "sqlite"
	_, err := openStore(t.Context())
	assert.Error(t, err)
}
