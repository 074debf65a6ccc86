package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibridge/asset-bridge/pkg/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid config with defaults applied", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
ledger:
  id: ledger-x
  endpoint_identity: "0x00000000000000000000000000000000000000e1"
  admin: "0x00000000000000000000000000000000000000aa"
transport:
  fees:
    ledger-y:
      base: "2"
      per_byte: "0.01"
auth:
  jwt_secret: test-secret
`)

		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, "ledger-x", cfg.Ledger.ID)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 256, cfg.Transport.QueueSize)
		assert.Equal(t, "0", cfg.Ledger.InitialFeeBalance)
		assert.Equal(t, "2", cfg.Transport.Fees["ledger-y"].Base)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("missing ledger id", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
ledger:
  endpoint_identity: "0x00000000000000000000000000000000000000e1"
  admin: "0x00000000000000000000000000000000000000aa"
auth:
  jwt_secret: test-secret
`)
		_, err := config.Load(path)
		require.ErrorContains(t, err, "ledger.id")
	})

	t.Run("invalid endpoint identity", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
ledger:
  id: ledger-x
  endpoint_identity: "not-an-address"
  admin: "0x00000000000000000000000000000000000000aa"
auth:
  jwt_secret: test-secret
`)
		_, err := config.Load(path)
		require.ErrorContains(t, err, "endpoint_identity")
	})

	t.Run("invalid fee decimal", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
ledger:
  id: ledger-x
  endpoint_identity: "0x00000000000000000000000000000000000000e1"
  admin: "0x00000000000000000000000000000000000000aa"
transport:
  fees:
    ledger-y:
      base: "abc"
      per_byte: "0"
auth:
  jwt_secret: test-secret
`)
		_, err := config.Load(path)
		require.ErrorContains(t, err, "base")
	})

	t.Run("missing jwt secret", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
ledger:
  id: ledger-x
  endpoint_identity: "0x00000000000000000000000000000000000000e1"
  admin: "0x00000000000000000000000000000000000000aa"
`)
		_, err := config.Load(path)
		require.ErrorContains(t, err, "jwt_secret")
	})
}

func TestLoadPeers(t *testing.T) {
	t.Run("valid peers file", func(t *testing.T) {
		path := writeFile(t, "peers.yaml", `
peers:
  - ledger: ledger-y
    identity: "0x00000000000000000000000000000000000000e2"
  - ledger: ledger-z
    identity: "0x00000000000000000000000000000000000000e3"
`)

		peers, err := config.LoadPeers(path)
		require.NoError(t, err)
		require.Len(t, peers, 2)
		assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000e2"), peers["ledger-y"])
	})

	t.Run("invalid identity", func(t *testing.T) {
		path := writeFile(t, "peers.yaml", `
peers:
  - ledger: ledger-y
    identity: "bogus"
`)
		_, err := config.LoadPeers(path)
		require.ErrorContains(t, err, "hex address")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadPeers(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
