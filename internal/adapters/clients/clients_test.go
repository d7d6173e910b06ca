package clients

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/config"
	"github.com/eshaffer321/amazon-ynab-sync/internal/infrastructure/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("YNAB_ACCESS_TOKEN", "")
	t.Setenv("YNAB_TOKEN", "")
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(dir, "sync.db")
	cfg.State.Backend = "sqlite"
	cfg.State.StateFile = filepath.Join(dir, "state.json")
	cfg.YNAB.BudgetID = "last-used"
	cfg.YNAB.CacheTTL = time.Minute
	return cfg
}

func TestNewClients_Minimal(t *testing.T) {
	// Arrange
	cfg := testConfig(t)

	// Act
	clients, err := NewClients(cfg, logging.Discard())

	// Assert
	require.NoError(t, err)
	defer func() { _ = clients.Close() }()
	assert.Nil(t, clients.YNAB, "no token, no YNAB client")
	assert.Nil(t, clients.Redis)
	assert.Nil(t, clients.RunLock("key"))
	assert.NotNil(t, clients.Storage)
}

func TestNewClients_WithToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.YNAB.AccessToken = "test-token"
	cfg.YNAB.BudgetID = "budget-1"

	clients, err := NewClients(cfg, logging.Discard())

	require.NoError(t, err)
	defer func() { _ = clients.Close() }()
	require.NotNil(t, clients.YNAB)
	assert.Equal(t, "budget-1", clients.YNAB.BudgetID())
}

func TestNewClients_TokenFromFallbackEnv(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv("YNAB_TOKEN", "from-env")

	clients, err := NewClients(cfg, logging.Discard())

	require.NoError(t, err)
	defer func() { _ = clients.Close() }()
	assert.NotNil(t, clients.YNAB)
}

func TestNewClients_FileBackendKeepsLedgerInFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.Backend = "file"
	clients, err := NewClients(cfg, logging.Discard())
	require.NoError(t, err)
	defer func() { _ = clients.Close() }()

	err = clients.Storage.Save(context.Background(), &matchstate.State{
		MatchedPairs: []matchstate.Pair{{AmazonOrderID: "A1", YnabTransactionID: "Y1", MatchedAt: time.Now().UTC()}},
	})

	require.NoError(t, err)
	_, statErr := os.Stat(cfg.State.StateFile)
	assert.NoError(t, statErr, "ledger written to the state file")
}

func TestNewClients_RunLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.State.Lock.RedisAddr = mr.Addr()

	clients, err := NewClients(cfg, logging.Discard())
	require.NoError(t, err)
	defer func() { _ = clients.Close() }()

	locker := clients.RunLock("amazon-ynab-sync:run")
	require.NotNil(t, locker)
	require.NoError(t, locker.Lock(context.Background(), time.Minute))
	assert.True(t, mr.Exists("amazon-ynab-sync:run"))
	require.NoError(t, locker.Unlock(context.Background()))
}

func TestNewClients_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "missing", "dir", "sync.db")

	_, err := NewClients(cfg, logging.Discard())

	assert.Error(t, err)
}
