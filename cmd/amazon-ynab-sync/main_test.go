package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/amazon-ynab-sync/internal/domain/matchstate"
)

func TestMatchCommand_Flags(t *testing.T) {
	cmd := matchCommand(&app{})

	for _, name := range []string{"orders", "transactions", "dry-run", "batch", "since", "days", "max", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, "true", cmd.Flags().Lookup("batch").DefValue)
}

func TestStateCommands(t *testing.T) {
	// Arrange
	stateFile := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("STATE_FILE", stateFile)
	t.Setenv("STATE_BACKEND", "file")
	t.Setenv("STATE_RETENTION_DAYS", "30")

	now := time.Now().UTC()
	require.NoError(t, matchstate.NewFileStore(stateFile).Save(context.Background(), &matchstate.State{
		MatchedPairs: []matchstate.Pair{
			{AmazonOrderID: "112-1", YnabTransactionID: "Y1", MatchedAt: now},
			{AmazonOrderID: "112-old", YnabTransactionID: "Y0", MatchedAt: now.Add(-60 * 24 * time.Hour)},
		},
	}))
	missingConfig := filepath.Join(t.TempDir(), "none.yaml")

	// Act
	var show bytes.Buffer
	root := newRootCommand()
	root.SetOut(&show)
	root.SetArgs([]string{"--config", missingConfig, "state", "show"})
	require.NoError(t, root.Execute())

	var prune bytes.Buffer
	root = newRootCommand()
	root.SetOut(&prune)
	root.SetArgs([]string{"--config", missingConfig, "state", "prune"})
	require.NoError(t, root.Execute())

	// Assert
	assert.Contains(t, show.String(), "Matched pairs: 1")
	assert.Contains(t, show.String(), "112-1 -> Y1")
	assert.Contains(t, prune.String(), "Pruned 1 expired pairs")
}
