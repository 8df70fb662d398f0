package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestExitError(t *testing.T) {
	err := &exitError{code: 3}
	assert.Equal(t, "", err.Error())

	var target *exitError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 3, target.code)
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "need two args"}
	assert.Equal(t, "need two args", err.Error())

	var target *usageError
	assert.True(t, errors.As(err, &target))
}

func TestIsCLIUsageError(t *testing.T) {
	assert.True(t, isCLIUsageError(cli.Exit("boom", 1)))
	assert.False(t, isCLIUsageError(errors.New("plain error")))
	assert.False(t, isCLIUsageError(nil))
}

func TestReadOnlyRegion(t *testing.T) {
	cfg := readOnlyRegion("users", 30*time.Second)

	assert.Equal(t, "users", cfg.Name)
	assert.True(t, cfg.L2Enabled)
	assert.Equal(t, 30*time.Second, cfg.L2TTL)
	assert.False(t, cfg.L1Enabled)
	assert.False(t, cfg.Fenced)
}

func TestCreateApp(t *testing.T) {
	app := createApp()
	assert.Equal(t, "cachectl", app.Name)

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Contains(t, names, "get")
	assert.Contains(t, names, "invalidate")
	assert.Contains(t, names, "invalidate-all")
	assert.Contains(t, names, "lock")
	assert.Contains(t, names, "watch")
}

func TestCreateLockCommand_HasTrySubcommand(t *testing.T) {
	lockCmd := createLockCommand()

	require.Len(t, lockCmd.Commands, 1)
	assert.Equal(t, "try", lockCmd.Commands[0].Name)
}

func TestGetCommand_RejectsWrongArgCount(t *testing.T) {
	app := &cli.Command{
		Name:     "cachectl",
		Commands: []*cli.Command{createGetCommand()},
	}

	err := app.Run(context.Background(), []string{"cachectl", "get", "only-one-arg"})
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestInvalidateAllCommand_RejectsWrongArgCount(t *testing.T) {
	app := &cli.Command{
		Name:     "cachectl",
		Commands: []*cli.Command{createInvalidateAllCommand()},
	}

	err := app.Run(context.Background(), []string{"cachectl", "invalidate-all"})
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestLockTryCommand_RejectsWrongArgCount(t *testing.T) {
	app := &cli.Command{
		Name:     "cachectl",
		Commands: []*cli.Command{createLockCommand()},
	}

	err := app.Run(context.Background(), []string{"cachectl", "lock", "try"})
	var usageErr *usageError
	assert.True(t, errors.As(err, &usageErr))
}
