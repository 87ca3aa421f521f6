package cmd

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubCleanup(t *testing.T, closeErr error) *int {
	t.Helper()
	saved := app
	t.Cleanup(func() { app = saved })

	closed := 0
	app.manager = nil
	app.closeLog = func() error {
		closed++
		return closeErr
	}
	return &closed
}

func TestExecuteCleansUpAfterFailure(t *testing.T) {
	closed := stubCleanup(t, nil)
	runErr := errors.New("negotiation aborted")

	cmd := &cobra.Command{
		Use:           "fail",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(*cobra.Command, []string) error { return runErr },
	}
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)

	err := execute(cmd)
	assert.ErrorIs(t, err, runErr)
	assert.Equal(t, 1, *closed)
	assert.Nil(t, app.closeLog)
}

func TestExecuteReportsCleanupError(t *testing.T) {
	closeErr := errors.New("flush failed")
	closed := stubCleanup(t, closeErr)

	cmd := &cobra.Command{
		Use:  "ok",
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.SetArgs([]string{})

	err := execute(cmd)
	assert.ErrorIs(t, err, closeErr)
	assert.Equal(t, 1, *closed)
}

func TestTeardownIsIdempotent(t *testing.T) {
	closed := stubCleanup(t, nil)

	require.NoError(t, teardown())
	require.NoError(t, teardown())
	assert.Equal(t, 1, *closed)
}
