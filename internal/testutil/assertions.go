package testutil

import (
	"context"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/stretchr/testify/require"
)

// AssertJobState checks the application's status store to confirm that a
// job reached the expected state.
func AssertJobState(t *testing.T, result *HarnessResult, key string, want job.State) {
	t.Helper()
	require.NotNil(t, result.App, "harness did not create an app")

	st, ok := result.App.Store().Status(context.Background(), key)
	require.True(t, ok, "job %s is not in the status store", key)
	require.Equal(t, want.String(), st.State, "unexpected state for %s (error: %s)", key, st.Error)
}
