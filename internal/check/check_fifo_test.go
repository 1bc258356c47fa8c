//go:build linux || darwin

package check

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_DeadlineCoversReading(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "stalled.xml")
	// Opening a FIFO for reading blocks until a writer shows up.
	require.NoError(t, syscall.Mkfifo(path, 0o644))
	t.Cleanup(func() {
		// Release the blocked reader.
		if w, err := os.OpenFile(path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
			w.Close()
		}
	})

	for _, mode := range []Mode{Diagnostic, Silent} {
		t.Run(mode.String(), func(t *testing.T) {
			c, _, errOut := f.checker(Options{Mode: mode, Timeout: 50 * time.Millisecond})

			got := c.Check(context.Background(), path)

			assert.Equal(t, Error, got.Kind)
			assert.Equal(t, CauseTimeout, got.Cause)
			assert.Equal(t, "Timed out validating "+path+" after 50ms\n", errOut.String())
		})
	}
}
