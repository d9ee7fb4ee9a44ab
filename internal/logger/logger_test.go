package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// capture redirects logger output to a buffer and restores defaults
// when the test finishes.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestGatedLevels(t *testing.T) {
	tests := []struct {
		name    string
		log     func()
		verbose bool
		want    string
	}{
		{"debug verbose", func() { Debug("scanned %d files", 3) }, true, "[DEBUG] scanned 3 files\n"},
		{"debug quiet", func() { Debug("scanned %d files", 3) }, false, ""},
		{"info verbose", func() { Info("index ready") }, true, "[INFO] index ready\n"},
		{"info quiet", func() { Info("index ready") }, false, ""},
		{"section verbose", func() { Section("Rescan") }, true, "\n=== Rescan ===\n"},
		{"section quiet", func() { Section("Rescan") }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t)
			SetVerbose(tt.verbose)

			tt.log()

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWarn_IgnoresVerbose(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Warn("skipping %s: too large", "big.pdf")

	assert.Equal(t, "[WARN] skipping big.pdf: too large\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d", n)
			Warn("worker %d", n)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}
