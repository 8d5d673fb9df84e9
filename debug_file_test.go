//nolint:paralleltest // Tests modify package-level session log state, cannot run in parallel
package galaxy7

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanupSessionLog ensures session log state is clean after tests.
// Must be called in test cleanup to avoid state leakage between tests.
func cleanupSessionLog(t *testing.T) {
	t.Helper()
	if sessionLogFile != nil {
		_ = sessionLogFile.Close()
	}
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
}

// enterTempDir moves the test into a fresh temp directory so log files
// never land in the repository, restoring everything on cleanup.
func enterTempDir(t *testing.T) {
	t.Helper()
	origDir, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		cleanupSessionLog(t)
		_ = os.Chdir(origDir)
	})
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	enterTempDir(t)

	path, err := InitSessionLog()

	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = os.Stat(path)
	require.NoError(t, err, "Log file should exist")

	// Verify filename format: galaxy7_YYYYMMDD_HHMMSS.log
	matched, err := regexp.MatchString(`^galaxy7_\d{8}_\d{6}\.log$`, path)
	require.NoError(t, err)
	assert.True(t, matched, "Filename should match galaxy7_YYYYMMDD_HHMMSS.log pattern, got: %s", path)
}

func TestInitSessionLog_WritesHeader(t *testing.T) {
	enterTempDir(t)

	path, err := InitSessionLog()
	require.NoError(t, err)

	// Close to flush and read the file
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)

	contentStr := string(content)

	assert.Contains(t, contentStr, "=== Galaxy keypad debug session log ===")
	assert.Contains(t, contentStr, "Started:")
	assert.Contains(t, contentStr, "PID:")
	assert.Contains(t, contentStr, "OS:")
	assert.Contains(t, contentStr, "Go Version:")
	assert.Contains(t, contentStr, "Executable:")
	assert.Contains(t, contentStr, "Command Line:")
}

func TestCloseSessionLog_WritesFooter(t *testing.T) {
	enterTempDir(t)

	path, err := InitSessionLog()
	require.NoError(t, err)

	err = CloseSessionLog()
	require.NoError(t, err)

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)

	assert.Contains(t, string(content), "=== Session ended ===")
}

func TestCloseSessionLog_NilFile(t *testing.T) {
	t.Cleanup(func() {
		cleanupSessionLog(t)
	})

	// Ensure clean state
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil

	// Should not error or panic when no file is open
	err := CloseSessionLog()
	assert.NoError(t, err)
}

func TestGetSessionLogPath_ReturnsCorrectPath(t *testing.T) {
	enterTempDir(t)

	// Before init, should be empty
	assert.Empty(t, GetSessionLogPath())

	path, err := InitSessionLog()
	require.NoError(t, err)

	// After init, should return the path
	assert.Equal(t, path, GetSessionLogPath())

	require.NoError(t, CloseSessionLog())

	// After close, should be empty again
	assert.Empty(t, GetSessionLogPath())
}

func TestMultipleInitCloseCycles(t *testing.T) {
	enterTempDir(t)

	paths := make([]string, 0, 3)
	for i := range 3 {
		path, err := InitSessionLog()
		require.NoError(t, err, "Init cycle %d failed", i)
		paths = append(paths, path)

		_, err = os.Stat(path)
		require.NoError(t, err, "File should exist after init")

		// Write something to verify the log is working
		Debugf("Test message %d", i)

		err = CloseSessionLog()
		require.NoError(t, err, "Close cycle %d failed", i)

		// Verify state is clean
		assert.Empty(t, GetSessionLogPath())
		assert.Nil(t, sessionLogFile)
		assert.Nil(t, sessionLogWriter)
	}

	for i, path := range paths {
		content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
		require.NoError(t, err, "Failed to read log file %d", i)
		assert.Contains(t, string(content), "Test message")
	}
}

func TestInitSessionLog_StateInitialization(t *testing.T) {
	enterTempDir(t)

	_, err := InitSessionLog()
	require.NoError(t, err)

	assert.NotNil(t, sessionLogFile)
	assert.NotEmpty(t, sessionLogPath)
	assert.NotNil(t, sessionLogWriter)

	require.NoError(t, CloseSessionLog())
}

func TestWriteSessionHeader_ContentFormat(t *testing.T) {
	var buf strings.Builder

	writeSessionHeader(&buf)

	content := buf.String()

	assert.True(t, strings.HasPrefix(content, "=== Galaxy keypad debug session log ==="))
	assert.Contains(t, content, "================================")

	assert.Contains(t, content, "Started:")
	assert.Contains(t, content, "PID:")
	assert.Contains(t, content, "OS:")
	assert.Contains(t, content, "Go Version:")
}
