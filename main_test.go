package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMainBinary is the name of the compiled binary used for testing main.
const testMainBinary = "test_main_executable"

// buildMain builds the main package and returns the path to the executable
// and a cleanup function to remove it.
func buildMain(t *testing.T) (string, func()) {
	t.Helper()
	binaryPath := testMainBinary // Build in current dir

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to build main binary: %v\nOutput:\n%s", err, string(output))
	}

	cleanup := func() {
		err := os.Remove(binaryPath)
		if err != nil && !os.IsNotExist(err) {
			t.Logf("Warning: Failed to remove test binary %s: %v", binaryPath, err)
		}
	}

	absPath, err := filepath.Abs(binaryPath)
	require.NoError(t, err, "Failed to get absolute path for test binary")

	return absPath, cleanup
}

// runMain runs the compiled main binary as a subprocess with the given
// environment variables. It returns the exit code and the captured stderr.
// A process still alive after the timeout is killed and reported as -1.
func runMain(t *testing.T, binaryPath string, envVars map[string]string) (exitCode int, stderr string) {
	t.Helper()

	cmd := exec.Command(binaryPath)

	cmd.Env = os.Environ()
	for key, value := range envVars {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stderrBuf strings.Builder
	cmd.Stderr = &stderrBuf

	err := cmd.Start()
	require.NoError(t, err, "Failed to start main process")

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-time.After(3 * time.Second):
		_ = cmd.Process.Kill()
		t.Logf("Main process timed out after 3 seconds, killing.")
		return -1, stderrBuf.String()
	case err := <-done:
		stderr = stderrBuf.String()
		if err != nil {
			if exitError, ok := err.(*exec.ExitError); ok {
				return exitError.ExitCode(), stderr
			}
			t.Fatalf("Main process failed with unexpected error: %v", err)
			return -1, stderr // Not reached
		}
		return 0, stderr
	}
}

// TestMainFailureScenarios tests the main function's startup failure paths.
func TestMainFailureScenarios(t *testing.T) {
	binaryPath, cleanup := buildMain(t)
	defer cleanup()

	t.Run("StoreInitFailure_PathIsDirectory", func(t *testing.T) {
		// Clean up a potentially generated key file
		_ = os.Remove("./solveit.key")
		t.Cleanup(func() { _ = os.Remove("./solveit.key") })

		// Create a directory where the problems file should be
		invalidPath := t.TempDir()

		env := map[string]string{
			"SOLVEIT_SECRET":        "test-secret-for-store-fail-case",
			"SOLVEIT_PROBLEMS_FILE": invalidPath, // Point to the directory
			"SOLVEIT_USERS_FILE":    filepath.Join(t.TempDir(), "users.json"),
		}

		exitCode, stderr := runMain(t, binaryPath, env)

		assert.NotEqual(t, 0, exitCode, "Expected non-zero exit code for store init failure")
		// The path check rejects directories during config loading
		assert.Contains(t, stderr, "CRITICAL: Failed to load configuration", "Stderr should contain config load error message")
		assert.Contains(t, stderr, "points to a directory", "Stderr should mention the path is a directory")
	})

	t.Run("ServerBindFailure_PortInUse", func(t *testing.T) {
		_ = os.Remove("./solveit.key")
		t.Cleanup(func() { _ = os.Remove("./solveit.key") })

		// Occupy a port, then point the server at it
		listener, err := net.Listen("tcp", ":0")
		require.NoError(t, err, "Failed to listen on a random port")
		defer listener.Close()

		tcpAddr, ok := listener.Addr().(*net.TCPAddr)
		require.True(t, ok, "Listener address is not TCPAddr: %v", listener.Addr())
		port := fmt.Sprintf("%d", tcpAddr.Port)

		dataDir := t.TempDir()
		env := map[string]string{
			"SOLVEIT_SECRET":         "test-secret-for-bind-fail-case",
			"SOLVEIT_LISTEN_ADDRESS": "127.0.0.1",
			"SOLVEIT_LISTEN_PORT":    port,
			"SOLVEIT_PROBLEMS_FILE":  filepath.Join(dataDir, "problems.json"),
			"SOLVEIT_USERS_FILE":     filepath.Join(dataDir, "users.json"),
		}

		exitCode, stderr := runMain(t, binaryPath, env)

		assert.NotEqual(t, 0, exitCode, "Expected non-zero exit code for server bind failure")
		assert.Contains(t, stderr, "CRITICAL: Server failed to start", "Stderr should contain server start error message")
		// Message varies slightly by OS ("address already in use", "bind: address already in use")
		assert.Contains(t, strings.ToLower(stderr), "address already in use", "Stderr should mention address in use")
	})
}
