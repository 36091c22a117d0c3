package gloop

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildWatchSourceReportsExitStatus(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	require.NoError(t, cmd.Start())

	ctx := NewContext()
	done := make(chan syscall.WaitStatus, 1)
	NewChildWatchSource(cmd.Process.Pid, func(pid int, status syscall.WaitStatus) {
		assert.Equal(t, cmd.Process.Pid, pid)
		done <- status
	}).Attach(ctx)

	deadline := time.Now().Add(2 * time.Second)
	var status syscall.WaitStatus
	for time.Now().Before(deadline) {
		if ctx.Iteration(false) {
			select {
			case status = <-done:
			default:
			}
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.Equal(t, 7, status.ExitStatus())
}
