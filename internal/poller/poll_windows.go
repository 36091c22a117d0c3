//go:build windows
// +build windows

package poller

import "errors"

// Default has no WaitForMultipleObjects-based implementation here; the
// OS-level multiplex primitive is an external collaborator that must be
// injected by the embedder on platforms this module doesn't cover directly.
func Default(fds []FD, timeoutMS int) (int, error) {
	return -1, errors.New("poller: no built-in poll primitive on windows; inject one via WithPollFunc")
}
