//go:build !windows

package dispatch

import (
	"os"
	"syscall"

	"github.com/rojo-rbx/rokit/internal/rerr"
)

// execBinary replaces the current process image with binPath, so the
// dispatched tool inherits the shim's pid, file descriptors, and
// process group directly rather than running as a child the
// dispatcher has to babysit.
func execBinary(binPath string, args []string) error {
	argv := append([]string{binPath}, args...)
	if err := syscall.Exec(binPath, argv, os.Environ()); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeExecFailed, "executing "+binPath, err)
	}
	return nil // unreachable on success: syscall.Exec does not return
}
