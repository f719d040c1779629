//go:build windows

package dispatch

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/rojo-rbx/rokit/internal/rerr"
)

// execBinary runs binPath as a child process, forwarding stdio, and
// exits the dispatcher with the child's exit code. Windows has no
// equivalent of execve that preserves the caller's pid, so the
// dispatcher process necessarily stays alive for the tool's lifetime.
//
// The child is started in its own process group so that the Ctrl-C
// console event delivered to the dispatcher's group does not also
// kill the child outright before it gets a chance to clean up; instead
// the dispatcher catches the event itself and re-raises it against the
// child's group, mirroring how a shell forwards signals to a
// foreground job.
func execBinary(binPath string, args []string) error {
	cmd := exec.Command(binPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}

	if err := cmd.Start(); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeExecFailed, "executing "+binPath, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go forwardCtrlEvents(sigCh, uint32(cmd.Process.Pid))

	err := cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeExecFailed, "executing "+binPath, err)
	}
	os.Exit(0)
	return nil
}

// forwardCtrlEvents re-raises every Ctrl-C the dispatcher receives
// against the child's process group, since CREATE_NEW_PROCESS_GROUP
// isolated the child from the console event that would otherwise have
// reached it directly.
func forwardCtrlEvents(sigCh <-chan os.Signal, pid uint32) {
	for range sigCh {
		windows.GenerateConsoleCtrlEvent(windows.CTRL_C_EVENT, pid)
	}
}
