// Package shellprofile implements rokit's default ShellProfileEditor:
// a best-effort append of a PATH export line to the user's shell rc
// files, skipped entirely when the line (or an equivalent one) is
// already present.
package shellprofile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rojo-rbx/rokit/internal/rerr"
)

const marker = "# added by rokit"

// Editor is the default, file-based ShellProfileEditor.
type Editor struct {
	home string
}

// New returns an Editor rooted at home (normally the user's home
// directory; overridable for tests).
func New(home string) *Editor {
	return &Editor{home: home}
}

// candidateFiles lists the rc files checked, in priority order. Unix
// shells are covered broadly since rokit doesn't know which one the
// user's login shell is; Windows has no rc-file equivalent, and
// EnsureOnPath returns without changes there (its runtime.GOOS check).
func (e *Editor) candidateFiles() []string {
	return []string{
		filepath.Join(e.home, ".bashrc"),
		filepath.Join(e.home, ".zshrc"),
		filepath.Join(e.home, ".profile"),
	}
}

// EnsureOnPath appends an export line for pathEntry to the first
// existing rc file (creating ~/.profile if none exist), unless
// pathEntry already appears verbatim somewhere in that file.
func (e *Editor) EnsureOnPath(pathEntry string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	target := e.pickTarget()
	line := fmt.Sprintf("\n%s\nexport PATH=\"%s:$PATH\"\n", marker, pathEntry)

	existing, err := os.ReadFile(target)
	if err != nil && !os.IsNotExist(err) {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "reading shell profile "+target, err)
	}
	if strings.Contains(string(existing), pathEntry) {
		return nil
	}

	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "opening shell profile "+target, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return rerr.Wrap(rerr.CategoryDispatcher, rerr.CodeStoreIO, "writing shell profile "+target, err)
	}
	return nil
}

func (e *Editor) pickTarget() string {
	for _, f := range e.candidateFiles() {
		if _, err := os.Stat(f); err == nil {
			return f
		}
	}
	return filepath.Join(e.home, ".profile")
}
