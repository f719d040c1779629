package ui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rojo-rbx/rokit/internal/id"
	"github.com/rojo-rbx/rokit/internal/progress"
)

var (
	trustTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	trustHintStyle  = lipgloss.NewStyle().Faint(true)
	trustYesStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	trustNoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// TrustPrompter is an interactive, Bubble Tea-backed
// progress.TrustPrompter: it runs a tiny yes/no program on the
// controlling terminal and blocks until the user answers.
type TrustPrompter struct{}

type trustModel struct {
	tid      id.ToolId
	accepted bool
	done     bool
}

func (m trustModel) Init() tea.Cmd { return nil }

func (m trustModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y", "enter":
		m.accepted = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "esc", "ctrl+c":
		m.accepted = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m trustModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf(
		"%s\n%s has not been installed before. Trust it and continue?\n%s\n",
		trustTitleStyle.Render("New tool author"),
		m.tid.ScopeName(),
		trustHintStyle.Render("[y]es / [n]o"),
	)
}

// PromptTrust implements progress.TrustPrompter. On a TTY it runs the
// Bubble Tea confirmation above; otherwise it falls back to a plain
// stdin y/n prompt so piped/non-interactive shells can still answer.
func (TrustPrompter) PromptTrust(tid id.ToolId) progress.TrustDecision {
	if !IsTTY() {
		return promptPlain(tid)
	}

	p := tea.NewProgram(trustModel{tid: tid})
	final, err := p.Run()
	if err != nil {
		return progress.TrustDeny
	}
	m := final.(trustModel)
	if m.accepted {
		fmt.Println(trustYesStyle.Render("✓ trusted " + tid.ScopeName()))
		return progress.TrustAccept
	}
	fmt.Println(trustNoStyle.Render("✗ declined " + tid.ScopeName()))
	return progress.TrustDeny
}

func promptPlain(tid id.ToolId) progress.TrustDecision {
	fmt.Printf("%s has not been installed before. Trust it and continue? [y/N] ", tid.ScopeName())
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	if strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes") {
		return progress.TrustAccept
	}
	return progress.TrustDeny
}
