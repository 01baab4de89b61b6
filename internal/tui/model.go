// Package tui is the interactive question console: type a question, get the
// answer with its confidence and the chunks it was grounded on.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/service"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	answerStyle     = lipgloss.NewStyle().PaddingLeft(2)
	confidenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	lowConfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	sourceStyle     = lipgloss.NewStyle().Faint(true).PaddingLeft(4)
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).PaddingLeft(2)
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle       = lipgloss.NewStyle().Faint(true)
)

type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model drives the console. It alternates between an input state and a
// result state where the cursor walks the answer's sources.
type Model struct {
	svc     *service.Service
	input   textinput.Model
	spin    spinner.Model
	waiting bool
	answer  *domain.Answer
	err     error
	cursor  int
	width   int
}

func NewModel(svc *service.Service) Model {
	in := textinput.New()
	in.Placeholder = "Ask a question about the indexed documents"
	in.Focus()
	in.CharLimit = 500
	in.Width = 70

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{svc: svc, input: in, spin: sp}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.waiting {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			m.waiting = true
			m.answer = nil
			m.err = nil
			m.cursor = 0
			return m, tea.Batch(m.spin.Tick, ask(m.svc, question))
		case "up", "k":
			if m.answer != nil && m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "j":
			if m.answer != nil && m.cursor < len(m.answer.Sources)-1 {
				m.cursor++
			}
			return m, nil
		}

	case answerMsg:
		m.waiting = false
		m.answer = msg.answer
		m.err = msg.err
		m.input.SetValue("")
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("docqa"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.waiting:
		b.WriteString(m.spin.View())
		b.WriteString(" thinking...\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.answer != nil:
		b.WriteString(answerStyle.Render(m.answer.Text))
		b.WriteString("\n\n")
		conf := fmt.Sprintf("confidence %.0f%%", m.answer.Confidence*100)
		if m.answer.Confidence < 0.5 {
			b.WriteString(answerStyle.Render(lowConfStyle.Render(conf)))
		} else {
			b.WriteString(answerStyle.Render(confidenceStyle.Render(conf)))
		}
		b.WriteString("\n")
		if len(m.answer.Sources) > 0 {
			b.WriteString(answerStyle.Render(fmt.Sprintf("sources (%d):", len(m.answer.Sources))))
			b.WriteString("\n")
			for i, src := range m.answer.Sources {
				line := fmt.Sprintf("%s  score %.2f", shortID(src.ChunkID), src.Score)
				if len(src.Categories) > 0 {
					line += "  [" + strings.Join(src.Categories, ", ") + "]"
				}
				if i == m.cursor {
					b.WriteString(cursorStyle.Render("> " + line))
				} else {
					b.WriteString(sourceStyle.Render(line))
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: ask • up/down: sources • esc: quit"))
	b.WriteString("\n")
	return b.String()
}

func ask(svc *service.Service, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := svc.Query(context.Background(), question)
		return answerMsg{answer: answer, err: err}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
