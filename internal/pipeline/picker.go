package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#0B0B0B")).
				Background(lipgloss.Color("#7FDBFF")).
				Bold(true).
				Padding(0, 1)

	pickerHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Faint(true)

	pickerHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F8F8F2")).
				Bold(true)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#0B0B0B")).
				Background(lipgloss.Color("#00F5D4")).
				Bold(true)

	pickerRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EAEAEA"))
)

type formatPickerModel struct {
	viewport    viewport.Model
	title       string
	ready       bool
	formats     []FormatInfo
	selected    int
	quitting    bool
	digitBuffer string
}

func newFormatPickerModel(title string, formats []FormatInfo) *formatPickerModel {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7FDBFF"))

	sorted := make([]FormatInfo, len(formats))
	copy(sorted, formats)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Itag < sorted[j].Itag
	})

	vp.SetContent(buildPickerContent(sorted, -1))
	return &formatPickerModel{
		viewport: vp,
		title:    title,
		formats:  sorted,
		selected: -1,
	}
}

func buildPickerContent(formats []FormatInfo, selected int) string {
	var b strings.Builder
	b.WriteString(pickerHeaderStyle.Render("itag   ext    quality      size       kind"))
	b.WriteString("\n")

	for i, f := range formats {
		size := "-"
		if f.Size > 0 {
			size = humanBytes(f.Size)
		}
		kind := "video"
		if f.AudioOnly {
			kind = "audio"
		}
		qual := f.QualityLabel
		if qual == "" {
			qual = "-"
		}

		line := fmt.Sprintf("%5d   %-5s  %-12s %-10s %s", f.Itag, f.Ext, qual, size, kind)
		if i == selected {
			line = pickerSelectedStyle.Render(line)
		} else {
			line = pickerRowStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *formatPickerModel) Init() tea.Cmd {
	return nil
}

func (m *formatPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = msg.Height - 6
		m.viewport, cmd = m.viewport.Update(msg)
		m.ready = true
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			m.selected = -1
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			} else if len(m.formats) > 0 {
				m.selected = len(m.formats) - 1
			}
			m.digitBuffer = ""
			m.updateContent()
		case "down", "j":
			if m.selected < len(m.formats)-1 {
				m.selected++
			} else if len(m.formats) > 0 {
				m.selected = 0
			}
			m.digitBuffer = ""
			m.updateContent()
		case "home", "g":
			if len(m.formats) > 0 {
				m.selected = 0
			}
			m.updateContent()
		case "end", "G":
			if len(m.formats) > 0 {
				m.selected = len(m.formats) - 1
			}
			m.updateContent()
		case "enter":
			if m.selected >= 0 && m.selected < len(m.formats) {
				m.quitting = true
				return m, tea.Quit
			}
		case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.digitBuffer += msg.String()
			m.selectByDigits()
		}
		return m, nil
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// selectByDigits jumps to the itag matching the typed prefix; an exact
// match clears the buffer.
func (m *formatPickerModel) selectByDigits() {
	target, err := strconv.Atoi(m.digitBuffer)
	if err != nil {
		m.digitBuffer = ""
		return
	}
	for i, f := range m.formats {
		if f.Itag == target {
			m.selected = i
			m.digitBuffer = ""
			m.updateContent()
			return
		}
	}
	for i, f := range m.formats {
		if strings.HasPrefix(strconv.Itoa(f.Itag), m.digitBuffer) {
			m.selected = i
			m.updateContent()
			return
		}
	}
	m.digitBuffer = ""
}

func (m *formatPickerModel) updateContent() {
	m.viewport.SetContent(buildPickerContent(m.formats, m.selected))
	if m.selected < 0 {
		return
	}
	targetLine := 1 + m.selected
	top := m.viewport.YOffset
	bottom := top + m.viewport.Height - 2
	if targetLine < top {
		m.viewport.YOffset = targetLine
	} else if targetLine >= bottom {
		m.viewport.YOffset = targetLine - m.viewport.Height + 3
	}
}

func (m *formatPickerModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render(m.title))
	b.WriteString(" ")
	switch {
	case m.digitBuffer != "":
		b.WriteString(pickerHelpStyle.Render(fmt.Sprintf("Typing itag: %s_", m.digitBuffer)))
	case m.selected >= 0 && m.selected < len(m.formats):
		b.WriteString(pickerHelpStyle.Render(fmt.Sprintf("Selected: itag %d · Enter to confirm", m.formats[m.selected].Itag)))
	default:
		b.WriteString(pickerHelpStyle.Render("↑/↓ select · Enter confirm · q quit"))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(pickerHelpStyle.Render("Type digits to jump to an itag, Home/End for first/last"))
	return b.String()
}

func (m *formatPickerModel) SelectedItag() int {
	if m.selected >= 0 && m.selected < len(m.formats) {
		return m.formats[m.selected].Itag
	}
	return 0
}

// RunFormatPicker shows the available formats interactively and returns
// the chosen itag, or 0 when cancelled.
func RunFormatPicker(title string, formats []FormatInfo) (int, error) {
	model := newFormatPickerModel(title, formats)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return 0, err
	}
	if m, ok := result.(*formatPickerModel); ok {
		return m.SelectedItag(), nil
	}
	return 0, nil
}
