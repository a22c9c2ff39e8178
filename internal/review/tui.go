// Package review is a terminal UI for browsing enriched postings.
package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfacet/internal/model"
)

// Lines per posting in the list pane (title + subtitle + blank separator).
const postingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

type filterMode int

const (
	filterAll filterMode = iota
	filterFailed
)

func (f filterMode) String() string {
	if f == filterFailed {
		return "failed"
	}
	return "all"
}

var (
	listBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")) // bright blue

	facetBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(18)

	valueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewModel struct {
	label  string
	all    []model.EnrichedPosting
	shown  []int // indexes into all for the current filter
	mode   filterMode
	cursor int

	listViewport  viewport.Model
	facetViewport viewport.Model
	width         int
	height        int
	ready         bool

	view           viewState
	detailViewport viewport.Model

	open     func(url string)
	wantQuit bool
}

func newReviewModel(label string, postings []model.EnrichedPosting) reviewModel {
	m := reviewModel{label: label, all: postings, open: openURL}
	m.applyFilter()
	return m
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab":
		if m.mode == filterAll {
			m.mode = filterFailed
		} else {
			m.mode = filterAll
		}
		m.applyFilter()
		m.recalcContent()
		m.listViewport.SetYOffset(0)
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "o":
		if p, ok := m.selected(); ok && !model.IsMissing(p.URL) {
			m.open(p.URL)
		}
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the list viewport.
	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if p, ok := m.selected(); ok && !model.IsMissing(p.URL) {
			m.open(p.URL)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// applyFilter rebuilds shown for the current mode and keeps the cursor in range.
func (m *reviewModel) applyFilter() {
	shown := make([]int, 0, len(m.all))
	for i, p := range m.all {
		if m.mode == filterFailed && p.Error == "" {
			continue
		}
		shown = append(shown, i)
	}
	m.shown = shown
	m.cursor = clamp(m.cursor, 0, max(len(m.shown)-1, 0))
}

func (m reviewModel) selected() (model.EnrichedPosting, bool) {
	if len(m.shown) == 0 {
		return model.EnrichedPosting{}, false
	}
	return m.all[m.shown[m.cursor]], true
}

func (m *reviewModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.shown)-1, 0))
	m.recalcContent()
	m.ensureCursorVisible()
}

func (m *reviewModel) ensureCursorVisible() {
	vp := &m.listViewport
	cursorTop := m.cursor * postingItemHeight
	cursorBottom := cursorTop + postingItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	if _, ok := m.selected(); !ok {
		return m, nil
	}
	m.view = viewDetail
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(paneWidth, paneHeight)
		m.facetViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = paneWidth
		m.listViewport.Height = paneHeight
		m.facetViewport.Width = paneWidth
		m.facetViewport.Height = paneHeight
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.listViewport.SetContent(m.renderList())
	if p, ok := m.selected(); ok {
		m.facetViewport.SetContent(renderFacets(p))
	} else {
		m.facetViewport.SetContent("  (nothing selected)")
	}
	m.facetViewport.SetYOffset(0)
}

func (m reviewModel) failedCount() int {
	n := 0
	for _, p := range m.all {
		if p.Error != "" {
			n++
		}
	}
	return n
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.listViewport.Width

	leftHeader := activeHeaderStyle.Render(fmt.Sprintf(" Postings: %s (%d)", m.mode, len(m.shown)))
	rightHeader := inactiveHeaderStyle.Render(" Facets")

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeader),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeader),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		listBorderStyle.Width(paneWidth).Render(m.listViewport.View()),
		" ",
		facetBorderStyle.Width(paneWidth).Render(m.facetViewport.View()),
	)

	statusText := fmt.Sprintf(" %s | %d total | %d failed    Tab all/failed  ↑/↓ cursor  Enter detail  o open  q quit",
		m.label, len(m.all), m.failedCount())
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")
	content := listBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderList() string {
	if len(m.shown) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for row, idx := range m.shown {
		p := m.all[idx]
		isSelected := row == m.cursor

		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if isSelected {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		if p.Error != "" {
			b.WriteString(errorStyle.Render("! "))
		}
		b.WriteString(titleSt.Render(p.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", p.Company, p.Location, p.Metadata.Method)))
		b.WriteByte('\n')

		if row < len(m.shown)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m reviewModel) renderDetail() string {
	p, ok := m.selected()
	if !ok {
		return ""
	}
	var b strings.Builder

	writeField(&b, "Title", p.Title)
	writeField(&b, "Company", p.Company)
	writeField(&b, "Location", p.Location)
	writeField(&b, "Published", p.PublishDate)
	writeField(&b, "Source", p.Source)
	writeField(&b, "URL", p.URL)
	b.WriteByte('\n')
	b.WriteString(renderFacets(p))

	wrapWidth := max(m.width-8, 20)
	b.WriteByte('\n')
	b.WriteString(dividerStyle.Render("── Description "+strings.Repeat("─", max(wrapWidth-15, 3))) + "\n\n")
	if model.IsMissing(p.Description) {
		b.WriteString(subtitleStyle.Render("  (no description)") + "\n")
	} else {
		b.WriteString(descBodyStyle.Render(wordWrap(p.Description, wrapWidth)) + "\n")
	}
	return b.String()
}

// renderFacets lists the facets and provenance of p, one label per line.
func renderFacets(p model.EnrichedPosting) string {
	var b strings.Builder
	f := p.Facets

	writeField(&b, "Job type", joinOrDash(f.JobType))
	writeField(&b, "Languages", joinOrDash(f.Language.Required))
	writeField(&b, "  advantage", joinOrDash(f.Language.Advantage))
	writeField(&b, "Experience", string(f.ExperienceLevel))
	writeField(&b, "Education", joinOrDash(f.EducationLevel))
	for _, cat := range model.SkillCategories {
		if skills := f.SkillType[cat]; len(skills) > 0 {
			writeField(&b, "Skills/"+string(cat), strings.Join(skills, ", "))
		}
	}
	if len(f.Responsibilities) > 0 {
		b.WriteString(labelStyle.Render("Responsibilities") + "\n")
		for _, r := range f.Responsibilities {
			b.WriteString(valueStyle.Render("  • "+r) + "\n")
		}
	}

	b.WriteByte('\n')
	meta := p.Metadata
	writeField(&b, "Method", meta.Method)
	writeField(&b, "Stages", strings.Join(meta.Stages, " → "))
	writeField(&b, "Secondary", fmt.Sprintf("available=%t applied=%t", meta.SecondaryAvailable, meta.SecondaryApplied))
	if !meta.AnalyzedAt.IsZero() {
		writeField(&b, "Analyzed", meta.AnalyzedAt.Local().Format(time.DateTime))
	}
	if p.Error != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+p.Error) + "\n")
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteByte('\n')
}

func joinOrDash[T ~string](values []T) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the split-pane review UI over postings. label names
// where they were loaded from. Returns wantQuit=true if the user pressed
// q/ctrl+c, false if they pressed esc to return to the file picker.
func RunReviewTUI(label string, postings []model.EnrichedPosting) (bool, error) {
	p := tea.NewProgram(newReviewModel(label, postings), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	final := result.(reviewModel)
	return final.wantQuit, nil
}
