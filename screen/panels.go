package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/eventlog"
	"github.com/romainhaenni/numerai-cli/pretty"
	"github.com/romainhaenni/numerai-cli/tournament"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// footerEvents is how many event lines the footer shows.
const footerEvents = 6

// compose builds one complete frame. The first frame (and any frame after
// a resize) clears the whole screen; later frames repaint rows in place
// via explicit row addressing between save/restore cursor.
func (r *Renderer) compose(s dash.Snapshot, width, height int, full bool) string {
	header := r.headerRows(s, width)
	footer := r.footerRows(s, width)

	bodyHeight := height - len(header) - len(footer)
	if bodyHeight < 0 {
		bodyHeight = 0
	}
	body := r.bodyRows(s, width, bodyHeight)
	for len(body) < bodyHeight {
		body = append(body, "")
	}
	if len(body) > bodyHeight {
		body = body[:bodyHeight]
	}

	rows := make([]string, 0, height)
	rows = append(rows, header...)
	rows = append(rows, body...)
	rows = append(rows, footer...)
	if len(rows) > height {
		rows = rows[:height]
	}

	out := &strings.Builder{}
	if full {
		out.WriteString(pretty.HideCursor())
		out.WriteString(pretty.ClearScreen())
		out.WriteString(pretty.CursorHome())
	} else {
		out.WriteString(pretty.SaveCursor())
	}
	for index, row := range rows {
		out.WriteString(pretty.MoveTo(index+1, 1))
		out.WriteString(row)
		out.WriteString(pretty.ClearToEnd())
	}
	if !full {
		out.WriteString(pretty.RestoreCursor())
	}
	return out.String()
}

func (r *Renderer) headerRows(s dash.Snapshot, width int) []string {
	rows := []string{}

	title := fmt.Sprintf(" NUMERAI PIPELINE  model %s", s.Model.Name)
	if s.Model.Round > 0 {
		title += fmt.Sprintf("  round %d", s.Model.Round)
	}
	if s.Paused {
		title += "  " + pretty.Yellow + "[PAUSED]" + pretty.Reset
	}
	rows = append(rows, titleStyle.Render(fit(title, width)))

	rows = append(rows, r.metricsRow(s, width))

	for _, op := range s.Operations {
		spinner := pretty.Cyan + spinnerFrames[r.spinner] + pretty.Reset
		bar := r.bar.ViewAs(op.Percent / 100)
		line := fmt.Sprintf("%s %-10s %s %3.0f%%", spinner, op.Kind, bar, op.Percent)
		if op.Note != "" {
			line += "  " + fit(op.Note, width-lipgloss.Width(line)-2)
		}
		rows = append(rows, line)
	}

	rows = append(rows, separator(width))
	return rows
}

func (r *Renderer) metricsRow(s dash.Snapshot, width int) string {
	network := pretty.Red + "✗ offline"
	if !pretty.Iconic {
		network = pretty.Red + "x offline"
	}
	if s.Network.Connected {
		mark := "✓"
		if !pretty.Iconic {
			mark = "+"
		}
		network = fmt.Sprintf("%s%s %dms", pretty.Green, mark, s.Network.LatencyMs)
	} else if s.Network.ConsecutiveFailures > 0 {
		network += fmt.Sprintf(" (%d fails)", s.Network.ConsecutiveFailures)
	}
	network += pretty.Reset

	line := fmt.Sprintf(" CPU %5.1f%%  MEM %5.1f%%  DISK %5.1f%% free  UP %s  NET %s",
		s.Metrics.CPUPercent, s.Metrics.MemPercent, s.Metrics.DiskFreePercent,
		upTime(), network)
	return fit(line, width)
}

func (r *Renderer) footerRows(s dash.Snapshot, width int) []string {
	rows := []string{separator(width)}

	for _, entry := range r.state.Events.Recent(footerEvents) {
		icon := levelColor(entry.Level) + entry.Level.Icon(pretty.Iconic) + pretty.Reset
		stamp := faintStyle.Render(entry.Time.Format("15:04:05"))
		rows = append(rows, fmt.Sprintf(" %s %s %s", icon, stamp, fit(entry.Message, width-12)))
	}

	if s.CommandMode {
		rows = append(rows, " "+pretty.Bold+"/"+s.CommandBuffer+pretty.Reset+"_")
	} else {
		hint := " q quit  d download  t train  P predict  s submit  p pause  w wizard  m model  h help  / command"
		rows = append(rows, faintStyle.Render(fit(hint, width)))
	}
	return rows
}

func (r *Renderer) bodyRows(s dash.Snapshot, width, height int) []string {
	switch s.Mode {
	case dash.ModeHelp:
		return helpRows()
	case dash.ModeModel:
		return modelRows(s)
	case dash.ModeLogs:
		return r.logRows(s, width)
	case dash.ModeWizard:
		return wizardRows(s, width)
	default:
		return r.overviewRows(s, width)
	}
}

func (r *Renderer) overviewRows(s dash.Snapshot, width int) []string {
	for _, op := range s.Operations {
		if op.Kind == "training" {
			rows := []string{"", sectionStyle.Render(" Training " + s.Model.Name)}
			rows = append(rows, " "+op.Note)
			if tail := lossLine(s.Model.LossTail); tail != "" {
				rows = append(rows, fit(" recent loss: "+tail, width))
			}
			return rows
		}
	}

	rows := []string{"", sectionStyle.Render(" Status")}
	for _, name := range tournament.RequiredDatasets {
		mark := pretty.Grey + "·" + pretty.Reset
		if s.Datasets[name] {
			mark = pretty.Green + "✓" + pretty.Reset
		}
		if !pretty.Iconic {
			mark = "-"
			if s.Datasets[name] {
				mark = "+"
			}
		}
		rows = append(rows, fmt.Sprintf("   %s %s", mark, name))
	}
	rows = append(rows, "")
	if s.Model.TrainedAt.IsZero() {
		rows = append(rows, faintStyle.Render("   no model trained this session, press t to train or w for the wizard"))
	} else {
		rows = append(rows, fmt.Sprintf("   model trained %s, validation corr %.4f",
			humanize.Time(s.Model.TrainedAt), s.Model.ValidationCorr))
	}
	if s.Model.LastSubmission != "" {
		rows = append(rows, fmt.Sprintf("   last submission %s", s.Model.LastSubmission))
	}
	rows = append(rows, "", faintStyle.Render("   press h for all keybindings"))
	return rows
}

func helpRows() []string {
	return []string{
		"",
		sectionStyle.Render(" Keybindings"),
		"   q        quit",
		"   d        download tournament datasets",
		"   t        train model",
		"   P        predict on live data",
		"   s        submit predictions",
		"   p        pause / resume background checks",
		"   r        force refresh",
		"   w        open submit wizard",
		"   m        model details",
		"   h or ?   toggle this help",
		"   /        command mode (Enter executes, Escape cancels)",
		"",
		sectionStyle.Render(" Commands"),
		"   /train [epochs]    train with explicit epoch count",
		"   /logs [n]          show technical detail of recent errors",
		"   /diagnose          write a full recovery report",
		"   /quit              leave the dashboard",
	}
}

func modelRows(s dash.Snapshot) []string {
	rows := []string{"", sectionStyle.Render(" Model " + s.Model.Name)}
	rows = append(rows, fmt.Sprintf("   epochs:          %d", s.Model.Epochs))
	if s.Model.TrainedAt.IsZero() {
		rows = append(rows, "   not trained in this session")
		return rows
	}
	rows = append(rows,
		fmt.Sprintf("   trained:         %s", s.Model.TrainedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("   validation corr: %.4f", s.Model.ValidationCorr),
	)
	if tail := lossLine(s.Model.LossTail); tail != "" {
		rows = append(rows, "   loss tail:       "+tail)
	}
	if s.Model.LastSubmission != "" {
		rows = append(rows, fmt.Sprintf("   last submission: %s (round %d)", s.Model.LastSubmission, s.Model.Round))
	}
	return rows
}

func (r *Renderer) logRows(s dash.Snapshot, width int) []string {
	count := s.LogDetailCount
	if count < 1 {
		count = 5
	}
	rows := []string{"", sectionStyle.Render(" Detailed error logs")}
	recent := r.state.Classifier.Recent(count)
	if len(recent) == 0 {
		rows = append(rows, faintStyle.Render("   no categorized errors recorded"))
		return rows
	}
	for _, entry := range recent {
		header := fmt.Sprintf("   %s %s/%s %s", entry.When.Format("15:04:05"), entry.Category, entry.Severity, entry.Message)
		rows = append(rows, fit(header, width))
		rows = append(rows, faintStyle.Render(fit("     "+entry.Technical, width)))
	}
	return rows
}

func wizardRows(s dash.Snapshot, width int) []string {
	form := s.Wizard
	if form == nil {
		return []string{"", faintStyle.Render("   wizard closed")}
	}
	style := pretty.ActiveBoxStyle()
	boxWidth := width - 4
	if boxWidth < 30 {
		boxWidth = 30
	}

	rows := []string{"", sectionStyle.Render(" Train and submit")}
	rows = append(rows, " "+style.TopLeft+strings.Repeat(style.Horizontal, boxWidth-2)+style.TopRight)
	for index, step := range form.Steps {
		marker := " "
		if index == form.Index {
			marker = pretty.Cyan + ">" + pretty.Reset
		}
		value := step.Value
		if index == form.Index {
			value += "_"
		}
		line := fmt.Sprintf(" %s %-12s %s", marker, step.Title+":", value)
		rows = append(rows, " "+style.Vertical+fit(line, boxWidth-3))
	}
	rows = append(rows, " "+style.BottomLeft+strings.Repeat(style.Horizontal, boxWidth-2)+style.BottomRight)

	if current := form.Current(); current != nil {
		rows = append(rows, "   "+current.Prompt)
		if current.Problem != "" {
			rows = append(rows, "   "+pretty.Red+current.Problem+pretty.Reset)
		}
	}
	rows = append(rows, "", faintStyle.Render("   Enter next  ↑ back  Esc cancel"))
	return rows
}

func lossLine(tail []float64) string {
	if len(tail) == 0 {
		return ""
	}
	show := tail
	if len(show) > 8 {
		show = show[len(show)-8:]
	}
	parts := make([]string, 0, len(show))
	for _, loss := range show {
		parts = append(parts, fmt.Sprintf("%.4f", loss))
	}
	return strings.Join(parts, " ")
}

func levelColor(level eventlog.Level) string {
	switch level {
	case eventlog.LevelError:
		return pretty.Red
	case eventlog.LevelWarn:
		return pretty.Yellow
	case eventlog.LevelSuccess:
		return pretty.Green
	case eventlog.LevelDebug:
		return pretty.Grey
	default:
		return pretty.White
	}
}

func separator(width int) string {
	style := pretty.ActiveBoxStyle()
	return faintStyle.Render(strings.Repeat(style.Horizontal, width))
}

// fit truncates a line to the visible width. Escape sequences count for
// zero columns and are never cut in half.
func fit(line string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(line) <= width {
		return line
	}
	return ansi.Truncate(line, width, "")
}

func upTime() string {
	return common.Uptime().Round(time.Second).String()
}
