// Package ui renders mesh node state for the terminal.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"robotmesh"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Palette: muted, dark-terminal friendly.
var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	LabelStyle   = lipgloss.NewStyle().Foreground(dim)
)

func Muted(s string) string { return MutedStyle.Render(s) }

func Bool(v bool) string {
	if v {
		return SuccessStyle.Render("true")
	}
	return ErrorStyle.Render("false")
}

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func WarnMsg(format string, a ...any) string {
	return WarnStyle.Render("!") + " " + fmt.Sprintf(format, a...)
}

// Signal renders a signal strength in dBm, coloured by quality.
func Signal(dbm int8) string {
	s := strconv.Itoa(int(dbm)) + " dBm"
	switch {
	case dbm >= -60:
		return SuccessStyle.Render(s)
	case dbm >= -75:
		return WarnStyle.Render(s)
	default:
		return ErrorStyle.Render(s)
	}
}

// Pair holds a key-value pair for KeyValues output.
type Pair struct {
	key   string
	value string
}

func KV(key, value string) Pair {
	return Pair{key: key, value: value}
}

// KeyValues renders aligned "key:  value" lines with a trailing newline.
func KeyValues(indent string, pairs ...Pair) string {
	maxLen := 0
	for _, p := range pairs {
		maxLen = max(maxLen, len(p.key))
	}

	var sb strings.Builder
	for _, p := range pairs {
		label := fmt.Sprintf("%-*s", maxLen+1, p.key+":")
		sb.WriteString(indent + LabelStyle.Render(label) + " " + p.value + "\n")
	}
	return sb.String()
}

// Table renders a styled table with rounded borders.
func Table(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().
		Foreground(purple).
		Bold(true).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	oddStyle := cellStyle.Foreground(dim)
	evenStyle := cellStyle

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenStyle
			default:
				return oddStyle
			}
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

// PeerTable renders ranked peers, strongest first.
func PeerTable(peers []robotmesh.PeerRecord) string {
	rows := make([][]string, len(peers))
	for i, p := range peers {
		rows[i] = []string{strconv.Itoa(i + 1), p.HardwareID.String(), Signal(p.SignalStrength)}
	}
	return Table([]string{"RANK", "HARDWARE ID", "SIGNAL"}, rows)
}

// StatusView renders a controller snapshot.
func StatusView(st robotmesh.Status) string {
	last := Muted("never")
	if !st.LastAcquisition.IsZero() {
		last = st.LastAcquisition.Format(time.RFC3339)
	}
	return KeyValues("",
		KV("State", st.State),
		KV("Started", Bool(st.Started)),
		KV("Connected", Bool(st.Connected)),
		KV("Peers", strconv.Itoa(len(st.Peers))),
		KV("Scans", strconv.FormatUint(st.Scans, 10)),
		KV("Attempts", fmt.Sprintf("%d (%d failed, %d linked)", st.ConnectAttempts, st.ConnectFailures, st.Links)),
		KV("Last peer", last),
	)
}
