// Package main prints the contact badge palette and board accent colors.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hylla/join/internal/domain"
)

var sampleNames = []string{
	"Anna Schmidt",
	"Benedikt Ziegler",
	"David Eisenberg",
	"Emmanuel Mauer",
	"Marcel Bauer",
	"Tatjana Wolf",
}

func main() {
	render(os.Stdout)
}

func render(w io.Writer) {
	_, _ = fmt.Fprintln(w, "=== CONTACT BADGES ===")
	_, _ = fmt.Fprintln(w, contactTable().Render())

	_, _ = fmt.Fprintln(w, "\n=== BOARD ACCENTS ===")
	_, _ = fmt.Fprintln(w, accentTable().Render())
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
			}
			return lipgloss.NewStyle()
		})
}

// contactTable shows every palette slot with a sample badge.
func contactTable() *table.Table {
	t := newTable("Index", "Hex", "Badge", "Sample")
	for i, hex := range domain.ContactPalette {
		name := sampleNames[i%len(sampleNames)]
		badge := lipgloss.NewStyle().
			Background(lipgloss.Color(hex)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Width(4).
			Align(lipgloss.Center).
			Render(domain.Initials(name))
		t.Row(strconv.Itoa(i), hex, badge, name)
	}
	return t
}

// accentTable shows the ANSI colors used for borders, priorities, and progress.
func accentTable() *table.Table {
	t := newTable("Use", "ANSI", "Sample")
	accents := []struct {
		use  string
		ansi string
	}{
		{"selected column", "62"},
		{"drop highlight", "212"},
		{"muted text", "241"},
		{"progress bar", "33"},
		{"priority urgent", "196"},
		{"priority medium", "214"},
		{"priority low", "76"},
	}
	for _, a := range accents {
		sample := lipgloss.NewStyle().
			Background(lipgloss.Color(a.ansi)).
			Foreground(contrastColor(a.ansi)).
			Width(10).
			Align(lipgloss.Center).
			Render(a.ansi)
		t.Row(a.use, a.ansi, sample)
	}
	return t
}

// contrastColor picks black text for the light grays and white otherwise.
func contrastColor(ansi string) lipgloss.Color {
	n, _ := strconv.Atoi(ansi)
	if n >= 244 {
		return lipgloss.Color("0")
	}
	return lipgloss.Color("15")
}
