package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title       lipgloss.Style
	user        lipgloss.Style
	interviewer lipgloss.Style
	text        lipgloss.Style
	interim     lipgloss.Style
	status      lipgloss.Style
	interrupted lipgloss.Style
	help        lipgloss.Style
	err         lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		user:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("159")),
		interviewer: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		text:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		interim:     lipgloss.NewStyle().Faint(true),
		status:      lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		interrupted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		help:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		err:         lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}
