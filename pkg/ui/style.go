package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/invochat/pkg/notify"
)

type Style struct {
	Header      lipgloss.Style
	UserMessage lipgloss.Style
	BotMessage  lipgloss.Style
	Meta        lipgloss.Style
	Input       lipgloss.Style
	Hint        lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style

	Notifications map[notify.Kind]lipgloss.Style
}

type BorderColors struct {
	User  string
	Bot   string
	Input string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		User:  "#CCCCCC",
		Bot:   "#FFB6C1", // Light pink
		Input: "#FFFF99", // Light yellow
	}

	darkModeColors := BorderColors{
		User:  "#444444",
		Bot:   "#DD7090", // Desaturated pink for dark mode
		Input: "#DDDD77", // Desaturated yellow for dark mode
	}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		UserMessage: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.User,
				Dark:  darkModeColors.User,
			}),
		BotMessage: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Bot,
				Dark:  darkModeColors.Bot,
			}),
		Meta: lipgloss.NewStyle().Faint(true),
		Input: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.AdaptiveColor{
				Light: lightModeColors.Input,
				Dark:  darkModeColors.Input,
			}),
		Hint:   lipgloss.NewStyle().Italic(true).Faint(true).Padding(0, 1),
		Status: lipgloss.NewStyle().Padding(0, 1),
		Error:  lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9")),
		Notifications: map[notify.Kind]lipgloss.Style{
			notify.KindSuccess: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("10")),
			notify.KindFailure: lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9")),
			notify.KindInfo:    lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("12")),
		},
	}
}

func (s *Style) Notification(k notify.Kind) lipgloss.Style {
	if st, ok := s.Notifications[k]; ok {
		return st
	}
	return s.Status
}
