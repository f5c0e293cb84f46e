package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorIce   = lipgloss.Color("#A8D8EA") // Cyan/Blueish for accents
	ColorDeep  = lipgloss.Color("#596E79") // Muted Blue/Grey for secondary text
	ColorDark  = lipgloss.Color("#2C3E50") // Dark background elements
	ColorText  = lipgloss.Color("#E0E0E0") // Primary text
	ColorAlert = lipgloss.Color("#FF6B6B") // Red for errors/denies
	ColorGood  = lipgloss.Color("#4ECDC4") // Green for success/allows
	ColorWarn  = lipgloss.Color("#FFE66D") // Yellow for warnings
	ColorMuted = lipgloss.Color("#6c757d") // Muted text
)

// Styles
var (
	StyleBase = lipgloss.NewStyle().Foreground(ColorText)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorIce).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorDeep).
			Padding(0, 1)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorIce).
			Bold(true)

	StyleSubtitle = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Italic(true)

	StyleStatusGood = lipgloss.NewStyle().Foreground(ColorGood).Bold(true)
	StyleStatusBad  = lipgloss.NewStyle().Foreground(ColorAlert).Bold(true)
	StyleStatusWarn = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)

	StyleCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			Margin(0, 1)

	StyleActiveCard = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorIce).
			Padding(0, 1).
			Margin(0, 1)

	StyleLabel         = lipgloss.NewStyle().Foreground(ColorDeep).Width(18)
	StyleLabelFocused  = lipgloss.NewStyle().Foreground(ColorIce).Bold(true).Width(18)
	StyleFieldError    = lipgloss.NewStyle().Foreground(ColorAlert).PaddingLeft(18)
	StyleRequired      = lipgloss.NewStyle().Foreground(ColorWarn)
	StyleDraft         = lipgloss.NewStyle().Foreground(ColorText)
	StyleDraftSelected = lipgloss.NewStyle().Foreground(ColorDark).Background(ColorIce)

	StyleInputPrompt      = lipgloss.NewStyle().Foreground(ColorIce)
	StyleInputText        = lipgloss.NewStyle().Foreground(ColorText)
	StyleInputPlaceholder = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleInputCursor      = lipgloss.NewStyle().Foreground(ColorAlert)

	StyleApp = lipgloss.NewStyle().Margin(1, 2)

	StyleTopBar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(ColorDeep).
			Padding(0, 1).
			MarginBottom(1)

	StyleMenuItem = lipgloss.NewStyle().
			Foreground(ColorDeep).
			Padding(0, 1)

	StyleMenuItemActive = lipgloss.NewStyle().
				Foreground(ColorDark).
				Background(ColorIce).
				Bold(true).
				Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Faint(true)

	StyleActivity = lipgloss.NewStyle().Foreground(ColorMuted)
)

// noticeStyle picks the style for a notice kind name.
func noticeStyle(kind string) lipgloss.Style {
	switch kind {
	case "success":
		return StyleStatusGood
	case "error":
		return StyleStatusBad
	default:
		return StyleStatusWarn
	}
}
