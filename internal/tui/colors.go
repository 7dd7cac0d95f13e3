package tui

// Color constants for the relay TUI theme
const (
	// Base Colors
	ColorCardBackground = "#12202B" // Deep teal
	ColorBorder         = "#35505E" // Slate
	ColorFocusBorder    = "#14B8A6" // Active pane

	// Text Colors
	ColorPrimaryText   = "#E6F0F2"
	ColorSecondaryText = "#A9BCC4"
	ColorDisabledText  = "#66777F"
	ColorPlaceholder   = "#A9BCC4"
	ColorHelpText      = "240"

	// Accent Colors
	ColorAccentMain   = "#0EA5A4" // Logo, active borders
	ColorAccentBright = "#5EEAD4" // Selection, current step

	// AI-written text in the note while it is highlighted
	ColorHighlightText = "#FDE68A"
	ColorHighlightBg   = "#3B3413"

	// State Colors
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
	ColorWarning = "#F59E0B"
)
