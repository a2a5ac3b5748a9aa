package constants

// Application identity
const (
	AppName        = "BCDice IRC"
	AppID          = "net.trpg.bcdice-irc"
	IRCUserName    = "BCDiceIRC"
	ConfigDirName  = "bcdice-irc"
	EnvPrefix      = "BCDICE_IRC"
	DefaultRPCBind = "localhost:50051"
)

// File names
const (
	PresetsFileName = "presets.yaml"
	MainLogFileName = "bcdice-irc.log"
)

// Directory names
const (
	LogsDirName = "logs"
)

// Process names for checking
const (
	ProcessNameWindows = "bcdice-irc.exe"
	ProcessNameUnix    = "bcdice-irc"
)

// Network constants
const (
	DefaultSTUNServer = "stun.l.google.com:19302"
)

// Application version
// Can be overridden at build time using -ldflags="-X bcdice-irc/internal/constants.AppVersion=..."
var (
	AppVersion = "0.1.0"
	CommitID   = ""
)

// UI Theme settings
const (
	// Theme options: "dark", "light", or "default" (follows system theme)
	AppTheme = "default"
)
