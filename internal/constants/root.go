package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

// SpeechMode selects which dictation backend is wired at startup
type SpeechMode string

const (
	AppName            = "daybell"
	DefaultKeyringUser = "database-connection"
	TranscribeKeyUser  = "transcription-api-key"
	DefaultConfigDir   = "~/.config/daybell"
	DefaultStorePath   = "~/.config/daybell/daybell.db"
	DefaultConfigFile  = "~/.config/daybell/config.yaml"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Store keys
	EventsKey = "calendar_events"
	MemosKey  = "voice_memos"

	// Alarm constants
	TickInterval    = time.Second
	DefaultAlarmURL = "https://actions.google.com/sounds/v1/alarms/digital_watch_alarm_long.ogg"
	SlotMinutes     = 30
	SlotsPerDay     = 24 * 60 / SlotMinutes

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "daybell-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "daybell-notifier.lock"
	NotificationDurationMs = 60000
	TrayAppIdentifier      = "com.julianstephens.daybell"
	TrayExecutable         = "daybell-tray"
	TraySecretHeader       = "X-Daybell-Secret"

	// Speech modes
	SpeechNone   SpeechMode = "none"
	SpeechDevice SpeechMode = "device"
	SpeechBatch  SpeechMode = "batch"
	SpeechStream SpeechMode = "stream"

	// Recorder constants
	DefaultMemoMime = "audio/webm"
)

// Session States
const (
	StateCalendar SessionState = iota
	StateDay
	StateMemos
	StateAddEvent
	StateConfirmDelete
)
