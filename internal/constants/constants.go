package constants

import "time"

const (
	AppName           = "b612"
	Version           = "v1.2.0"
	DefaultConfigPath = "~/.config/b612/b612.db"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Keyring constants
	DefaultKeyringUser = "database-connection"
	KeyringSecretUser  = "message-secret"

	// Lockfile names for the loopback message webhooks. Each live process
	// writes its own lockfile so peers can discover it.
	AppLockfileName      = "b612-app.lock"
	AgentLockfileName    = "b612-agent.lock"
	NotifierLockfileName = "b612-notifier.lock"

	// Executable prefixes used to validate lockfile owners
	AppExecutablePrefix      = "b612"
	NotifierExecutablePrefix = "b612-tray"

	// MaxTimerDelay caps any single armed delay. Long host timers are
	// unreliable across suspend/resume, so the scheduler wakes at least
	// this often and re-checks the wall clock.
	MaxTimerDelay = 5 * time.Minute

	// FireTolerance is the window around a target instant within which a
	// wake counts as "due". Wakes outside the window re-arm instead.
	FireTolerance = 2 * time.Minute

	// DeferInterval is how long a "later" action postpones a reminder.
	DeferInterval = 30 * time.Minute

	// AgentWakeInterval is the background agent's nominal sweep cadence.
	// Wakes are not guaranteed to be this regular.
	AgentWakeInterval = time.Minute

	// MaxScanDays bounds the forward scan for the next occurrence of a
	// frequency. Guards against descriptors that never match.
	MaxScanDays = 366

	// Recurring events spawn concrete dated instances this far ahead.
	RecurringInstanceMonths = 3
	MaxRecurringInstances   = 365

	// NotificationDurationMs is how long the tray app displays a notification.
	NotificationDurationMs = 5000
)

// WeeklyDay is the canonical weekday for the "weekly" frequency. Both
// scheduling contexts use Monday; items with a weekly frequency are active
// on Mondays only.
const WeeklyDay = time.Monday
