package config

const (
	defaultRuntimeDir       = "~/.local/share/foundry/run"
	defaultLogDir           = "~/.local/share/foundry/logs"
	defaultJournalPath      = "~/.local/share/foundry/journal.db"
	defaultAPIBind          = "127.0.0.1:7621"
	defaultSpawnTimeout     = 30
	defaultStopGrace        = 5
	defaultWatchdogInterval = 2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)
