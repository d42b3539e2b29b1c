package config

const (
	defaultDataDir          = "~/.local/share/echosync/data"
	defaultLogDir           = "~/.local/share/echosync/logs"
	defaultMediaDir         = "~/.local/share/echosync/media"
	defaultSessionTokenPath = "~/.local/share/echosync/session_token"
	defaultAPIBind          = "127.0.0.1:7844"
	defaultRemoteTimeout    = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:          defaultDataDir,
			LogDir:           defaultLogDir,
			MediaDir:         defaultMediaDir,
			SessionTokenPath: defaultSessionTokenPath,
			APIBind:          defaultAPIBind,
		},
		Remote: Remote{
			RequestTimeout: defaultRemoteTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
