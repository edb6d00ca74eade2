package config

const (
	defaultDataDir            = "~/.local/share/workq"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultAPIBind            = "127.0.0.1:7411"
	defaultSweepInterval      = 30
	defaultLeaseMaxAgeSeconds = 300
	defaultReclaimLimit       = 1000
	defaultCollectLimit       = 1000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Storage: Storage{
			Backend: BackendSQLite,
		},
		Sweep: Sweep{
			IntervalSeconds:    defaultSweepInterval,
			LeaseMaxAgeSeconds: defaultLeaseMaxAgeSeconds,
			ReclaimLimit:       defaultReclaimLimit,
			CollectLimit:       defaultCollectLimit,
		},
		Daemon: Daemon{
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
