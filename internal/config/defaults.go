package config

const (
	defaultDataDir    = "~/.local/share/audioproc/audio"
	defaultResultsDir = "~/.local/share/audioproc/diarization-results"
	defaultLogDir     = "~/.local/share/audioproc/logs"
	defaultUEMDir     = "~/.local/share/audioproc/uem"
	defaultEAFDir     = "~/.local/share/audioproc/eaf"
	defaultRTTMDir    = "~/.local/share/audioproc/rttm"

	defaultCatalogDBPath    = "~/.local/share/audioproc/customer_recordings.db"
	defaultCatalogBatchSize = 100

	defaultS3ConfigPath = "~/.s3cfg"

	defaultSoxSampleRate = 16000
	defaultSoxHighpassHz = 100

	defaultProcessingLimit   = 3
	defaultDownloadQueueSize = 10

	defaultDiarizationBaseURL = "https://api.pyannote.ai/v1"
	defaultDiarizationPort    = 4321

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			ResultsDir: defaultResultsDir,
			LogDir:     defaultLogDir,
			UEMDir:     defaultUEMDir,
			EAFDir:     defaultEAFDir,
			RTTMDir:    defaultRTTMDir,
		},
		Catalog: Catalog{
			DBPath:    defaultCatalogDBPath,
			BatchSize: defaultCatalogBatchSize,
		},
		S3: S3{
			ConfigPath: defaultS3ConfigPath,
		},
		Sox: Sox{
			SampleRate: defaultSoxSampleRate,
			HighpassHz: defaultSoxHighpassHz,
		},
		Pipeline: Pipeline{
			ProcessingLimit:   defaultProcessingLimit,
			DownloadQueueSize: defaultDownloadQueueSize,
		},
		Diarization: Diarization{
			BaseURL:      defaultDiarizationBaseURL,
			EndpointPort: defaultDiarizationPort,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
