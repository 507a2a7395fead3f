package config

// Default returns the built-in configuration used when no config file exists
// or when a file omits settings.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:          "http://127.0.0.1:5000",
			TranscriptPath:   "/process_transcript",
			UploadPath:       "/upload_audio",
			PresentationPath: "/presentation",
		},
		Engine: EngineConfig{
			Endpoint:       "ws://127.0.0.1:8090/listen",
			LanguageCode:   "en-US",
			Model:          "",
			InterimResults: true,
		},
		Audio: AudioConfig{
			Input:    "",
			Fallback: "",
		},
		Capture: CaptureConfig{
			MaxDurationMS:  180000,
			TickIntervalMS: 1000,
		},
		Notify: NotifyConfig{
			Enable:    true,
			TimeoutMS: 5000,
		},
		Browse: BrowseConfig{
			Enable:  true,
			DelayMS: 1500,
		},
		BrowseCmd: CommandConfig{
			Raw:  "xdg-open",
			Argv: mustParseArgv("xdg-open"),
		},
		Debug: DebugConfig{
			EnableAudioDump:  false,
			EnableEngineDump: false,
		},
	}
}
