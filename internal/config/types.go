// Package config resolves, parses, validates, and defaults podium configuration.
package config

// Config is the fully materialized runtime configuration used by podium.
type Config struct {
	Service   ServiceConfig
	Engine    EngineConfig
	Audio     AudioConfig
	Capture   CaptureConfig
	Notify    NotifyConfig
	Browse    BrowseConfig
	BrowseCmd CommandConfig
	Debug     DebugConfig
}

// ServiceConfig locates the slide-generation service and its routes.
type ServiceConfig struct {
	BaseURL          string
	TranscriptPath   string
	UploadPath       string
	PresentationPath string
}

// EngineConfig controls the streaming speech engine connection.
type EngineConfig struct {
	Endpoint       string
	LanguageCode   string
	Model          string
	InterimResults bool
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CaptureConfig bounds one capture session.
type CaptureConfig struct {
	MaxDurationMS  int
	TickIntervalMS int
}

// NotifyConfig controls notification display behavior.
type NotifyConfig struct {
	Enable    bool
	TimeoutMS int
}

// BrowseConfig controls opening the presentation after a successful submission.
type BrowseConfig struct {
	Enable  bool
	DelayMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump  bool
	EnableEngineDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
