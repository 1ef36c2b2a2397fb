package types

// UISettings controls toolbar appearance
type UISettings struct {
	Transparency float64 `json:"transparency"` // 0.0 to 1.0
	AlwaysOnTop  bool    `json:"alwaysOnTop"`
	Theme        string  `json:"theme"`
	FontSize     int     `json:"fontSize"`
	CompactMode  bool    `json:"compactMode"`
	ShowTooltips bool    `json:"showTooltips"`
}

// ExecutionSettings controls how scripts are launched and tracked
type ExecutionSettings struct {
	DefaultTimeoutSec float64 `json:"defaultTimeoutSec"`
	MaxConcurrent     int     `json:"maxConcurrent"`
	OutputLimitBytes  int     `json:"outputLimitBytes"` // per-stream capture cap
	HistoryLimit      int     `json:"historyLimit"`
}

// EditorSettings controls external editor integration
type EditorSettings struct {
	DefaultEditor string `json:"defaultEditor"`
	AutoDetect    bool   `json:"autoDetect"`
}

// NotificationSettings controls completion/error popups
type NotificationSettings struct {
	OnComplete bool `json:"onComplete"`
	OnError    bool `json:"onError"`
}

// Settings is the full application settings document persisted as JSON
type Settings struct {
	UI            UISettings           `json:"ui"`
	Execution     ExecutionSettings    `json:"execution"`
	Editor        EditorSettings       `json:"editor"`
	Notifications NotificationSettings `json:"notifications"`
}

// DefaultSettings returns the settings used when no file exists yet
func DefaultSettings() *Settings {
	return &Settings{
		UI: UISettings{
			Transparency: 0.95,
			AlwaysOnTop:  true,
			Theme:        "violet",
			FontSize:     10,
			CompactMode:  false,
			ShowTooltips: true,
		},
		Execution: ExecutionSettings{
			DefaultTimeoutSec: 30.0,
			MaxConcurrent:     5,
			OutputLimitBytes:  64 * 1024,
			HistoryLimit:      1000,
		},
		Editor: EditorSettings{
			DefaultEditor: "vscode",
			AutoDetect:    true,
		},
		Notifications: NotificationSettings{
			OnComplete: true,
			OnError:    true,
		},
	}
}
