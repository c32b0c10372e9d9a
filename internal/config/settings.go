package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Settings is the root service configuration. Fields are pointers so a
// partial JSON file only overrides what it names; the Get* accessors
// supply defaults for everything else. The schema doubles as the
// /api/settings response body.
type Settings struct {
	// Sweep params
	SleepTime        *string `json:"sleep_time,omitempty"` // duration string like "1s"
	FrameRows        *int    `json:"frame_rows,omitempty"`
	FrameCols        *int    `json:"frame_cols,omitempty"`
	NFramesValidation *int   `json:"n_frames_validation,omitempty"`

	// Patch statistics params
	SlidingWindow *int    `json:"sliding_window,omitempty"`
	PatchOps      *string `json:"patch_ops,omitempty"` // "serial" or "parallel"
	Workers       *int    `json:"workers,omitempty"`

	// Detection params
	Sensitivity          *float64 `json:"sensitivity,omitempty"`
	SensitivityVal       *float64 `json:"sensitivity_val,omitempty"`
	MotionThreshold      *float64 `json:"motion_threshold,omitempty"`
	MotionCountThreshold *int     `json:"motion_count_threshold,omitempty"`
	NPatchesValidate     *int     `json:"n_patches_validate,omitempty"`
	MotionGate           *bool    `json:"motion_gate,omitempty"`

	// Detection schedule: hours of day during which detection runs.
	// Start == end means always active.
	ActiveStartHour *int `json:"active_start_hour,omitempty"`
	ActiveEndHour   *int `json:"active_end_hour,omitempty"`

	// Notification params
	NotifyProvider     *string `json:"notify_provider,omitempty"` // "logonly" or "push"
	NotifyEndpoint     *string `json:"notify_endpoint,omitempty"`
	NotifyToken        *string `json:"notify_token,omitempty"`
	NotifyMinInterval  *string `json:"notify_min_interval,omitempty"` // duration string like "5m"
	NotifyMaxAttempts  *int    `json:"notify_max_attempts,omitempty"`

	// Storage params
	SnapshotDir *string `json:"snapshot_dir,omitempty"`

	// Cameras under watch. An empty list with dev mode enabled runs the
	// synthetic source instead.
	Cameras []CameraConfig `json:"cameras,omitempty"`
}

// CameraConfig describes one camera feed.
type CameraConfig struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// IsEnabled reports whether the camera should be swept; cameras default
// to enabled.
func (c CameraConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptySettings returns a Settings with all fields unset; every accessor
// falls through to its default.
func EmptySettings() *Settings {
	return &Settings{}
}

// LoadSettings loads Settings from a JSON file. The file must have a
// .json extension and stay under the max file size. Fields omitted from
// the JSON retain their defaults, so partial configs are safe.
func LoadSettings(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySettings()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Settings) Validate() error {
	if c.SleepTime != nil && *c.SleepTime != "" {
		if _, err := time.ParseDuration(*c.SleepTime); err != nil {
			return fmt.Errorf("invalid sleep_time '%s': %w", *c.SleepTime, err)
		}
	}
	if c.NotifyMinInterval != nil && *c.NotifyMinInterval != "" {
		if _, err := time.ParseDuration(*c.NotifyMinInterval); err != nil {
			return fmt.Errorf("invalid notify_min_interval '%s': %w", *c.NotifyMinInterval, err)
		}
	}
	if c.FrameRows != nil && *c.FrameRows < 1 {
		return fmt.Errorf("frame_rows must be positive, got %d", *c.FrameRows)
	}
	if c.FrameCols != nil && *c.FrameCols < 1 {
		return fmt.Errorf("frame_cols must be positive, got %d", *c.FrameCols)
	}
	if c.SlidingWindow != nil && *c.SlidingWindow < 1 {
		return fmt.Errorf("sliding_window must be positive, got %d", *c.SlidingWindow)
	}
	if c.NFramesValidation != nil && *c.NFramesValidation < 2 {
		return fmt.Errorf("n_frames_validation must be at least 2, got %d", *c.NFramesValidation)
	}
	if c.PatchOps != nil {
		switch *c.PatchOps {
		case "", "serial", "parallel":
		default:
			return fmt.Errorf("patch_ops must be \"serial\" or \"parallel\", got %q", *c.PatchOps)
		}
	}
	if c.NotifyProvider != nil {
		switch *c.NotifyProvider {
		case "", "logonly", "push":
		default:
			return fmt.Errorf("notify_provider must be \"logonly\" or \"push\", got %q", *c.NotifyProvider)
		}
	}
	if c.ActiveStartHour != nil && (*c.ActiveStartHour < 0 || *c.ActiveStartHour > 23) {
		return fmt.Errorf("active_start_hour must be 0-23, got %d", *c.ActiveStartHour)
	}
	if c.ActiveEndHour != nil && (*c.ActiveEndHour < 0 || *c.ActiveEndHour > 24) {
		return fmt.Errorf("active_end_hour must be 0-24, got %d", *c.ActiveEndHour)
	}
	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera %d has no id", i)
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true
	}
	return nil
}

// GetSleepTime parses and returns the sweep pause as a time.Duration.
func (c *Settings) GetSleepTime() time.Duration {
	if c.SleepTime == nil || *c.SleepTime == "" {
		return time.Second // default
	}
	d, err := time.ParseDuration(*c.SleepTime)
	if err != nil {
		return time.Second // default on parse error
	}
	return d
}

// GetFrameRows returns the normalized frame height or the default.
func (c *Settings) GetFrameRows() int {
	if c.FrameRows == nil {
		return 504 // default
	}
	return *c.FrameRows
}

// GetFrameCols returns the normalized frame width or the default.
func (c *Settings) GetFrameCols() int {
	if c.FrameCols == nil {
		return 896 // default
	}
	return *c.FrameCols
}

// GetNFramesValidation returns the sequence length or the default.
func (c *Settings) GetNFramesValidation() int {
	if c.NFramesValidation == nil {
		return 11 // default
	}
	return *c.NFramesValidation
}

// GetSlidingWindow returns the patch side length or the default.
func (c *Settings) GetSlidingWindow() int {
	if c.SlidingWindow == nil {
		return 16 // default
	}
	return *c.SlidingWindow
}

// GetPatchOps returns the patch statistics implementation name.
func (c *Settings) GetPatchOps() string {
	if c.PatchOps == nil || *c.PatchOps == "" {
		return "parallel" // default
	}
	return *c.PatchOps
}

// GetWorkers returns the worker count for the parallel engine; 0 means
// one worker per CPU.
func (c *Settings) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetSensitivity returns the monitor-phase comparison threshold.
func (c *Settings) GetSensitivity() float64 {
	if c.Sensitivity == nil {
		return 5.0 // default
	}
	return *c.Sensitivity
}

// GetSensitivityVal returns the validation-phase per-patch floor.
func (c *Settings) GetSensitivityVal() float64 {
	if c.SensitivityVal == nil {
		return 2.0 // default
	}
	return *c.SensitivityVal
}

// GetMotionThreshold returns the per-pixel motion level.
func (c *Settings) GetMotionThreshold() float64 {
	if c.MotionThreshold == nil {
		return 60.0 // default
	}
	return *c.MotionThreshold
}

// GetMotionCountThreshold returns the moving-pixel count at which the
// motion gate fires.
func (c *Settings) GetMotionCountThreshold() int {
	if c.MotionCountThreshold == nil {
		return 850 // default
	}
	return *c.MotionCountThreshold
}

// GetNPatchesValidate returns the per-half validated patch threshold.
func (c *Settings) GetNPatchesValidate() int {
	if c.NPatchesValidate == nil {
		return 6 // default
	}
	return *c.NPatchesValidate
}

// GetMotionGate returns whether the motion gate is applied.
func (c *Settings) GetMotionGate() bool {
	if c.MotionGate == nil {
		return true // default
	}
	return *c.MotionGate
}

// GetActiveStartHour returns the detection window start hour.
func (c *Settings) GetActiveStartHour() int {
	if c.ActiveStartHour == nil {
		return 0
	}
	return *c.ActiveStartHour
}

// GetActiveEndHour returns the detection window end hour.
func (c *Settings) GetActiveEndHour() int {
	if c.ActiveEndHour == nil {
		return 24
	}
	return *c.ActiveEndHour
}

// ActiveAt reports whether detection should run at the given time.
// Windows wrap midnight when end < start; start == end means always on.
func (c *Settings) ActiveAt(t time.Time) bool {
	start := c.GetActiveStartHour()
	end := c.GetActiveEndHour()
	if start == end || (start == 0 && end == 24) {
		return true
	}
	h := t.Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// GetNotifyProvider returns the notification provider name.
func (c *Settings) GetNotifyProvider() string {
	if c.NotifyProvider == nil || *c.NotifyProvider == "" {
		return "logonly" // default
	}
	return *c.NotifyProvider
}

// GetNotifyEndpoint returns the push endpoint URL.
func (c *Settings) GetNotifyEndpoint() string {
	if c.NotifyEndpoint == nil {
		return ""
	}
	return *c.NotifyEndpoint
}

// GetNotifyToken returns the push auth token.
func (c *Settings) GetNotifyToken() string {
	if c.NotifyToken == nil {
		return ""
	}
	return *c.NotifyToken
}

// GetNotifyMinInterval returns the per-camera notification cooldown.
func (c *Settings) GetNotifyMinInterval() time.Duration {
	if c.NotifyMinInterval == nil || *c.NotifyMinInterval == "" {
		return 5 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.NotifyMinInterval)
	if err != nil {
		return 5 * time.Minute // default on parse error
	}
	return d
}

// GetNotifyMaxAttempts returns the push delivery attempt cap.
func (c *Settings) GetNotifyMaxAttempts() int {
	if c.NotifyMaxAttempts == nil {
		return 3 // default
	}
	return *c.NotifyMaxAttempts
}

// GetSnapshotDir returns the directory for event snapshot images.
func (c *Settings) GetSnapshotDir() string {
	if c.SnapshotDir == nil || *c.SnapshotDir == "" {
		return "snapshots" // default
	}
	return *c.SnapshotDir
}

// EnabledCameras returns the cameras that should be swept.
func (c *Settings) EnabledCameras() []CameraConfig {
	out := make([]CameraConfig, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		if cam.IsEnabled() {
			out = append(out, cam)
		}
	}
	return out
}
