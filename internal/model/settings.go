package model

// Settings is the per-user behavior configuration. Stored as one logical row
// per user; loaded fresh on every tick so edits take effect on the next poll.
type Settings struct {
	PollIntervalMinutes    int     `json:"poll_interval_minutes"`
	PollStartHour          int     `json:"poll_start_hour"`
	PollEndHour            int     `json:"poll_end_hour"`
	AutonomyLevel          int     `json:"autonomy_level"`
	LowConfidenceThreshold float64 `json:"low_confidence_threshold"`
	LookbackHours          int     `json:"lookback_hours"`
	Timezone               string  `json:"user_timezone"`
	Model                  string  `json:"ai_model"`
}

func DefaultSettings() Settings {
	return Settings{
		PollIntervalMinutes:    30,
		PollStartHour:          0,
		PollEndHour:            23,
		AutonomyLevel:          1,
		LowConfidenceThreshold: 0.70,
		LookbackHours:          72,
		Timezone:               "America/Chicago",
		Model:                  "gpt-4o",
	}
}

// Params holds the freeform behavioral parameters injected into the drafting
// prompt. Editable without touching code; changes apply on the next message.
type Params struct {
	VoiceProfile VoiceProfile `json:"voice_profile"`
}

type VoiceProfile struct {
	Traits string `json:"traits"`
}
