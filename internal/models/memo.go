package models

import (
	"fmt"
	"strings"
	"time"
)

type VoiceMemo struct {
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"` // unix milliseconds
	DateStr     string `json:"dateStr"`
	TimeStr     string `json:"timeStr"`
	DurationStr string `json:"durationStr"`
	AudioData   string `json:"audioData"` // base64 data URI
}

func (m *VoiceMemo) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("memo id cannot be empty")
	}
	if !strings.HasPrefix(m.AudioData, "data:") {
		return fmt.Errorf("memo audio must be a data URI")
	}
	return nil
}

func (m *VoiceMemo) CreatedAt() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// FormatDuration renders d as MM:SS, truncating to whole seconds.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
