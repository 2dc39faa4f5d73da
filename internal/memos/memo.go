package memos

import (
	"errors"
	"strconv"
	"time"

	"github.com/julianstephens/daybell/internal/models"
)

var ErrEmptyAudio = errors.New("recording contains no audio")

// NewMemo builds a memo for a recording that finished at now.
func NewMemo(now time.Time, length time.Duration, mime string, audio []byte) (models.VoiceMemo, error) {
	if len(audio) == 0 {
		return models.VoiceMemo{}, ErrEmptyAudio
	}
	return models.VoiceMemo{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		Timestamp:   now.UnixMilli(),
		DateStr:     models.DateOf(now).String(),
		TimeStr:     models.TimeOfDayOf(now).String(),
		DurationStr: models.FormatDuration(length),
		AudioData:   EncodeDataURI(mime, audio),
	}, nil
}
