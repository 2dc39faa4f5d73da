package models

// Alarm is the payload raised when an event comes due.
type Alarm struct {
	Text string    `json:"text"`
	Time TimeOfDay `json:"time"`
}

func AlarmFor(e Event) Alarm {
	return Alarm{Text: e.Text, Time: e.Time}
}
