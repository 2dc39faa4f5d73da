package speech

import (
	"fmt"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/julianstephens/daybell/internal/models"
)

// Message keys double as the English text. Arguments for the date keys
// are month number, month name and day; for the item keys they are
// zero-padded hour, zero-padded minute, hour, minute and text.
const (
	keyGreeting       = "Hello. Today is %[2]s %[3]d, "
	keyDate           = "%[2]s %[3]d, "
	keyNoneStartup    = "nothing is scheduled. Have a nice day."
	keyNone           = "nothing is scheduled."
	keyCount          = "you have %d events. "
	keyItemOnHour     = "%[3]d o'clock, %[5]s. "
	keyItemWithMinute = "%[3]d:%[2]s, %[5]s. "
)

var (
	supported = []language.Tag{language.Korean, language.English}
	matcher   = language.NewMatcher(supported)
	phrases   = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("speech catalog: %v", err))
		}
	}

	must(b.SetString(language.Korean, keyGreeting, "반갑습니다. 오늘 %[1]d월 %[3]d일, "))
	must(b.SetString(language.Korean, keyDate, "%[1]d월 %[3]d일, "))
	must(b.SetString(language.Korean, keyNoneStartup, "예정된 일정이 없습니다. 즐거운 하루 보내세요."))
	must(b.SetString(language.Korean, keyNone, "일정이 없습니다."))
	must(b.SetString(language.Korean, keyCount, "총 %d개의 일정이 있습니다. "))
	must(b.SetString(language.Korean, keyItemOnHour, "%[1]s시, %[5]s. "))
	must(b.SetString(language.Korean, keyItemWithMinute, "%[1]s시 %[2]s분, %[5]s. "))

	must(b.Set(language.English, keyCount, plural.Selectf(1, "%d",
		"=1", "you have one event. ",
		"other", "you have %d events. ",
	)))
	return b
}

// Phrasebook picks the briefing language for a BCP 47 tag. Korean is the
// default; other languages fall back to English.
func Phrasebook(lang string) language.Tag {
	if strings.TrimSpace(lang) == "" {
		return language.Korean
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Briefing composes the spoken summary of events on d. The startup form
// greets the user first.
func Briefing(lang string, d models.Date, events []models.Event, startup bool) string {
	p := message.NewPrinter(Phrasebook(lang), message.Catalog(phrases))

	var sb strings.Builder
	if startup {
		sb.WriteString(p.Sprintf(keyGreeting, int(d.Month), d.Month.String(), d.Day))
	} else {
		sb.WriteString(p.Sprintf(keyDate, int(d.Month), d.Month.String(), d.Day))
	}

	if len(events) == 0 {
		if startup {
			sb.WriteString(p.Sprintf(keyNoneStartup))
		} else {
			sb.WriteString(p.Sprintf(keyNone))
		}
		return sb.String()
	}

	sb.WriteString(p.Sprintf(keyCount, len(events)))
	for _, e := range events {
		hh := fmt.Sprintf("%02d", e.Time.Hour())
		mm := fmt.Sprintf("%02d", e.Time.Minute())
		key := keyItemWithMinute
		if e.Time.Minute() == 0 {
			key = keyItemOnHour
		}
		sb.WriteString(p.Sprintf(key, hh, mm, e.Time.Hour(), e.Time.Minute(), e.Text))
	}
	return strings.TrimSpace(sb.String())
}
