package constants

const (
	// Config keys
	SettingStore           = "store"
	SettingLanguage        = "language"
	SettingDebug           = "debug"
	SettingAlarmSoundURL   = "alarm.sound_url"
	SettingAlarmPlayer     = "alarm.player"
	SettingAlarmTray       = "alarm.tray"
	SettingBriefingCron    = "alarm.briefing_cron"
	SettingSpeechMode      = "speech.mode"
	SettingDeviceCommand   = "speech.device_command"
	SettingSpeechEndpoint  = "speech.endpoint"
	SettingSpeechStreamURL = "speech.stream_url"
	SettingTTSCommand      = "speech.tts_command"
	SettingRecorderCommand = "recorder.command"
	SettingRecorderMime    = "recorder.mime"

	// Default Settings Values
	DefaultLanguage        = "ko-KR"
	DefaultPlayerCommand   = "ffplay -nodisp -autoexit -loglevel quiet"
	DefaultTTSCommand      = "espeak-ng -v"
	DefaultRecorderCommand = "ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -b:a 32k -f webm -"
	DefaultBriefingCron    = ""
	DefaultSpeechMode      = SpeechNone
)
