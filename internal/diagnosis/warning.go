package diagnosis

// WarningCode is a status code that signals a recoverable problem.
type WarningCode string

const (
	WarningInWaitingRoom        WarningCode = "in_waiting_room"
	WarningInCallNotRecording   WarningCode = "in_call_not_recording"
	WarningRecordingPaused      WarningCode = "recording_paused"
	WarningLowAudioQuality      WarningCode = "low_audio_quality"
	WarningTranscriptionDelayed WarningCode = "transcription_delayed"
)

var WarningCodes = []WarningCode{
	WarningInWaitingRoom,
	WarningInCallNotRecording,
	WarningRecordingPaused,
	WarningLowAudioQuality,
	WarningTranscriptionDelayed,
}

// ParseWarningCode reports whether code belongs to the warning set.
func ParseWarningCode(code string) (WarningCode, bool) {
	for _, w := range WarningCodes {
		if string(w) == code {
			return w, true
		}
	}
	return "", false
}

const defaultWarningRemediation = "Monitor for further issues."

func (w WarningCode) Remediation() string {
	switch w {
	case WarningInWaitingRoom:
		return "Ask the meeting host to admit the bot from the waiting room."
	case WarningInCallNotRecording:
		return "Ask the meeting host to grant the bot permission to record."
	case WarningRecordingPaused:
		return "Recording is paused. Resume it to avoid gaps in the transcript."
	case WarningLowAudioQuality:
		return "Ask participants to check their microphones and network connection."
	case WarningTranscriptionDelayed:
		return "Transcription is running behind. Results will arrive once the provider catches up."
	}
	return defaultWarningRemediation
}

func (w WarningCode) Description() string {
	switch w {
	case WarningInWaitingRoom:
		return "Bot is waiting to be admitted"
	case WarningInCallNotRecording:
		return "Bot is in the call but not recording"
	case WarningRecordingPaused:
		return "Recording is paused"
	case WarningLowAudioQuality:
		return "Audio quality is low"
	case WarningTranscriptionDelayed:
		return "Transcription is delayed"
	}
	return string(w)
}
