package diagnosis

// CallEndReason is the closed set of sub-codes the provider attaches to a
// call_ended status.
type CallEndReason string

const (
	CallEndedByHost                   CallEndReason = "call_ended_by_host"
	CallEndedByPlatformIdle           CallEndReason = "call_ended_by_platform_idle"
	CallEndedByPlatformMaxLength      CallEndReason = "call_ended_by_platform_max_length"
	CallEndedByPlatformWaitingRoom    CallEndReason = "call_ended_by_platform_waiting_room_timeout"
	CallEndedWaitingRoomTimeout       CallEndReason = "timeout_exceeded_waiting_room"
	CallEndedNoOneJoined              CallEndReason = "timeout_exceeded_noone_joined"
	CallEndedEveryoneLeft             CallEndReason = "timeout_exceeded_everyone_left"
	CallEndedSilenceDetected          CallEndReason = "timeout_exceeded_silence_detected"
	CallEndedOnlyBotsByName           CallEndReason = "timeout_exceeded_only_bots_detected_using_participant_names"
	CallEndedOnlyBotsByEvents         CallEndReason = "timeout_exceeded_only_bots_detected_using_participant_events"
	CallEndedNotRecordingTimeout      CallEndReason = "timeout_exceeded_in_call_not_recording"
	CallEndedPermissionDeniedTimeout  CallEndReason = "timeout_exceeded_recording_permission_denied"
	CallEndedMaxDuration              CallEndReason = "timeout_exceeded_max_duration"
	CallEndedBotKickedFromCall        CallEndReason = "bot_kicked_from_call"
	CallEndedBotKickedFromWaitingRoom CallEndReason = "bot_kicked_from_waiting_room"
	CallEndedBotReceivedLeaveCall     CallEndReason = "bot_received_leave_call"

	CallEndUnknown CallEndReason = "unknown"
)

var CallEndReasons = []CallEndReason{
	CallEndedByHost,
	CallEndedByPlatformIdle,
	CallEndedByPlatformMaxLength,
	CallEndedByPlatformWaitingRoom,
	CallEndedWaitingRoomTimeout,
	CallEndedNoOneJoined,
	CallEndedEveryoneLeft,
	CallEndedSilenceDetected,
	CallEndedOnlyBotsByName,
	CallEndedOnlyBotsByEvents,
	CallEndedNotRecordingTimeout,
	CallEndedPermissionDeniedTimeout,
	CallEndedMaxDuration,
	CallEndedBotKickedFromCall,
	CallEndedBotKickedFromWaitingRoom,
	CallEndedBotReceivedLeaveCall,
}

var callEndBySubCode = func() map[string]CallEndReason {
	m := make(map[string]CallEndReason, len(CallEndReasons))
	for _, r := range CallEndReasons {
		m[string(r)] = r
	}
	return m
}()

func ParseCallEndReason(subCode string) CallEndReason {
	if r, ok := callEndBySubCode[subCode]; ok {
		return r
	}
	return CallEndUnknown
}

const callEndFallback = "The call ended normally."

// Explanation says, for a person, why the bot left the call.
func (r CallEndReason) Explanation() string {
	switch r {
	case CallEndedByHost:
		return "The host ended the meeting for all participants."
	case CallEndedByPlatformIdle:
		return "The meeting platform ended the call after a period of inactivity."
	case CallEndedByPlatformMaxLength:
		return "The meeting platform ended the call when it reached the plan's maximum meeting length."
	case CallEndedByPlatformWaitingRoom:
		return "The meeting platform removed the bot after it waited too long in the waiting room."
	case CallEndedWaitingRoomTimeout:
		return "The bot left after waiting in the waiting room longer than its configured timeout. Ask the host to admit the bot promptly."
	case CallEndedNoOneJoined:
		return "The bot left because no one else joined the meeting."
	case CallEndedEveryoneLeft:
		return "The bot left after every other participant had left the meeting."
	case CallEndedSilenceDetected:
		return "The bot left after a prolonged period of silence."
	case CallEndedOnlyBotsByName, CallEndedOnlyBotsByEvents:
		return "The bot left because only other bots remained in the call."
	case CallEndedNotRecordingTimeout:
		return "The bot left because it was not allowed to record before its timeout."
	case CallEndedPermissionDeniedTimeout:
		return "The bot left after its recording permission request was denied."
	case CallEndedMaxDuration:
		return "The bot left after reaching its configured maximum call duration."
	case CallEndedBotKickedFromCall:
		return "A participant removed the bot from the call."
	case CallEndedBotKickedFromWaitingRoom:
		return "The host declined to admit the bot from the waiting room."
	case CallEndedBotReceivedLeaveCall:
		return "The bot was asked to leave the call through the API."
	case CallEndUnknown:
		return callEndFallback
	}
	return callEndFallback
}
