package diagnosis

// Guide is a step-by-step troubleshooting write-up for a failure code.
type Guide struct {
	ErrorCode    string   `json:"error_code"`
	SubCode      string   `json:"sub_code,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Steps        []string `json:"steps"`
	Prevention   []string `json:"prevention"`
	RelatedLinks []string `json:"related_links"`
}

var guides = map[FatalReason]Guide{
	FatalMeetingNotFound: {
		Title:       "Meeting Not Found",
		Description: "The bot could not find a meeting at the provided URL.",
		Steps: []string{
			"Verify the meeting URL is correct and complete",
			"Check whether the meeting was cancelled or rescheduled",
			"Make sure the meeting exists and is reachable from outside the organization",
			"Create a new meeting and redeploy the bot with the new URL",
		},
		Prevention: []string{
			"Validate meeting URLs before deploying a bot",
			"Take meeting URLs from the calendar integration instead of manual entry",
		},
		RelatedLinks: []string{
			"https://docs.recall.ai/docs/sub-codes",
		},
	},
	FatalInsufficientPermissions: {
		Title:       "Insufficient Permissions",
		Description: "The bot lacks the permissions it needs to join the meeting.",
		Steps: []string{
			"Check the meeting settings allow bots and external participants",
			"Confirm the host granted the permissions the bot requested",
			"Check whether the meeting requires authenticated participants",
		},
		Prevention: []string{
			"Configure meeting templates to allow bots",
			"Use signed-in bot accounts where platforms require them",
		},
		RelatedLinks: []string{
			"https://docs.recall.ai/docs/sub-codes",
		},
	},
	FatalRecordingDisabled: {
		Title:       "Recording Disabled",
		Description: "Recording is disabled for this meeting.",
		Steps: []string{
			"Enable recording in the meeting settings",
			"Check the platform plan allows participants to record",
			"Ask the host to allow the bot to record",
		},
		Prevention: []string{
			"Enable recording before deploying the bot",
			"Set default recording settings at the account level",
		},
		RelatedLinks: []string{
			"https://docs.recall.ai/docs/sub-codes",
		},
	},
}

var waitingRoomGuide = Guide{
	Title:       "Bot Stuck in Waiting Room",
	Description: "The bot is waiting to be admitted to the meeting.",
	Steps: []string{
		"Ask the host to admit the bot from the waiting room",
		"Check whether the meeting has a waiting room enabled",
		"Give the bot a name the host will recognize",
	},
	Prevention: []string{
		"Let meetings admit bots automatically",
		"Disable the waiting room for recorded meetings",
	},
	RelatedLinks: []string{
		"https://docs.recall.ai/docs/sub-codes",
	},
}

var unknownGuide = Guide{
	Title:       "Unknown Error",
	Description: "An unrecognized error occurred with the bot.",
	Steps: []string{
		"Open the bot in the provider dashboard explorer",
		"Review the bot's status history for the last sub-code",
		"Contact support with the bot ID if the issue persists",
	},
	Prevention: []string{
		"Monitor bot status changes",
		"Keep bot configuration up to date",
	},
	RelatedLinks: []string{
		"https://docs.recall.ai/docs/sub-codes",
	},
}

// LookupGuide finds the guide for errorCode, then for subCode, then falls
// back to the generic unknown-error guide.
func LookupGuide(errorCode, subCode string) Guide {
	g, ok := guideFor(errorCode)
	if !ok {
		g, ok = guideFor(subCode)
	}
	if !ok {
		g = unknownGuide
	}

	g.ErrorCode = errorCode
	g.SubCode = subCode
	return g
}

func guideFor(code string) (Guide, bool) {
	if code == "" {
		return Guide{}, false
	}
	if code == "waiting_room_blocked" || code == string(WarningInWaitingRoom) || code == string(CallEndedWaitingRoomTimeout) {
		return waitingRoomGuide, true
	}
	g, ok := guides[ParseFatalReason(code)]
	return g, ok
}
