package diagnosis

// FatalReason is the closed set of sub-codes the provider attaches to a
// fatal status. Sub-codes we don't know parse to FatalUnknown.
type FatalReason string

const (
	// Meeting access
	FatalMeetingNotFound             FatalReason = "meeting_not_found"
	FatalMeetingRequiresRegistration FatalReason = "meeting_requires_registration"
	FatalMeetingRequiresSignIn       FatalReason = "meeting_requires_sign_in"
	FatalMeetingLinkExpired          FatalReason = "meeting_link_expired"
	FatalMeetingLinkInvalid          FatalReason = "meeting_link_invalid"
	FatalMeetingPasswordIncorrect    FatalReason = "meeting_password_incorrect"
	FatalMeetingLocked               FatalReason = "meeting_locked"
	FatalMeetingFull                 FatalReason = "meeting_full"
	FatalMeetingEnded                FatalReason = "meeting_ended"
	FatalInsufficientPermissions     FatalReason = "insufficient_permissions"
	FatalRecordingDisabled           FatalReason = "recording_disabled"

	// Bot infrastructure
	FatalBotErrored           FatalReason = "bot_errored"
	FatalFailedToLaunchInTime FatalReason = "failed_to_launch_in_time"

	// Zoom
	FatalZoomSDKCredentialsMissing FatalReason = "zoom_sdk_credentials_missing"
	FatalZoomSDKUpdateRequired     FatalReason = "zoom_sdk_update_required"
	FatalZoomSDKAppNotPublished    FatalReason = "zoom_sdk_app_not_published"
	FatalZoomInvalidSignature      FatalReason = "zoom_invalid_signature"
	FatalZoomAuthorizationFailed   FatalReason = "zoom_authorization_failed"
	FatalZoomEmailRequired         FatalReason = "zoom_email_required"
	FatalZoomWebDisallowed         FatalReason = "zoom_web_disallowed"
	FatalZoomConnectionFailed      FatalReason = "zoom_connection_failed"
	FatalZoomInvalidWebinarInvite  FatalReason = "zoom_invalid_webinar_invite"

	// Google Meet
	FatalGoogleMeetSignInFailed        FatalReason = "google_meet_sign_in_failed"
	FatalGoogleMeetSignInCaptchaFailed FatalReason = "google_meet_sign_in_captcha_failed"
	FatalGoogleMeetBotBlocked          FatalReason = "google_meet_bot_blocked"
	FatalGoogleMeetVideoError          FatalReason = "google_meet_video_error"
	FatalGoogleMeetLoginNotAvailable   FatalReason = "google_meet_login_not_available"

	// Microsoft Teams
	FatalTeamsCallDropped              FatalReason = "microsoft_teams_call_dropped"
	FatalTeamsSignInCredentialsMissing FatalReason = "microsoft_teams_sign_in_credentials_missing"
	FatalTeamsInternalError            FatalReason = "microsoft_teams_internal_error"
	FatalTeams2FARequired              FatalReason = "microsoft_teams_2fa_required"

	// Webex
	FatalWebexJoinMeetingError FatalReason = "webex_join_meeting_error"

	FatalUnknown FatalReason = "unknown"
)

// FatalReasons lists every known reason, FatalUnknown excluded.
var FatalReasons = []FatalReason{
	FatalMeetingNotFound,
	FatalMeetingRequiresRegistration,
	FatalMeetingRequiresSignIn,
	FatalMeetingLinkExpired,
	FatalMeetingLinkInvalid,
	FatalMeetingPasswordIncorrect,
	FatalMeetingLocked,
	FatalMeetingFull,
	FatalMeetingEnded,
	FatalInsufficientPermissions,
	FatalRecordingDisabled,
	FatalBotErrored,
	FatalFailedToLaunchInTime,
	FatalZoomSDKCredentialsMissing,
	FatalZoomSDKUpdateRequired,
	FatalZoomSDKAppNotPublished,
	FatalZoomInvalidSignature,
	FatalZoomAuthorizationFailed,
	FatalZoomEmailRequired,
	FatalZoomWebDisallowed,
	FatalZoomConnectionFailed,
	FatalZoomInvalidWebinarInvite,
	FatalGoogleMeetSignInFailed,
	FatalGoogleMeetSignInCaptchaFailed,
	FatalGoogleMeetBotBlocked,
	FatalGoogleMeetVideoError,
	FatalGoogleMeetLoginNotAvailable,
	FatalTeamsCallDropped,
	FatalTeamsSignInCredentialsMissing,
	FatalTeamsInternalError,
	FatalTeams2FARequired,
	FatalWebexJoinMeetingError,
}

var fatalBySubCode = func() map[string]FatalReason {
	m := make(map[string]FatalReason, len(FatalReasons))
	for _, r := range FatalReasons {
		m[string(r)] = r
	}
	return m
}()

// ParseFatalReason maps a provider sub-code onto the closed set.
func ParseFatalReason(subCode string) FatalReason {
	if r, ok := fatalBySubCode[subCode]; ok {
		return r
	}
	return FatalUnknown
}

const fatalFallbackRecommendation = "Contact support with the bot ID so the failure can be investigated."

// Recommendation is the remediation shown to operators for r.
func (r FatalReason) Recommendation() string {
	switch r {
	case FatalMeetingNotFound:
		return "Verify the meeting URL is correct and that the meeting has not been cancelled or rescheduled."
	case FatalMeetingRequiresRegistration:
		return "Disable registration for the meeting or pre-register the bot's email address."
	case FatalMeetingRequiresSignIn:
		return "Allow unauthenticated participants to join, or configure signed-in bot credentials for this platform."
	case FatalMeetingLinkExpired:
		return "The meeting link has expired. Generate a new invite link and redeploy the bot."
	case FatalMeetingLinkInvalid:
		return "The meeting link is malformed. Copy the full invite URL from the calendar event and redeploy the bot."
	case FatalMeetingPasswordIncorrect:
		return "Include the correct meeting passcode in the meeting URL."
	case FatalMeetingLocked:
		return "Ask the host to unlock the meeting so the bot can join."
	case FatalMeetingFull:
		return "The meeting reached its participant limit. Ask the host to raise the limit or free a seat."
	case FatalMeetingEnded:
		return "The meeting had already ended when the bot tried to join. Schedule the bot to join before the meeting ends."
	case FatalInsufficientPermissions:
		return "Check the meeting settings allow bots and that the host has granted the bot the permissions it needs."
	case FatalRecordingDisabled:
		return "Enable recording in the meeting settings or ask the host to allow participants to record."
	case FatalBotErrored:
		return "The bot hit an internal error. Retry the deployment and contact support if it happens again."
	case FatalFailedToLaunchInTime:
		return "The bot could not start in time. Schedule the bot further ahead of the meeting start."
	case FatalZoomSDKCredentialsMissing:
		return "Add Zoom SDK credentials to the provider workspace before deploying Zoom bots."
	case FatalZoomSDKUpdateRequired:
		return "The Zoom SDK version is no longer supported. Update the Zoom app credentials in the provider workspace."
	case FatalZoomSDKAppNotPublished:
		return "Publish the Zoom Marketplace app, or join only meetings hosted inside the app's own Zoom account."
	case FatalZoomInvalidSignature:
		return "Zoom rejected the SDK signature. Check the Zoom SDK key and secret configured for the provider."
	case FatalZoomAuthorizationFailed:
		return "Zoom refused to authorize the bot. Reconnect the Zoom integration and retry."
	case FatalZoomEmailRequired:
		return "The Zoom meeting requires an email to join. Configure a bot email address for Zoom meetings."
	case FatalZoomWebDisallowed:
		return "The host disabled joining from the web client. Ask the host to allow web client participants."
	case FatalZoomConnectionFailed:
		return "The bot could not connect to Zoom. Retry the deployment; if it persists, check Zoom's service status."
	case FatalZoomInvalidWebinarInvite:
		return "Use a panelist or attendee invite link for Zoom webinars rather than the host link."
	case FatalGoogleMeetSignInFailed:
		return "The Google account used by the bot could not sign in. Check the bot's Google credentials."
	case FatalGoogleMeetSignInCaptchaFailed:
		return "Google challenged the bot's sign-in with a captcha. Rotate the bot's Google account and retry."
	case FatalGoogleMeetBotBlocked:
		return "The Google Workspace blocks external bots. Ask the organizer's admin to allow external participants."
	case FatalGoogleMeetVideoError:
		return "Google Meet failed to start the bot's media session. Retry the deployment."
	case FatalGoogleMeetLoginNotAvailable:
		return "The meeting requires a signed-in Google account. Configure signed-in Google Meet bots."
	case FatalTeamsCallDropped:
		return "Microsoft Teams dropped the call. Retry the deployment if the meeting is still running."
	case FatalTeamsSignInCredentialsMissing:
		return "The meeting requires signed-in participants. Add Microsoft Teams bot credentials to the provider workspace."
	case FatalTeamsInternalError:
		return "Microsoft Teams reported an internal error. Retry the deployment."
	case FatalTeams2FARequired:
		return "The Teams bot account requires two-factor authentication. Use an account exempt from 2FA."
	case FatalWebexJoinMeetingError:
		return "The bot could not join the Webex meeting. Check the link and that guests may join without a host."
	case FatalUnknown:
		return fatalFallbackRecommendation
	}
	return fatalFallbackRecommendation
}

// Description is a short human-readable label for r.
func (r FatalReason) Description() string {
	switch r {
	case FatalUnknown:
		return "Bot failed with an unrecognized error"
	default:
		return "Bot failed: " + string(r)
	}
}
