package respond

// Canned supportive replies used when the text-generation service fails.
// Keyed by framing kind so proactive triggers still read on-topic; the
// reactive default covers everything else.
var fallbackReplies = map[string]string{
	"reactive":              "Hey! I'm here for you. Tell me more about how things are going.",
	"onboarding_welcome":    "Welcome aboard! I'm really glad you're here and can't wait to get to know you.",
	"workout_streak":        "You've been showing up day after day and it's paying off. Keep that streak alive!",
	"milestone_celebration": "Huge congrats, that's a real milestone. You earned this one!",
	"motivation_boost":      "Just checking in to say: you've got this. One step at a time.",
	"check_in":              "Hey, how have you been? I was thinking about you.",
	"random_social":         "Hope your day's going well. Anything fun happening?",
}

// FallbackReply returns the canned reply for a framing kind
func FallbackReply(kind string) string {
	if reply, ok := fallbackReplies[kind]; ok {
		return reply
	}
	return fallbackReplies["reactive"]
}
