package service

import (
	"regexp"
	"strings"

	"github.com/chatcut/chatcut/internal/action"
)

// Every pattern matches the whole normalized utterance. Anything with extra
// words, such as "ok make it grayscale", goes to the provider.
var (
	greetingRe = regexp.MustCompile(`^(?:(?:hi|hello|hey|heya|yo|howdy|hiya|sup)(?: there)?|good (?:morning|afternoon|evening)|what'?s up)$`)
	thanksRe   = regexp.MustCompile(`^(?:(?:ok|okay|cool|great|awesome|nice|perfect) )?(?:thanks|thank you|thx|ty|cheers)(?: (?:so much|a lot|very much))?$|^(?:ok|okay|cool|great|awesome|nice|perfect|got it|sounds good)$`)
	farewellRe = regexp.MustCompile(`^(?:bye|goodbye|see you|see ya|later|good night)(?: for now)?$`)
	aboutBotRe = regexp.MustCompile(`^(?:(?:hi|hello|hey) )?(?:who are you|what are you|what can you do|how are you|are you (?:a bot|an ai|real|human)|what do you do)$`)

	nonWordRe = regexp.MustCompile(`[^a-z0-9' ]+`)
)

// normalizeUtterance lowercases text, drops punctuation and a trailing
// "chatcut" so "Thanks, ChatCut!" reads as "thanks".
func normalizeUtterance(text string) string {
	t := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	t = strings.Join(strings.Fields(t), " ")
	return strings.TrimSuffix(t, " chatcut")
}

// SmallTalk recognizes greetings, thanks, farewells and questions about the
// assistant when they make up the whole message.
func SmallTalk(text string) (action.Result, bool) {
	t := normalizeUtterance(text)
	if t == "" {
		return action.Result{}, false
	}

	var msg string
	switch {
	case greetingRe.MatchString(t):
		msg = "Hi! Select a clip and tell me what to do, like \"zoom in by 120%\" or \"add reverb\"."
	case thanksRe.MatchString(t):
		msg = "You're welcome! Let me know if you want another edit."
	case farewellRe.MatchString(t):
		msg = "Bye! Your edits are saved in the project."
	case aboutBotRe.MatchString(t):
		msg = "I'm ChatCut, an editing assistant. I can zoom, blur, add filters and transitions, adjust volume and apply audio effects to the selected clips."
	default:
		return action.Result{}, false
	}
	return action.Failure(action.CodeSmallTalk, msg), true
}
