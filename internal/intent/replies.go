package intent

import (
	"fmt"
	"math/rand"
	"strings"
)

// Hinglish reply templates, one list per response type. The bot picks the
// first template for deterministic flows and a random one for small talk.
var replyTemplates = map[Intent][]string{
	FileRequest: {
		"🔍 %s files dhund raha hun...\n\nYahan hai aapki files:",
		"📚 %s notes mil gayi!\n\nCheck karo:",
	},
	QuizRequest: {
		"🧠 %s quiz banata hun!\n\nPDF bhejo ya topic batao:",
		"🎯 Quiz time!\n\n%s ke liye ready ho?",
	},
	DoubtSolving: {
		"🤔 %s doubt solve karta hun!\n\nImage bhejo ya detail me batao:",
		"💡 Doubt clear karte hai!\n\n%s me kya problem hai?",
	},
	General: {
		"😊 Main aapka personal assistant hun!\n\nKya help chahiye?",
		"✨ Ready to help!\n\nKoi doubt, file, ya quiz chahiye?",
	},
}

var surpriseLinks = []string{
	"🎉 https://youtu.be/dQw4w9WgXcQ",
	"🌟 https://youtu.be/ZZ5LpwO-An4",
	"✨ https://youtu.be/L_jWHffIx5E",
	"🎊 https://youtu.be/fJ9rUzIMcZQ",
}

var bestWishesReplies = []string{
	"🌟 Best wishes to you too! Aur koi doubt hai? Puchte raho, main yahan hun!",
	"✨ Thank you! Koi aur question hai? Don't suffer in silence, ask away!",
	"🎉 Best wishes! Aur doubts lao, main solve kar dunga!",
}

// TemplateReply renders the canned Hinglish reply for an analysis result.
// Thanks and best wishes get their dedicated responses.
func TemplateReply(a Analysis, userName string) string {
	switch a.Intent {
	case Thanks:
		return ThanksReply(userName)
	case BestWishes:
		return BestWishesReply()
	}

	templates, ok := replyTemplates[a.Intent]
	if !ok {
		templates = replyTemplates[General]
	}
	template := templates[0]

	if strings.Contains(template, "%s") {
		subject := "General"
		if a.Subject != "general" {
			subject = strings.ToUpper(a.Subject[:1]) + a.Subject[1:]
		}
		return fmt.Sprintf(template, subject)
	}
	return template
}

// ThanksReply returns the thank-you response with a surprise link
func ThanksReply(userName string) string {
	link := surpriseLinks[rand.Intn(len(surpriseLinks))]
	return fmt.Sprintf("🎉 Welcome %s!\n\nYahan hai aapke liye ek surprise: %s\n\n✨ Aur koi doubt hai? Puchte raho!", userName, link)
}

// BestWishesReply returns a random motivational response
func BestWishesReply() string {
	return bestWishesReplies[rand.Intn(len(bestWishesReplies))]
}
