package cli

import "math/rand"

// questionPool feeds the "try asking" suggestions shown when a chat session
// starts.
var questionPool = []string{
	"What's 1 + 1?",
	"How do I make coffee?",
	"What time is it?",
	"How do I tie my shoes?",
	"What's 2 + 2?",
	"How do I boil water?",
	"What is gravity?",
	"How do I open a door?",
	"What is the color blue?",
	"How do I breathe?",
	"What is a circle?",
	"How do I walk?",
	"What is light?",
	"How do I count to 10?",
	"What is a sandwich?",
	"How do I turn on a light?",
	"What is rain?",
	"How do I sit down?",
	"What is a book?",
	"How do I say hello?",
	"What is sleep?",
	"How do I write my name?",
	"What is a tree?",
	"How do I clap my hands?",
	"What is the sun?",
	"How do I smile?",
	"What is water?",
	"How do I blink?",
	"What is a cat?",
	"How do I wave goodbye?",
}

func suggestQuestions(n int) []string {
	if n > len(questionPool) {
		n = len(questionPool)
	}
	shuffled := make([]string, len(questionPool))
	copy(shuffled, questionPool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
