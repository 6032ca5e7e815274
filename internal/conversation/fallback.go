package conversation

import (
	"fmt"
	"math/rand"
)

// apologyText is the fixed assistant reply shown when the backend fails.
const apologyText = "I apologize, that's beyond my current scope. Let's talk about something else."

// fallbackTemplates are served without a backend call once the quota is
// exhausted. Each embeds the user's question verbatim.
var fallbackTemplates = []string{
	`🤯 Server's having an existential crisis! But here's my cached wisdom: "%s" requires a 47-dimensional analysis involving quantum mechanics, thermodynamics, and the philosophical implications of asking questions. The answer involves π, the speed of light, and probably some calculus. Trust me, it's complicated! 🧠`,
	`😵 API quota exceeded! But fear not - through advanced mathematical modeling and theoretical frameworks, "%s" can be solved using a combination of differential equations, statistical analysis, and a deep understanding of the universe's fundamental constants. The solution is both elegant and unnecessarily complex! 🚀`,
	`🤖 Server busy mode activated! Your question "%s" triggers a cascade of computational processes involving machine learning algorithms, neural networks, and quantum computing principles. The answer requires consideration of entropy, probability distributions, and the meaning of existence itself! 🔬`,
}

func fallbackFor(question string, pick func(n int) int) string {
	if pick == nil {
		pick = rand.Intn
	}
	return fmt.Sprintf(fallbackTemplates[pick(len(fallbackTemplates))], question)
}
