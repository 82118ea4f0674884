package rules

import "math/rand"

// NamePattern captures a name introduction. The memory override that stores
// the name uses the same expression, so the rule never greets a name that
// is not remembered.
const NamePattern = `my name is ([\p{L}][\p{L}'-]*)`

// DefaultRules is the built-in rule table used when no rules file is configured
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:      "greeting",
			Trigger: Keywords("hello", "hey", "greetings", "good morning", "good afternoon", "good evening", "howdy"),
			Templates: []string{
				"Hello! How can I help you today?",
				"Hi there! What's on your mind?",
				"Hey! Good to see you.",
			},
		},
		{
			ID:      "greeting-short",
			Trigger: MustRegex(`^\s*(?:hi|hiya|yo)\b`),
			Templates: []string{
				"Hi! What can I do for you?",
				"Hello there!",
			},
		},
		{
			ID:      "name",
			Trigger: MustRegex(NamePattern),
			Templates: []string{
				"Nice to meet you, %1!",
				"Pleased to meet you, %1.",
			},
		},
		{
			ID:      "how-are-you",
			Trigger: Keywords("how are you", "how's it going", "how are things"),
			Templates: []string{
				"I'm doing well, thank you for asking. How about you?",
				"All systems nominal, and in good spirits. And you?",
			},
		},
		{
			ID:      "feeling",
			Trigger: MustRegex(`i(?:'m| am) (?:feeling )?(sad|happy|tired|bored|stressed|excited)`),
			Templates: []string{
				"Why do you think you are %1?",
				"Being %1 happens to all of us. Want to talk about it?",
			},
		},
		{
			ID:      "thanks",
			Trigger: Keywords("thank you", "thanks", "cheers"),
			Templates: []string{
				"You're welcome!",
				"Happy to help.",
				"Any time.",
			},
		},
		{
			ID:      "help",
			Trigger: Keywords("help", "what can you do"),
			Templates: []string{
				"I can chat, remember your name, and keep you company. Type 'exit' or 'quit' to end the chat.",
			},
		},
		{
			ID:      "weather",
			Trigger: Keywords("weather", "rain", "sunny"),
			Templates: []string{
				"I can't see outside from this terminal, but I hope it's pleasant where you are.",
			},
		},
		{
			ID:      "joke",
			Trigger: Keywords("joke", "funny"),
			Templates: []string{
				"Why do programmers prefer dark mode? Because light attracts bugs.",
				"There are 10 kinds of people: those who understand binary and those who don't.",
			},
		},
		{
			ID:      "farewell",
			Trigger: MustRegex(`^\s*(?:exit|quit|bye|good ?bye|see you|farewell)\b`),
			Templates: []string{
				"Goodbye! It was nice chatting with you.",
				"Bye for now. Take care!",
			},
		},
		{
			ID:      "fallback",
			Trigger: Any(),
			Templates: []string{
				"Interesting. Tell me more.",
				"I see. Could you elaborate a bit?",
				"Hmm, go on.",
			},
		},
	}
}

// NewDefaultRuleSet builds the built-in rule table
func NewDefaultRuleSet(rnd *rand.Rand) *RuleSet {
	rs, err := NewRuleSet(DefaultRules(), rnd)
	if err != nil {
		panic(err)
	}
	return rs
}
