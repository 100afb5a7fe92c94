// Package assistant answers study questions typed into the reader's chat box.
package assistant

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/latency"

	"go.uber.org/zap"
)

const Welcome = "Hi! I'm your AI study assistant. Ask me questions like 'Summarize this page' or 'Explain this image' and I'll help you understand the content better."

type Responder interface {
	Reply(ctx context.Context, message string) (string, error)
}

type rule struct {
	match func(msg string) bool
	reply string
}

func has(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(msg string) bool { return a(msg) && b(msg) }
}

// Rules are checked in order, first match wins.
var rules = []rule{
	{
		match: has("summarize this page", "summary"),
		reply: "I'd be happy to help summarize the content! While I can't see the specific page you're viewing right now, I can help you break down complex topics. Try asking me about specific concepts or sharing the main points you'd like me to explain in simpler terms.",
	},
	{
		match: has("explain this image", "image"),
		reply: "I'd love to help explain images! While I can't currently view the specific image you're looking at, I can help explain concepts, diagrams, or visual elements if you describe them to me. What type of image or diagram are you trying to understand?",
	},
	{
		match: both(has("help"), has("study")),
		reply: "Here are some great ways I can help with your studies:\n\n• Ask me to explain complex concepts in simpler terms\n• Request study tips for specific subjects\n• Get help breaking down difficult topics\n• Ask for memory techniques or mnemonics\n• Request practice questions or quiz ideas\n\nWhat subject are you working on?",
	},
	{
		match: both(has("how"), has("remember", "memorize")),
		reply: "Great question! Here are some proven memory techniques:\n\n• **Spaced Repetition**: Review material at increasing intervals\n• **Active Recall**: Test yourself instead of just re-reading\n• **Mnemonics**: Create memorable associations or acronyms\n• **Visual Learning**: Draw diagrams or mind maps\n• **Teach Others**: Explain concepts to reinforce your understanding\n\nWhich technique would you like to know more about?",
	},
	{
		match: has("quiz", "test", "exam"),
		reply: "I can help you prepare for exams! Here's what I can do:\n\n• Create practice questions on topics you're studying\n• Suggest study schedules and timelines\n• Help with test-taking strategies\n• Explain difficult concepts in different ways\n• Provide tips for managing exam anxiety\n\nWhat subject or topic are you preparing for?",
	},
	{
		match: has("difficult", "hard", "struggling"),
		reply: "I understand that some topics can be challenging! Here's how we can tackle difficult material together:\n\n• Break complex topics into smaller, manageable parts\n• Find real-world examples and analogies\n• Use different learning approaches (visual, auditory, kinesthetic)\n• Practice with varied examples\n• Connect new information to what you already know\n\nWhat specific topic are you finding difficult?",
	},
	{
		match: both(has("note"), has("take", "taking")),
		reply: "Effective note-taking is crucial for learning! Here are some proven methods:\n\n• **Cornell Method**: Divide pages into notes, cues, and summary sections\n• **Mind Mapping**: Create visual connections between concepts\n• **Outline Method**: Use hierarchical bullet points\n• **Charting Method**: Organize information in tables\n• **SQ3R**: Survey, Question, Read, Recite, Review\n\nWhich method sounds most helpful for your current studies?",
	},
	{
		match: has("math", "calculation"),
		reply: "Math can be challenging, but with the right approach it becomes much clearer! I can help you:\n\n• Break down complex problems step-by-step\n• Explain mathematical concepts with real examples\n• Suggest practice techniques\n• Help identify where you might be getting stuck\n\nWhat specific math topic are you working on?",
	},
	{
		match: has("science", "biology", "chemistry", "physics"),
		reply: "Science subjects are fascinating! I can help you understand:\n\n• Complex scientific processes and mechanisms\n• How to approach scientific problem-solving\n• Ways to remember scientific terminology\n• Connections between different scientific concepts\n• Study strategies specific to science subjects\n\nWhat scientific concept would you like to explore?",
	},
}

var encouraging = []string{
	"That's a great question! I'm here to help you understand this better. Can you tell me more about what specifically you'd like to know?",
	"I'd be happy to help you with that! Learning is all about asking good questions. What aspect would you like me to focus on?",
	"Excellent! I love helping students learn. Could you provide a bit more detail about what you're trying to understand?",
	"That's exactly the kind of question that leads to deeper learning! Let me know what specific part you'd like me to explain.",
	"Great thinking! I can definitely help with that. What would be most useful - a simple explanation, examples, or study tips?",
}

// CannedResponder replies from a fixed keyword table without any network calls.
type CannedResponder struct {
	Delay time.Duration
	Pick  func(n int) int
}

func NewCannedResponder(delay time.Duration) *CannedResponder {
	return &CannedResponder{Delay: delay, Pick: rand.IntN}
}

func checkMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperr.NewValidation("message", "message is required")
	}
	return message, nil
}

func (c *CannedResponder) Reply(ctx context.Context, message string) (string, error) {
	message, err := checkMessage(message)
	if err != nil {
		return "", err
	}
	if err := latency.Sleep(ctx, c.Delay); err != nil {
		return "", err
	}

	lower := strings.ToLower(message)
	for _, r := range rules {
		if r.match(lower) {
			return r.reply, nil
		}
	}
	return encouraging[c.Pick(len(encouraging))], nil
}

// Fallback answers with Secondary whenever Primary fails for a reason other
// than a bad message or a cancelled request.
type Fallback struct {
	Primary   Responder
	Secondary Responder
}

func (f Fallback) Reply(ctx context.Context, message string) (string, error) {
	reply, err := f.Primary.Reply(ctx, message)
	if err == nil {
		return reply, nil
	}
	if errors.Is(err, apperr.ErrValidation) || ctx.Err() != nil {
		return "", err
	}
	zap.L().Warn("assistant backend failed, using canned replies", zap.Error(err))
	return f.Secondary.Reply(ctx, message)
}
