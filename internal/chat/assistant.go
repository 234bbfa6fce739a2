package chat

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/liutentor/tentor/internal/exams"
)

// Completer is the LLM boundary; satisfied by *openai.Client.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant answers questions about archived exams. The conversation history
// and the anchored exam's metadata are sent as context with every turn.
type Assistant struct {
	client      Completer
	model       string
	maxTokens   int
	temperature float64
	store       *Store
	exams       *exams.Store
}

// NewAssistant creates an assistant. client may be nil, in which case Ask
// reports that the assistant is not configured.
func NewAssistant(client Completer, model string, maxTokens int, temperature float64, store *Store, examStore *exams.Store) *Assistant {
	return &Assistant{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		store:       store,
		exams:       examStore,
	}
}

// Configured reports whether an LLM client is available.
func (a *Assistant) Configured() bool { return a.client != nil }

const systemPrompt = `You are the study assistant of an exam archive for university courses.
You help students understand old exams and their solutions ("facit").
Answer in the language the student writes in. Be concise and concrete.
If a question cannot be answered from the exam context, say so.`

// Ask records the user turn, completes against the model and records the
// assistant turn. The session must exist.
func (a *Assistant) Ask(ctx context.Context, sessionID, content string) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("assistant not configured: set OPENAI_API_KEY")
	}

	sess, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}

	if _, err := a.store.AddMessage(ctx, Message{SessionID: sessionID, Role: "user", Content: content}); err != nil {
		return "", err
	}

	history, err := a.store.GetMessages(ctx, sessionID)
	if err != nil {
		return "", err
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if examCtx := a.examContext(ctx, sess.ExamID); examCtx != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: examCtx,
		})
	}
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: float32(a.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("completing chat: %w", err)
	}

	var answer string
	if len(resp.Choices) > 0 {
		answer = resp.Choices[0].Message.Content
	}

	if _, err := a.store.AddMessage(ctx, Message{SessionID: sessionID, Role: "assistant", Content: answer}); err != nil {
		return "", err
	}
	return answer, nil
}

// examContext summarizes the anchored exam for the model.
func (a *Assistant) examContext(ctx context.Context, examID string) string {
	if examID == "" || a.exams == nil {
		return ""
	}
	detail, err := a.exams.GetDetail(ctx, examID)
	if err != nil || detail == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The student is viewing the %s exam for course %s.\n",
		detail.Exam.ExamDate, detail.Exam.CourseCode)
	if detail.Document != nil {
		fmt.Fprintf(&b, "The exam document has %d pages.\n", detail.Document.PageCount)
	}
	fmt.Fprintf(&b, "There are %d solution documents available.", len(detail.Solutions))
	return b.String()
}
