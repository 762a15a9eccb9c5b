package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

func NewOpenAIClient(apiKey, model, embeddingModel, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	em := openai.SmallEmbedding3
	if embeddingModel != "" {
		em = openai.EmbeddingModel(embeddingModel)
	}
	return &OpenAIClient{
		client:         openai.NewClientWithConfig(config),
		model:          model,
		embeddingModel: em,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no response choices")
}

// GenerateWithCertainty asks for token logprobs and reports the geometric
// mean token probability. Backends that ignore logprobs report 0.
func (c *OpenAIClient) GenerateWithCertainty(ctx context.Context, prompt string) (Generation, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, true))
	if err != nil {
		return Generation{}, err
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("no response choices")
	}
	choice := resp.Choices[0]
	gen := Generation{Text: choice.Message.Content}
	if choice.LogProbs != nil {
		gen.Certainty = meanProbability(choice.LogProbs.Content)
	}
	return gen, nil
}

func (c *OpenAIClient) request(prompt string, logprobs bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		LogProbs:    logprobs,
	}
}

func meanProbability(tokens []openai.LogProb) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		sum += t.LogProb
	}
	return math.Exp(sum / float64(len(tokens)))
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embeddingModel,
	}
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) > 0 {
		return resp.Data[0].Embedding, nil
	}
	return nil, fmt.Errorf("no embedding data")
}
