// Package gemini wraps the Google Gemini text and vision models used by the assistant.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	describeImagePrompt = "Describe this image."
	summarizePrompt     = "Summarize this text: "
)

// ErrEmptyResponse is returned when the model answers without any text part.
var ErrEmptyResponse = errors.New("gemini: empty response")

type generateFunc func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Client issues one-shot generation requests.
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
	generate    generateFunc
}

func NewClient(ctx context.Context, apiKey, textModel, visionModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	c := &Client{client: gc, textModel: textModel, visionModel: visionModel}
	c.generate = func(ctx context.Context, modelName string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		return gc.GenerativeModel(modelName).GenerateContent(ctx, parts...)
	}
	return c, nil
}

func (c *Client) Close() {
	if c.client == nil {
		return
	}
	if err := c.client.Close(); err != nil {
		log.Printf("[warn] close genai client: %v", err)
	}
}

// GenerateReply answers free text with the text model.
func (c *Client) GenerateReply(ctx context.Context, text string) (string, error) {
	resp, err := c.generate(ctx, c.textModel, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return responseText(resp)
}

// DescribeImage captions the image stored at path with the vision model.
func (c *Client) DescribeImage(ctx context.Context, path string) (string, error) {
	format, err := imageFormat(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	resp, err := c.generate(ctx, c.visionModel, genai.Text(describeImagePrompt), genai.ImageData(format, data))
	if err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	return responseText(resp)
}

func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := c.generate(ctx, c.textModel, genai.Text(summarizePrompt+text))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return responseText(resp)
}

func imageFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".png":
		return "png", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", filepath.Ext(path))
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
