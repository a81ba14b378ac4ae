// Package gemini asks a Gemini model for suggested amounts through the
// google.golang.org/genai SDK, either with an API key or on Vertex AI.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"zenbank/internal/suggest"
)

const DefaultModel = "gemini-2.5-flash"

// Config selects the backend. APIKey wins over Project/Location.
type Config struct {
	APIKey   string
	Project  string
	Location string
	Model    string
}

// generator is the part of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models generator
	model  string
}

var _ suggest.Recommender = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		cc.APIKey = cfg.APIKey
		cc.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		cc.Project = cfg.Project
		cc.Location = cfg.Location
		cc.Backend = genai.BackendVertexAI
	default:
		return nil, errors.New("gemini: either an API key or project and location must be set")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newWithGenerator(client.Models, cfg.Model), nil
}

func newWithGenerator(g generator, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: g, model: model}
}

// RecommendAmounts sends the rendered prompt and parses the JSON answer.
func (c *Client) RecommendAmounts(ctx context.Context, req suggest.Request) ([]float64, error) {
	p := suggest.BuildPrompt(req)

	temp := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   256,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"recommendedAmounts": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeNumber},
				},
			},
			Required: []string{"recommendedAmounts"},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(p.User, genai.RoleUser)}

	res, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return nil, errors.New("gemini returned empty text")
	}
	return suggest.ParseAmounts(text)
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string {
	return "gemini/" + c.model
}
