// Package gemini wraps the Google GenAI SDK with the function-calling
// message types needed to drive agent conversations.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Roles used in conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Client defines the Gemini API operations used by agents.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is one generateContent call.
type Request struct {
	Model           string
	System          string
	Turns           []Turn
	Functions       []Function
	MaxOutputTokens int32
}

// Turn is one conversational turn. A model turn carries text and calls; a
// user turn carries text or function results.
type Turn struct {
	Role    string
	Text    string
	Calls   []FunctionCall
	Results []FunctionResult
}

// Function declares a callable function.
type Function struct {
	Name        string
	Description string
	Params      []Param
}

// Param is one function parameter.
type Param struct {
	Name        string
	Type        string // string, integer, number, boolean
	Description string
	Required    bool
}

// FunctionCall is a call requested by the model.
type FunctionCall struct {
	ID        string
	Name      string
	Args      map[string]any
	Signature []byte
}

// FunctionResult answers a FunctionCall.
type FunctionResult struct {
	ID       string
	Name     string
	Response map[string]any
}

// Response is the first candidate of a generateContent response.
type Response struct {
	Text         string
	Calls        []FunctionCall
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// Option configures the client.
type Option func(*genai.ClientConfig)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *genai.ClientConfig) {
		c.HTTPOptions.BaseURL = url
	}
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, o := range opts {
		o(cfg)
	}
	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: c}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req Request) (*Response, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Functions) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Functions)}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, toContents(req.Turns), cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}
	return fromResponse(resp), nil
}

func toDeclarations(fns []Function) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(fns))
	for i, f := range fns {
		schema := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		for _, p := range f.Params {
			schema.Properties[p.Name] = &genai.Schema{Type: schemaType(p.Type), Description: p.Description}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out[i] = &genai.FunctionDeclaration{Name: f.Name, Description: f.Description, Parameters: schema}
	}
	return out
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func toContents(turns []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		var parts []*genai.Part
		if t.Text != "" {
			parts = append(parts, genai.NewPartFromText(t.Text))
		}
		for _, fc := range t.Calls {
			p := genai.NewPartFromFunctionCall(fc.Name, fc.Args)
			p.FunctionCall.ID = fc.ID
			p.ThoughtSignature = fc.Signature
			parts = append(parts, p)
		}
		for _, fr := range t.Results {
			p := genai.NewPartFromFunctionResponse(fr.Name, fr.Response)
			p.FunctionResponse.ID = fr.ID
			parts = append(parts, p)
		}
		if len(parts) == 0 {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromParts(parts, role))
	}
	return out
}

func fromResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}

	cand := resp.Candidates[0]
	out.FinishReason = string(cand.FinishReason)
	var texts []string
	for _, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			out.Calls = append(out.Calls, FunctionCall{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Args:      p.FunctionCall.Args,
				Signature: p.ThoughtSignature,
			})
		case p.Text != "" && !p.Thought:
			texts = append(texts, p.Text)
		}
	}
	out.Text = strings.Join(texts, "")
	return out
}
