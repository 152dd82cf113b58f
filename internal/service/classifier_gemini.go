package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-1.5-flash"

const classifyPrompt = `You are an echocardiography education specialist.
Given the exam question below, suggest its metadata as a JSON object with
these string fields (use "" when unsure):
  exam_category: e.g. "TEE", "TTE", "Doppler", "Advanced"
  exam_type: e.g. "Basic", "Advanced"
  modality: e.g. "2D", "Color Doppler", "CW Doppler", "PW Doppler", "M-mode"
  echo_view: e.g. "ME 4-chamber", "TG mid-papillary short axis"
  image_type: "still" or "cine"
Respond with ONLY the JSON object.

Question:
---
%s
---
`

// GeminiClassifier suggests metadata via the Gemini API. When no API key
// is configured the client stays nil and Classify falls back to the
// keyword heuristics, so the endpoint keeps working.
type GeminiClassifier struct {
	model    *genai.GenerativeModel
	fallback *KeywordClassifier
	log      zerolog.Logger
}

// NewGeminiClassifier creates a GeminiClassifier. An empty apiKey is not
// an error; it produces a degraded classifier.
func NewGeminiClassifier(ctx context.Context, apiKey string, log zerolog.Logger) (*GeminiClassifier, error) {
	g := &GeminiClassifier{fallback: NewKeywordClassifier(), log: log}
	if apiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, classifier degrades to keyword heuristics")
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.model = client.GenerativeModel(geminiModel)
	return g, nil
}

// Classify sends the question text to Gemini and parses the JSON reply.
// Any remote failure degrades to the keyword classifier.
func (g *GeminiClassifier) Classify(ctx context.Context, questionText string) (Metadata, error) {
	if g.model == nil {
		return g.fallback.Classify(ctx, questionText)
	}

	prompt := fmt.Sprintf(classifyPrompt, questionText)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.log.Warn().Err(err).Msg("Gemini classify failed, using keyword fallback")
		return g.fallback.Classify(ctx, questionText)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return g.fallback.Classify(ctx, questionText)
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		}
	}

	m, err := parseMetadataReply(reply.String())
	if err != nil {
		g.log.Warn().Err(err).Msg("Gemini reply unparseable, using keyword fallback")
		return g.fallback.Classify(ctx, questionText)
	}
	return m, nil
}

// parseMetadataReply extracts the JSON object from a model reply that may
// be wrapped in markdown fencing.
func parseMetadataReply(reply string) (Metadata, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return Metadata{}, fmt.Errorf("no JSON object in reply")
	}
	var m Metadata
	if err := json.Unmarshal([]byte(reply[start:end+1]), &m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
