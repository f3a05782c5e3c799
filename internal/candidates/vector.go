package candidates

import (
	"context"
	"math"

	"github.com/aydinemre/menubot-backend/internal/catalog"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// GenAIVectorProvider computes embedding similarities through the Gemini
// embedding API. Query and item names go out in a single batch call.
type GenAIVectorProvider struct {
	client *genai.Client
	model  string
}

// NewGenAIVectorProvider builds the provider from an existing client.
func NewGenAIVectorProvider(client *genai.Client, model string) (*GenAIVectorProvider, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "candidates: genai client is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GenAIVectorProvider{client: client, model: model}, nil
}

// Similarities embeds the query text and every item name, then returns the
// cosine similarity per item ID.
func (p *GenAIVectorProvider) Similarities(ctx context.Context, text string, items []catalog.Item) (map[uuid.UUID]float64, error) {
	if len(items) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(items)+1)
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	for _, item := range items {
		contents = append(contents, genai.NewContentFromText(item.Name, genai.RoleUser))
	}

	result, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "candidates: embed batch")
	}
	if len(result.Embeddings) != len(items)+1 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "candidates: embedding count mismatch")
	}

	query := result.Embeddings[0].Values
	sims := make(map[uuid.UUID]float64, len(items))
	for i, item := range items {
		sims[item.ID] = cosine(query, result.Embeddings[i+1].Values)
	}
	return sims, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
