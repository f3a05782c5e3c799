package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/enums"
	pkgerrors "github.com/aydinemre/menubot-backend/pkg/errors"
	"github.com/aydinemre/menubot-backend/pkg/types"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Client turns one inbound message plus its candidate set into a typed
// extraction result. Any returned error means the interpretation failed and
// the conversation should route to an agent.
type Client interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}

const systemPrompt = `Sen bir restoranin WhatsApp siparis asistanisin.
Musterinin mesajini, verilen aday urun listesine gore yapilandirilmis siparis
aksiyonlarina cevir. Kurallar:
- Sadece aday listesindeki menuItemId degerlerini kullan.
- "X olmasin" / "X istemiyorum" gibi cikarma ifadelerini secenek olarak degil,
  urunun notes alanina yaz.
- Teslimatla ilgili genel notlari orderNotes alanina yaz, urune baglama.
- Emin olamadigin durumda clarificationQuestion sor ve confidence degerini
  dusuk tut.`

// GeminiClient implements Client over the Gemini structured-output API.
type GeminiClient struct {
	client *genai.Client
	cfg    config.ExtractionConfig
}

// NewGeminiClient wires the completion client. A nil genai client is allowed
// and yields an unconfigured extractor that always errors, which the state
// machine maps to an agent handoff.
func NewGeminiClient(client *genai.Client, cfg config.ExtractionConfig) *GeminiClient {
	return &GeminiClient{client: client, cfg: cfg}
}

// wire types mirror the JSON schema sent to the model.
type wireResult struct {
	Items                 []wireItem `json:"items"`
	Confidence            float64    `json:"confidence"`
	ClarificationQuestion string     `json:"clarificationQuestion"`
	OrderNotes            string     `json:"orderNotes"`
}

type wireItem struct {
	MenuItemID       string       `json:"menuItemId"`
	Qty              int          `json:"qty"`
	Action           string       `json:"action"`
	OptionSelections []wireOption `json:"optionSelections"`
	Extras           []string     `json:"extras"`
	Notes            string       `json:"notes"`
	ItemConfidence   float64      `json:"itemConfidence"`
}

type wireOption struct {
	GroupName  string `json:"groupName"`
	OptionName string `json:"optionName"`
	PriceDelta int    `json:"priceDelta"`
}

// Extract calls the model with a JSON response schema and validates the
// reply against the candidate set.
func (c *GeminiClient) Extract(ctx context.Context, req Request) (*Result, error) {
	if c == nil || c.client == nil || !c.cfg.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeExtraction, "extraction: service not configured")
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	prompt := buildPrompt(req)
	resp, err := c.client.Models.GenerateContent(ctx,
		c.cfg.Model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.1),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    resultSchema(),
		},
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExtraction, err, "extraction: completion call failed")
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeExtraction, "extraction: empty completion")
	}

	result, err := parseResult(raw)
	if err != nil {
		return nil, err
	}

	allowed := make(map[uuid.UUID]bool, len(req.Candidates))
	for _, candidate := range req.Candidates {
		allowed[candidate.Item.ID] = true
	}
	result.Sanitize(allowed)
	return result, nil
}

func parseResult(raw string) (*Result, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExtraction, err, "extraction: malformed completion JSON")
	}

	result := &Result{
		Confidence:            wire.Confidence,
		ClarificationQuestion: strings.TrimSpace(wire.ClarificationQuestion),
		OrderNotes:            strings.TrimSpace(wire.OrderNotes),
	}
	for _, item := range wire.Items {
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			continue
		}
		options := make(types.OptionSelections, 0, len(item.OptionSelections))
		for _, option := range item.OptionSelections {
			options = append(options, types.OptionSelection{
				GroupName:  option.GroupName,
				OptionName: option.OptionName,
				PriceDelta: option.PriceDelta,
			})
		}
		result.Items = append(result.Items, Item{
			MenuItemID:     id,
			Qty:            item.Qty,
			Action:         enums.IntentAction(strings.ToLower(strings.TrimSpace(item.Action))),
			Options:        options,
			Extras:         item.Extras,
			Notes:          strings.TrimSpace(item.Notes),
			ItemConfidence: item.ItemConfidence,
		})
	}
	return result, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("ADAY URUNLER:\n")
	for _, candidate := range req.Candidates {
		item := candidate.Item
		fmt.Fprintf(&b, "- id=%s | %s | %s | %s\n",
			item.ID, item.Name, item.CategoryName, catalog.FormatKurus(item.BasePriceKurus))
		if req.Snapshot != nil {
			for _, group := range req.Snapshot.GroupsFor(&item) {
				names := make([]string, 0, len(group.Options))
				for _, option := range group.Options {
					names = append(names, option.Name)
				}
				fmt.Fprintf(&b, "  secenek grubu %q: %s\n", group.Name, strings.Join(names, ", "))
			}
		}
	}

	if len(req.History) > 0 {
		b.WriteString("\nSON KONUSMA:\n")
		for _, turn := range req.History {
			role := "asistan"
			if turn.Inbound {
				role = "musteri"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, turn.Text)
		}
	}

	if req.DraftSummary != "" {
		b.WriteString("\nMEVCUT SIPARIS TASLAGI:\n")
		b.WriteString(req.DraftSummary)
		b.WriteString("\n")
	}

	if len(req.Hints) > 0 {
		b.WriteString("\nMUSTERI TERCIHLERI:\n")
		for _, hint := range req.Hints {
			fmt.Fprintf(&b, "- %s\n", hint)
		}
	}

	b.WriteString("\nMUSTERI MESAJI:\n")
	b.WriteString(req.Text)
	return b.String()
}

func resultSchema() *genai.Schema {
	optionSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"groupName":  {Type: genai.TypeString},
			"optionName": {Type: genai.TypeString},
			"priceDelta": {Type: genai.TypeInteger},
		},
		Required: []string{"groupName", "optionName"},
	}
	itemSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"menuItemId":       {Type: genai.TypeString},
			"qty":              {Type: genai.TypeInteger},
			"action":           {Type: genai.TypeString, Enum: []string{"add", "remove", "keep"}},
			"optionSelections": {Type: genai.TypeArray, Items: optionSchema},
			"extras":           {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"notes":            {Type: genai.TypeString},
			"itemConfidence":   {Type: genai.TypeNumber},
		},
		Required: []string{"menuItemId", "qty", "action", "itemConfidence"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items":                 {Type: genai.TypeArray, Items: itemSchema},
			"confidence":            {Type: genai.TypeNumber},
			"clarificationQuestion": {Type: genai.TypeString},
			"orderNotes":            {Type: genai.TypeString},
		},
		Required: []string{"items", "confidence"},
	}
}
