package llm

import (
	"context"
	"fmt"
	"strings"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// Classifier labels pages with a vision model.
type Classifier struct {
	client *Client
}

// NewClassifier wraps client for page classification.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

type classificationPayload struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	Mood        string `json:"mood"`
}

// Classify sends the page image to the model. Malformed or unknown labels are
// reported as ErrClassification so the caller can treat the page as meta.
func (c *Classifier) Classify(ctx context.Context, page recap.Page) (recap.Classification, error) {
	var empty recap.Classification
	op := fmt.Sprintf("page %d", page.Index)
	image, err := ImageDataURL(page.ImageRef)
	if err != nil {
		return empty, services.Wrap(services.ErrClassification, "classify", op, "load image", err)
	}
	content, err := c.client.CompleteVisionJSON(ctx, ClassificationPrompt, fmt.Sprintf("Page index %d.", page.Index), image)
	if err != nil {
		return empty, services.Wrap(services.ErrClassification, "classify", op, "request", err)
	}
	return ParseClassification(content)
}

// ParseClassification validates a classifier JSON payload.
func ParseClassification(content string) (recap.Classification, error) {
	var payload classificationPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return recap.Classification{}, services.Wrap(services.ErrClassification, "classify", "parse", "decode payload", err)
	}
	label, ok := recap.ParseLabel(payload.Label)
	if !ok {
		return recap.Classification{}, services.Wrap(services.ErrClassification, "classify", "parse", fmt.Sprintf("unknown label %q", payload.Label), nil)
	}
	out := recap.Classification{
		Label: label,
		Mood:  strings.ToLower(strings.TrimSpace(payload.Mood)),
	}
	if label == recap.LabelContent {
		out.Description = strings.TrimSpace(payload.Description)
		if out.Description == "" {
			return recap.Classification{}, services.Wrap(services.ErrClassification, "classify", "parse", "content page without description", nil)
		}
	}
	return out, nil
}
