// Package rank scores and orders merged search results through a
// multiplicative boost pipeline.
package rank

import "github.com/kailas-cloud/findex/internal/domain/search/source"

// DefaultSourceWeight applies to sources missing from the weight table.
const DefaultSourceWeight = 0.7

// DefaultContentWeight applies to content types missing from the table.
const DefaultContentWeight = 1.0

// defaultSourceWeights mirrors the historical per-source content quality:
// categories are curated, merchant profiles are reviewed, receipts are
// user-entered, attachments are OCR output.
func defaultSourceWeights() map[source.Source]float64 {
	return map[source.Source]float64{
		source.Receipts:    0.90,
		source.Merchants:   0.95,
		source.Categories:  1.00,
		source.Attachments: 0.50,
	}
}

func defaultContentWeights() map[string]float64 {
	return map[string]float64{
		"receipt":          1.00,
		"merchant_profile": 1.05,
		"category":         1.10,
		"attachment":       0.85,
		"attachment_ocr":   0.75,
	}
}

func (e *Engine) sourceWeight(ctx Context, s source.Source) float64 {
	if w, ok := ctx.SourceWeights[s]; ok {
		return w
	}
	if w, ok := e.sourceWeights[s]; ok {
		return w
	}
	return DefaultSourceWeight
}

func (e *Engine) contentWeight(ctx Context, contentType string) float64 {
	if w, ok := ctx.ContentWeights[contentType]; ok {
		return w
	}
	if w, ok := e.contentWeights[contentType]; ok {
		return w
	}
	return DefaultContentWeight
}
