package search

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/findex/internal/domain/search/source"
)

// resultDTO is the wire/cache shape of a Result. Metadata is carried as a
// raw message and decoded by source type, keeping the union typed in memory.
type resultDTO struct {
	ID            string          `json:"id"`
	Source        source.Source   `json:"source"`
	SourceID      string          `json:"source_id"`
	ContentType   string          `json:"content_type"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Similarity    float64         `json:"similarity"`
	RawSimilarity float64         `json:"raw_similarity"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	Access        AccessLevel     `json:"access"`
	OwnerID       string          `json:"owner_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	dto := resultDTO{
		ID:            r.ID,
		Source:        r.Source,
		SourceID:      r.SourceID,
		ContentType:   r.ContentType,
		Title:         r.Title,
		Description:   r.Description,
		Similarity:    r.Similarity,
		RawSimilarity: r.RawSimilarity,
		Access:        r.Access,
		OwnerID:       r.OwnerID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Metadata != nil {
		raw, err := json.Marshal(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal %s metadata: %w", r.Source, err)
		}
		dto.Metadata = raw
	}
	return json.Marshal(dto)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var dto resultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	*r = Result{
		ID:            dto.ID,
		Source:        dto.Source,
		SourceID:      dto.SourceID,
		ContentType:   dto.ContentType,
		Title:         dto.Title,
		Description:   dto.Description,
		Similarity:    dto.Similarity,
		RawSimilarity: dto.RawSimilarity,
		Access:        dto.Access,
		OwnerID:       dto.OwnerID,
		CreatedAt:     dto.CreatedAt,
		UpdatedAt:     dto.UpdatedAt,
	}
	if len(dto.Metadata) == 0 {
		return nil
	}
	meta, err := decodeMetadata(dto.Source, dto.Metadata)
	if err != nil {
		return err
	}
	r.Metadata = meta
	return nil
}

// DecodeMetadata decodes a raw metadata payload by source type. Unknown
// sources decode to nil without an error.
func DecodeMetadata(src source.Source, raw json.RawMessage) (Metadata, error) {
	return decodeMetadata(src, raw)
}

func decodeMetadata(src source.Source, raw json.RawMessage) (Metadata, error) {
	switch src {
	case source.Receipts:
		var m ReceiptMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal receipt metadata: %w", err)
		}
		return m, nil
	case source.Merchants:
		var m MerchantMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal merchant metadata: %w", err)
		}
		return m, nil
	case source.Categories:
		var m CategoryMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal category metadata: %w", err)
		}
		return m, nil
	case source.Attachments:
		var m AttachmentMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal attachment metadata: %w", err)
		}
		return m, nil
	default:
		// Unknown source: keep the result, drop the payload.
		return nil, nil
	}
}
