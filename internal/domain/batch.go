package domain

import (
	"fmt"
	"strings"
	"time"
)

// Batch (romaneio) is one import of delivery points, usually one carrier manifest.
type Batch struct {
	ID         string
	UploadedAt time.Time
	Points     []DeliveryPoint
}

// ImportedBatch is the raw intake form of a batch.
type ImportedBatch struct {
	BatchID string
	Points  []PointInput
}

// NewBatch validates every record. A single bad record rejects the whole batch.
func NewBatch(in ImportedBatch, uploadedAt time.Time) (Batch, error) {
	id := strings.TrimSpace(in.BatchID)
	if id == "" {
		return Batch{}, Errorf(CodeInvalidArgument, "batch id must not be empty")
	}
	if len(in.Points) == 0 {
		return Batch{}, Errorf(CodeEmptyInput, "batch %q has no points", id)
	}

	seen := make(map[string]struct{}, len(in.Points))
	points := make([]DeliveryPoint, 0, len(in.Points))
	for i, raw := range in.Points {
		p, err := NewDeliveryPoint(id, raw)
		if err != nil {
			return Batch{}, fmt.Errorf("batch %q: record #%d: %w", id, i+1, err)
		}
		if _, ok := seen[p.PackageID]; ok {
			return Batch{}, Errorf(CodeDuplicatePackage, "batch %q: package %q appears twice", id, p.PackageID)
		}
		seen[p.PackageID] = struct{}{}
		points = append(points, p)
	}

	return Batch{ID: id, UploadedAt: uploadedAt, Points: points}, nil
}
