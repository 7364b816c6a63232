package store

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
)

// codec serializes snapshots as zstd-compressed JSON.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

func (c *codec) encode(snapshot *models.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c *codec) decode(val []byte) (*models.Snapshot, error) {
	raw, err := c.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *codec) close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}

// cloneSnapshot returns a deep copy so callers never share row storage with a store.
func cloneSnapshot(s *models.Snapshot) *models.Snapshot {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Data = make([]models.SnapshotRow, len(s.Data))
	for i, row := range s.Data {
		clone.Data[i] = row
		if row.Impressions != nil {
			v := *row.Impressions
			clone.Data[i].Impressions = &v
		}
		if row.CTR != nil {
			v := *row.CTR
			clone.Data[i].CTR = &v
		}
	}
	return &clone
}

// serializedSize is the JSON length of a snapshot, used for approximate storage usage.
func serializedSize(s *models.Snapshot) int64 {
	raw, err := json.Marshal(s)
	if err != nil {
		return 0
	}
	return int64(len(raw))
}
