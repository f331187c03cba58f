package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// encodeBatch serializes a batch as lz4-framed JSON. The encoding is
// deterministic for a finalized batch, which idempotent re-insertion relies
// on.
func encodeBatch(batch *event.Batch) ([]byte, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch %s: %w", batch.Commit.Hash, err)
	}

	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)

	if _, err := writer.Write(payload); err != nil {
		return nil, fmt.Errorf("compress batch %s: %w", batch.Commit.Hash, err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compress batch %s: %w", batch.Commit.Hash, err)
	}

	return buf.Bytes(), nil
}

func decodeBatch(raw []byte) (*event.Batch, error) {
	reader := lz4.NewReader(bytes.NewReader(raw))

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompress batch: %w", err)
	}

	var batch event.Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	return &batch, nil
}
