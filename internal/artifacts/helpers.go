package artifacts

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// SaveJSON marshals v with four-space indentation and stores it under
// (runID, name). It returns the artifact reference.
func SaveJSON(ctx context.Context, s Store, runID, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')
	return s.Put(ctx, runID, name, bytes.NewReader(data))
}

// LoadJSON reads the artifact at (runID, name) and unmarshals it into v.
func LoadJSON(ctx context.Context, s Store, runID, name string, v any) error {
	rc, err := s.Get(ctx, runID, name)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// SaveGob gob-encodes v and stores it under (runID, name). It returns
// the artifact reference.
func SaveGob(ctx context.Context, s Store, runID, name string, v any) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return s.Put(ctx, runID, name, &buf)
}

// LoadGob reads the artifact at (runID, name) and gob-decodes it into v.
func LoadGob(ctx context.Context, s Store, runID, name string, v any) error {
	rc, err := s.Get(ctx, runID, name)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	if err := gob.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
