package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ImageRecord describes one image to load: its hash as hex, tag names,
// optional caption, and attribute values by key.
type ImageRecord struct {
	Hash       string              `json:"hash" yaml:"hash"`
	Tags       []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	Caption    *string             `json:"caption,omitempty" yaml:"caption,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ReadImageRecords decodes newline-delimited image records. Blank lines are
// skipped.
func ReadImageRecords(r io.Reader) ([]ImageRecord, error) {
	var out []ImageRecord

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec ImageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadStats counts what Load wrote.
type LoadStats struct {
	Images     int `json:"images"`
	Tags       int `json:"tags"`
	Attributes int `json:"attributes"`
}

// Load writes records through the regular write operations, creating tags
// on first use. Repeated tags or attribute pairs within a record are
// ignored. Loading an image whose hash is already active fails.
func (s *Store) Load(ctx context.Context, records []ImageRecord) (LoadStats, error) {
	var stats LoadStats

	for i, rec := range records {
		hash, err := hex.DecodeString(rec.Hash)
		if err != nil || len(hash) == 0 {
			return stats, fmt.Errorf("record %d: invalid hash %q", i, rec.Hash)
		}

		if _, err := s.AddImage(ctx, hash); err != nil {
			return stats, fmt.Errorf("record %d: %w", i, err)
		}
		stats.Images++

		for _, name := range rec.Tags {
			created, err := s.ensureTag(ctx, name)
			if err != nil {
				return stats, fmt.Errorf("record %d: %w", i, err)
			}
			if created {
				stats.Tags++
			}
			if err := s.TagImage(ctx, hash, name); err != nil && !errors.Is(err, ErrConflict) {
				return stats, fmt.Errorf("record %d: %w", i, err)
			}
		}

		if rec.Caption != nil {
			if err := s.SetCaption(ctx, hash, *rec.Caption); err != nil && !errors.Is(err, ErrConflict) {
				return stats, fmt.Errorf("record %d: %w", i, err)
			}
		}

		keys := make([]string, 0, len(rec.Attributes))
		for k := range rec.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range rec.Attributes[k] {
				err := s.AddAttribute(ctx, hash, k, v, false)
				if errors.Is(err, ErrConflict) {
					continue
				}
				if err != nil {
					return stats, fmt.Errorf("record %d: %w", i, err)
				}
				stats.Attributes++
			}
		}
	}

	return stats, nil
}

// ensureTag makes name an active tag, reporting whether it had to be
// added or reactivated.
func (s *Store) ensureTag(ctx context.Context, name string) (bool, error) {
	tag, err := s.TagByName(ctx, name)
	if err == nil && tag.Active {
		return false, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if _, err := s.AddTag(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}
