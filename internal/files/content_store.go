// Lute - Music Metadata Aggregation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lute

package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/lute/internal/kv"
	"github.com/tomtom215/lute/internal/logging"
)

// ErrFileNotFound is returned by Get when no content is stored for a name.
var ErrFileNotFound = errors.New("file not found in content store")

const contentKeyPrefix = "file:"

// ContentStore holds crawled page content addressed by FileName.
type ContentStore interface {
	Put(ctx context.Context, name FileName, content []byte) error
	Get(ctx context.Context, name FileName) ([]byte, error)
	ListFiles(ctx context.Context) ([]FileName, error)
}

// FileContentStore implements ContentStore on the keyed store.
type FileContentStore struct {
	store kv.Store
}

// NewFileContentStore creates a content store backed by store.
func NewFileContentStore(store kv.Store) *FileContentStore {
	return &FileContentStore{store: store}
}

func contentKey(name string) string {
	return contentKeyPrefix + name
}

// Put stores content under name, replacing anything already there.
func (s *FileContentStore) Put(ctx context.Context, name FileName, content []byte) error {
	if name.IsZero() {
		return fmt.Errorf("%w: empty", ErrInvalidFileName)
	}
	if err := s.store.Apply(ctx, kv.Set(contentKey(name.String()), content)); err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	logging.Info().Str("file_name", name.String()).Msg("File saved to content store")
	return nil
}

// Get returns the content stored under name or ErrFileNotFound.
func (s *FileContentStore) Get(ctx context.Context, name FileName) ([]byte, error) {
	content, err := s.store.Get(ctx, contentKey(name.String()))
	if errors.Is(err, kv.ErrNotFound) {
		logging.Warn().Str("file_name", name.String()).Msg("File not found in content store")
		return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return content, nil
}

// ListFiles returns every stored name under the listed prefixes. Stored keys
// that do not parse as a FileName are skipped with a warning.
func (s *FileContentStore) ListFiles(ctx context.Context) ([]FileName, error) {
	var names []FileName
	for _, prefix := range ListedPrefixes {
		err := s.store.Scan(ctx, contentKey(prefix), func(key string, _ []byte) error {
			raw := strings.TrimPrefix(key, contentKeyPrefix)
			name, err := ParseFileName(raw)
			if err != nil {
				logging.Warn().Err(err).Str("key", key).Msg("Invalid file name")
				return nil
			}
			names = append(names, name)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
	}
	return names, nil
}
