// Copyright 2026 The JIT Access Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource loads policy documents from local files, keyed by
// environment name through a locator map (RESOURCE_ENVIRONMENT_<name>
// in spec §6).
type FileSource struct {
	locators map[string]string
}

// NewFileSource builds a FileSource from an environment name -> file
// path map.
func NewFileSource(locators map[string]string) *FileSource {
	return &FileSource{locators: locators}
}

func (f *FileSource) Load(_ context.Context, name string) (string, string, time.Time, error) {
	path, ok := f.locators[name]
	if !ok {
		return "", "", time.Time{}, fmt.Errorf("no source configured for environment %q", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), path, info.ModTime(), nil
}
