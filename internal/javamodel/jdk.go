package javamodel

import (
	"embed"
	"fmt"
	"io/fs"
)

// jdkSources holds declaration-only stubs of the JDK types user code most
// often returns from getters. They form the library part of ScopeAll.
//
//go:embed jdk/*.java
var jdkSources embed.FS

func (w *Workspace) loadJDK() error {
	paths, err := fs.Glob(jdkSources, "jdk/*.java")
	if err != nil {
		return fmt.Errorf("listing jdk stubs: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, path := range paths {
		content, err := jdkSources.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading jdk stub %s: %w", path, err)
		}
		result, err := w.parser.Parse(path, content)
		if err != nil {
			return fmt.Errorf("parsing jdk stub %s: %w", path, err)
		}
		w.addLocked(result, true)
	}
	return nil
}
