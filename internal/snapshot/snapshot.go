package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Framework identifies the development framework a project was built with.
type Framework string

const (
	FrameworkFoundry Framework = "foundry"
	FrameworkHardhat Framework = "hardhat"
	FrameworkTruffle Framework = "truffle"
	FrameworkRemix   Framework = "remix"
	FrameworkUnknown Framework = "unknown"
)

// Snapshot is an immutable, read-only view of a project version: its source
// files, compiler metadata and detected framework. The pipeline never mutates it.
type Snapshot struct {
	Root            string
	Commit          string
	Files           []string
	Framework       Framework
	CompilerVersion string
}

// Provider materializes a project snapshot for the orchestrator.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// LocalProvider builds a snapshot from an existing directory on disk.
type LocalProvider struct {
	Path string
}

func (p *LocalProvider) Snapshot(ctx context.Context) (*Snapshot, error) {
	info, err := os.Stat(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat project path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %q is not a directory", p.Path)
	}
	return buildSnapshot(p.Path, "")
}

func buildSnapshot(root, commit string) (*Snapshot, error) {
	files, err := collectSources(root)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Root:      root,
		Commit:    commit,
		Files:     files,
		Framework: DetectFramework(root),
	}
	snap.CompilerVersion = detectCompilerVersion(root, files)
	return snap, nil
}

// collectSources returns the sorted Solidity source files relative to root,
// skipping dependency and build directories.
func collectSources(root string) ([]string, error) {
	skipDirs := map[string]struct{}{
		"node_modules": {}, "lib": {}, "out": {}, "cache": {},
		"artifacts": {}, ".git": {},
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".sol") {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project sources: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// DetectFramework inspects marker files to classify the project layout.
func DetectFramework(root string) Framework {
	markers := []struct {
		file      string
		framework Framework
	}{
		{"foundry.toml", FrameworkFoundry},
		{"hardhat.config.js", FrameworkHardhat},
		{"hardhat.config.ts", FrameworkHardhat},
		{"truffle-config.js", FrameworkTruffle},
		{"truffle.js", FrameworkTruffle},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(root, m.file)); err == nil {
			return m.framework
		}
	}
	return FrameworkUnknown
}

var pragmaRe = regexp.MustCompile(`pragma\s+solidity\s+[\^>=<~]*\s*([0-9]+\.[0-9]+\.[0-9]+)`)

// detectCompilerVersion scans sources for the first solidity pragma.
func detectCompilerVersion(root string, files []string) string {
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			continue
		}
		if m := pragmaRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return ""
}

var addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsContractAddress reports whether s looks like an Ethereum contract address.
func IsContractAddress(s string) bool {
	return addressRe.MatchString(s)
}
