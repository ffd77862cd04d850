// Package loader turns script files into source a runtime can evaluate.
// TypeScript and ES modules go through esbuild; plain scripts pass through.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Load reads path and returns an evaluable classic script.
func Load(path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	src := string(source)

	if needsBundling(src) {
		return bundle(path)
	}
	if isTypeScript(path) || strings.Contains(src, "export ") {
		return Transform(src, loaderFor(path))
	}
	return src, nil
}

// Transform compiles a single source to an IIFE script without resolving
// imports.
func Transform(src string, loader esbuild.Loader) (string, error) {
	result := esbuild.Transform(src, esbuild.TransformOptions{
		Loader: loader,
		Format: esbuild.FormatIIFE,
		Target: esbuild.ES2022,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("transforming script: %s", messages(result.Errors))
	}
	return string(result.Code), nil
}

// bundle resolves every import of the entry point into one script.
func bundle(entryPoint string) (string, error) {
	abs, err := filepath.Abs(entryPoint)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", entryPoint, err)
	}
	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{abs},
		AbsWorkingDir: filepath.Dir(abs),
		Bundle:        true,
		Format:        esbuild.FormatIIFE,
		Write:         false,
		Platform:      esbuild.PlatformNeutral,
		Target:        esbuild.ES2022,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("bundling %s: %s", entryPoint, messages(result.Errors))
	}
	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling produced no output")
	}
	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling checks if a script contains import statements.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "require(")
}

func isTypeScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return true
	}
	return false
}

func loaderFor(path string) esbuild.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return esbuild.LoaderTS
	case ".tsx":
		return esbuild.LoaderTSX
	case ".jsx":
		return esbuild.LoaderJSX
	default:
		return esbuild.LoaderJS
	}
}

func messages(msgs []esbuild.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d: %s", m.Location.File, m.Location.Line, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "; ")
}
