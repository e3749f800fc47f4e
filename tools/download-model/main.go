// Build-time tool that downloads the sentiment and part-of-speech ONNX
// models from HuggingFace. Files land in <dest>/<org>_<name>, the layout
// the analysis pipelines resolve models from.
//
// Optional env: SENTIMENT_MODEL, THEME_MODEL (defaults match the CLI)
//
// Usage: go run ./tools/download-model [dest]
//
// Use infrastructure/provider/models as dest to build with -tags embed_model.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"

	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/provider"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/config"
)

func main() {
	dest := config.DefaultModelsDir
	if len(os.Args) > 1 {
		dest = os.Args[1]
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	models := []string{
		envOr("SENTIMENT_MODEL", config.DefaultSentimentModel),
		envOr("THEME_MODEL", config.DefaultThemeModel),
	}
	for _, name := range models {
		if _, err := os.Stat(filepath.Join(dest, provider.ModelDirName(name), "tokenizer.json")); err == nil {
			fmt.Printf("%s already present in %s\n", name, dest)
			continue
		}

		fmt.Printf("Downloading %s to %s...\n", name, dest)
		opts := hugot.NewDownloadOptions()
		opts.OnnxFilePath = "onnx/model.onnx"
		modelPath, err := hugot.DownloadModel(name, dest, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "download %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Model downloaded to %s\n", modelPath)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
