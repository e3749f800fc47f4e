package provider

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
)

// ortSingleton holds the process-wide hugot session. ORT only allows one
// active session per process, so the sentiment and tagging pipelines share
// it. The mutex serializes initialization and inference.
var ortSingleton struct {
	session *hugot.Session
	mu      sync.Mutex
}

// sessionLocked returns the shared session, creating it on first use.
// The caller must hold ortSingleton.mu.
func sessionLocked() (*hugot.Session, error) {
	if ortSingleton.session != nil {
		return ortSingleton.session, nil
	}
	session, err := newHugotSession()
	if err != nil {
		return nil, fmt.Errorf("create hugot session: %w", err)
	}
	ortSingleton.session = session
	return session, nil
}

// Shutdown destroys the shared session. Pipelines created before the call
// must not be used afterwards.
func Shutdown() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.session == nil {
		return nil
	}
	err := ortSingleton.session.Destroy()
	ortSingleton.session = nil
	return err
}

// ModelDirName is the directory a downloaded model is stored under:
// "org/name" becomes "org_name".
func ModelDirName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// Models resolves model names to directories containing tokenizer.json.
//
// A model can come from three places, checked in order:
//  1. name itself, when it is a model directory.
//  2. <dir>/<ModelDirName(name)>, as written by tools/download-model.
//  3. The binary, when built with the embed_model tag. The files are
//     extracted to dir on first use.
type Models struct {
	dir string
}

// NewModels creates a resolver rooted at dir.
func NewModels(dir string) Models {
	return Models{dir: dir}
}

// Dir returns the models directory.
func (m Models) Dir() string { return m.dir }

// Available reports whether name can be resolved without error.
func (m Models) Available(name string) bool {
	if _, err := m.diskPath(name); err == nil {
		return true
	}
	return hasEmbeddedModel && embeddedHas(embeddedModelFS, ModelDirName(name))
}

// Path returns the directory holding the model files for name.
func (m Models) Path(name string) (string, error) {
	if p, err := m.diskPath(name); err == nil {
		return p, nil
	}
	sub := ModelDirName(name)
	if !hasEmbeddedModel || !embeddedHas(embeddedModelFS, sub) {
		return "", fmt.Errorf("%w: %s not found in %s", ErrModelUnavailable, name, m.dir)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}
	return extractEmbeddedModel(embeddedModelFS, sub, m.dir)
}

func (m Models) diskPath(name string) (string, error) {
	for _, candidate := range []string{name, filepath.Join(m.dir, ModelDirName(name))} {
		if isModelDir(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelUnavailable, name)
}

func isModelDir(dir string) bool {
	if dir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(dir, "tokenizer.json"))
	return err == nil
}

func embeddedHas(embedded fs.FS, sub string) bool {
	_, err := fs.Stat(embedded, filepath.ToSlash(filepath.Join("models", sub, "tokenizer.json")))
	return err == nil
}

// extractEmbeddedModel writes models/<sub> from embedded to targetDir/<sub>
// and returns that path. Files already extracted are reused.
func extractEmbeddedModel(embedded fs.FS, sub, targetDir string) (string, error) {
	modelPath := filepath.Join(targetDir, sub)
	if isModelDir(modelPath) {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(embedded, "models/"+sub)
	if err != nil {
		return "", fmt.Errorf("access embedded model %s: %w", sub, err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}
	return modelPath, nil
}
