//go:build ORT

package provider

import (
	"os"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

// newHugotSession uses ONNX Runtime. ORT_LIB_DIR points at the directory
// holding libonnxruntime; unset, hugot looks in the platform default.
func newHugotSession() (*hugot.Session, error) {
	var opts []options.WithOption
	if dir := os.Getenv("ORT_LIB_DIR"); dir != "" {
		opts = append(opts, options.WithOnnxLibraryPath(dir))
	}
	return hugot.NewORTSession(opts...)
}
