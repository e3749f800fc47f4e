//go:build embed_model

package provider

import "embed"

// Models downloaded by tools/download-model into models/.
//
//go:embed all:models
var embeddedModelFS embed.FS

const hasEmbeddedModel = true
