package scraper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
)

// appsFile is the layout of an APPS_FILE:
//
//	banks:
//	  CBE: com.combanketh.mobilebanking
type appsFile struct {
	Banks map[string]string `yaml:"banks"`
}

// LoadAppIDs returns the default bank mapping extended by the YAML file at
// path. An empty path returns the defaults.
func LoadAppIDs(path string) (review.AppIDs, error) {
	apps := review.DefaultAppIDs()
	if path == "" {
		return apps, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read apps file: %w", err)
	}
	var f appsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse apps file %s: %w", path, err)
	}
	return apps.Merge(review.AppIDs(f.Banks)), nil
}
