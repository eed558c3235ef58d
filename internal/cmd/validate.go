package cmd

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/adjust/file-cache/internal/config"
)

//go:embed schemas/manifest.schema.json
var manifestSchemaFS embed.FS

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a caches.yaml manifest",
	Long: `Validates the caches.yaml manifest against its JSON Schema and then
applies defaults and per-cache semantic validation, without starting
anything.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "caches.yaml", "path to the cache manifest")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(validateConfigPath); os.IsNotExist(err) {
		return fmt.Errorf("%s not found", validateConfigPath)
	}

	fmt.Printf("🔍 Validating %s...\n", validateConfigPath)

	yamlBytes, err := os.ReadFile(validateConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", validateConfigPath, err)
	}

	var doc any
	if err := yaml.Unmarshal(yamlBytes, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", validateConfigPath, err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", validateConfigPath, err)
	}

	schemaBytes, err := manifestSchemaFS.ReadFile("schemas/manifest.schema.json")
	if err != nil {
		return fmt.Errorf("failed to load manifest schema: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		fmt.Println("\n❌ Validation failed with the following errors:")
		for i, desc := range result.Errors() {
			fmt.Printf("%d. %s\n", i+1, desc.String())
		}
		return fmt.Errorf("validation failed with %d error(s)", len(result.Errors()))
	}

	// Schema-valid does not imply semantically startable: durations must
	// parse (checked by LoadManifest) and cache names must be unique
	// (checked by the loop below).
	manifest, err := config.LoadManifest(validateConfigPath)
	if err != nil {
		fmt.Println("\n⚠️  Schema valid but semantic check failed:")
		return err
	}

	seen := make(map[string]bool, len(manifest.Caches))
	for _, c := range manifest.Caches {
		if seen[c.Cache] {
			return fmt.Errorf("duplicate cache name %q", c.Cache)
		}
		seen[c.Cache] = true
	}

	fmt.Printf("✅ %s is valid (%d cache(s))\n", validateConfigPath, len(manifest.Caches))
	return nil
}
