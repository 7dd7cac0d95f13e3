package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/parser"
)

// entityDoc is the YAML shape of an entity
type entityDoc struct {
	ID          string         `yaml:"id"`
	Type        string         `yaml:"type"`
	Title       string         `yaml:"title"`
	Attributes  map[string]any `yaml:"attributes,omitempty"`
	Screenshots []string       `yaml:"screenshots,omitempty"`
	Deleted     bool           `yaml:"deleted,omitempty"`
}

var entitiesCmd = &cobra.Command{
	Use:   "entities <session-id>",
	Short: "List the entities extracted from a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		all, _ := cmd.Flags().GetBool("all")
		entities, err := a.backend.ListEntities(cmd.Context(), args[0], all)
		if err != nil {
			return err
		}

		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			return writeEntitiesYAML(entities)
		}

		if len(entities) == 0 {
			fmt.Println("No entities yet.")
			return nil
		}
		for _, e := range entities {
			marker := " "
			if e.Deleted() {
				marker = "✗"
			}
			fmt.Printf("%s %-36s  %-14s  %s\n", marker, e.ID, parser.Truncate(e.TypeName(), 14), e.Title)
			if attrs := formatAttributes(e.Attributes); attrs != "" {
				fmt.Printf("  %s\n", parser.Truncate(attrs, 120))
			}
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <entity-id>",
	Short: "Remove an entity from its session",
	Long:  "Remove an entity. The row is kept for traceability and shows up with 'relay entities --all'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.backend.SoftDeleteEntity(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("error removing entity: %w", err)
		}
		fmt.Printf("Removed entity %s\n", args[0])
		return nil
	},
}

func writeEntitiesYAML(entities []models.ExtractedInfo) error {
	docs := make([]entityDoc, len(entities))
	for i, e := range entities {
		docs[i] = entityDoc{
			ID:          e.ID,
			Type:        e.TypeName(),
			Title:       e.Title,
			Attributes:  e.Attributes,
			Screenshots: e.ScreenshotIDs,
			Deleted:     e.Deleted(),
		}
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	return enc.Close()
}

// formatAttributes renders attributes as "key: value" pairs in key order
func formatAttributes(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, attrs[k]))
	}
	return strings.Join(parts, " · ")
}

func init() {
	entitiesCmd.Flags().BoolP("all", "a", false, "Include removed entities")
	entitiesCmd.Flags().Bool("yaml", false, "Print as YAML")
}
