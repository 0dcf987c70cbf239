package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/desktop-automation/database"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/storage"
)

var importConfigFile string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import scenarios from a JSON file",
	Long:  `Imports scenario definitions from a JSON file. Hint image paths are resolved relative to the file and uploaded to artifact storage.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importConfigFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(importCmd)
}

// scenarioImport is one entry of the import file.
type scenarioImport struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	HintImages  []string `json:"hint_images,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := LoadConfig(importConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var entries []scenarioImport
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	baseDir := filepath.Dir(args[0])
	limits := hintimage.DefaultValidationLimits()

	for _, entry := range entries {
		sc := &scenario.Scenario{
			Title:       entry.Title,
			Description: entry.Description,
			Status:      scenario.StatusPending,
		}
		if err := a.store.Create(ctx, sc); err != nil {
			return fmt.Errorf("failed to create scenario %q: %w", entry.Title, err)
		}

		hints, refs, err := loadHintFiles(baseDir, sc, entry.HintImages)
		if err != nil {
			return err
		}
		if len(hints) == 0 {
			fmt.Printf("imported %s (%s)\n", sc.Title, sc.ID)
			continue
		}

		if err := hintimage.ValidateSet(hints, limits); err != nil {
			return fmt.Errorf("scenario %q: %w", entry.Title, err)
		}
		for i, hint := range hints {
			if err := a.blobs.Upload(ctx, refs[i].Path, bytes.NewReader(hint.Data)); err != nil {
				return fmt.Errorf("failed to upload hint image %s: %w", hint.FileName, err)
			}
		}
		if err := a.store.Update(ctx, sc.ID, scenario.SetHintImages(refs)); err != nil {
			return fmt.Errorf("failed to attach hint images to %q: %w", entry.Title, err)
		}
		fmt.Printf("imported %s (%s) with %d hint images\n", sc.Title, sc.ID, len(hints))
	}
	return nil
}

func loadHintFiles(baseDir string, sc *scenario.Scenario, paths []string) ([]hintimage.HintImage, scenario.HintImageRefs, error) {
	var hints []hintimage.HintImage
	var refs scenario.HintImageRefs

	for i, rel := range paths {
		full := rel
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, rel)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read hint image %s: %w", rel, err)
		}

		name := filepath.Base(full)
		mimeType := mimeTypeForHintFile(name)
		hints = append(hints, hintimage.HintImage{
			Index:    i,
			FileName: name,
			MIMEType: mimeType,
			Data:     data,
		})
		refs = append(refs, scenario.HintImageRef{
			Position: i,
			FileName: name,
			MIMEType: mimeType,
			Path:     storage.HintImageKey(sc.ID.String(), i, name),
		})
	}
	return hints, refs, nil
}

func mimeTypeForHintFile(name string) string {
	switch filepath.Ext(name) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
