package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process <folder-path> [folder-path...]",
	Short: "Ingest photo folders and run the processing pipeline",
	Long: `Ingest all images from one or more folders, then run a full processing
pass: vision analysis, face clustering, identity reconciliation, and
person thumbnail generation.

Already-ingested files (matched by their source-relative name) are skipped,
so re-running on the same folder is safe.

Example:
  photonest process /path/to/photos
  photonest process -r /path/to/library  # recursive`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().BoolP("recursive", "r", false, "Search for photos recursively in subdirectories")
	processCmd.Flags().Bool("skip-run", false, "Only ingest; do not start a processing run")
}

func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".bmp":  true,
		".tif":  true,
		".tiff": true,
		".webp": true,
	}
	return supported[ext]
}

func collectImageFiles(folderPaths []string, recursive bool) ([]string, error) {
	var filePaths []string
	for _, folderPath := range folderPaths {
		info, err := os.Stat(folderPath)
		if err != nil {
			return nil, fmt.Errorf("cannot access folder %s: %w", folderPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", folderPath)
		}

		if recursive {
			err := filepath.WalkDir(folderPath, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(d.Name()) {
					filePaths = append(filePaths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("cannot walk folder %s: %w", folderPath, err)
			}
		} else {
			entries, err := os.ReadDir(folderPath)
			if err != nil {
				return nil, fmt.Errorf("cannot read folder %s: %w", folderPath, err)
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if isImageFile(entry.Name()) {
					filePaths = append(filePaths, filepath.Join(folderPath, entry.Name()))
				}
			}
		}
	}
	return filePaths, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	skipRun, _ := cmd.Flags().GetBool("skip-run")

	filePaths, err := collectImageFiles(args, recursive)
	if err != nil {
		return err
	}
	if len(filePaths) == 0 {
		fmt.Println("No image files found in the specified folders.")
		return nil
	}
	fmt.Printf("Found %d image(s) in %d folder(s)\n", len(filePaths), len(args))

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ingestBar := progressbar.NewOptions(len(filePaths),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	ingested, skipped := 0, 0
	var ingestErrors []string
	for _, filePath := range filePaths {
		fileName := filepath.Base(filePath)

		file, err := os.Open(filePath)
		if err != nil {
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fileName, err))
			ingestBar.Add(1)
			continue
		}
		_, isNew, err := a.ingestor.IngestIfNew(fileName, file)
		file.Close()
		if err != nil {
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fileName, err))
			ingestBar.Add(1)
			continue
		}
		if isNew {
			ingested++
		} else {
			skipped++
		}
		ingestBar.Add(1)
	}
	fmt.Println()

	for _, errMsg := range ingestErrors {
		fmt.Printf("Failed: %s\n", errMsg)
	}
	fmt.Printf("Ingested %d new photo(s), skipped %d already known\n", ingested, skipped)

	if skipRun {
		return nil
	}

	fmt.Println("\nStarting processing run...")
	report, err := a.runner.Run(context.Background())
	if err != nil {
		return fmt.Errorf("processing run failed: %w", err)
	}

	fmt.Printf("\nRun %s finished:\n", report.RunID)
	fmt.Printf("  Photos analyzed:  %d (%d failed)\n", report.PhotosAnalyzed, report.PhotosFailed)
	fmt.Printf("  Faces processed:  %d (%d rejected)\n", report.FacesProcessed, report.FacesRejected)
	fmt.Printf("  Clusters formed:  %d (%d noise faces)\n", report.ClustersFormed, report.NoiseFaces)
	fmt.Printf("  Persons created:  %d\n", report.PersonsCreated)
	fmt.Printf("  Persons merged:   %d\n", report.PersonsMerged)
	fmt.Printf("  Merge conflicts:  %d\n", len(report.Conflicts))
	fmt.Printf("  Thumbnails:       %d\n", report.ThumbnailsGenerated)
	return nil
}
