package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"qacompare/adapters/postgres"
	"qacompare/domain/core"
	"qacompare/domain/qa"
	"qacompare/internal/migration"
	"qacompare/ports"
)

func main() {
	if len(os.Args) < 4 {
		log.Fatal("Usage: migrate <postgres|sqlite> <database_url> <runs_dir>")
	}

	driver := os.Args[1]
	databaseURL := os.Args[2]
	runsDir := os.Args[3]

	log.Printf("Importing archived runs from %s into %s database", runsDir, driver)

	ctx := context.Background()
	db, err := postgres.Open(ctx, driver, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	files, err := findRunFiles(runsDir)
	if err != nil {
		log.Fatalf("Failed to find run files: %v", err)
	}
	log.Printf("Found %d run files to import", len(files))

	imported, skipped := importRuns(ctx, postgres.NewRunRepository(db), files)
	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

// importRuns stores every readable run that is not in the repository yet.
func importRuns(ctx context.Context, repo ports.RunRepository, files []string) (imported, skipped int) {
	for _, file := range files {
		run, err := loadRunFromFile(file)
		if err != nil {
			log.Printf("Failed to load run from %s: %v", file, err)
			skipped++
			continue
		}

		if _, err := repo.GetByID(ctx, run.ID); err == nil {
			log.Printf("Run %s from %s already stored", run.ID, filepath.Base(file))
			skipped++
			continue
		}

		if err := repo.Save(ctx, run); err != nil {
			log.Printf("Failed to save run %s: %v", run.ID, err)
			skipped++
			continue
		}
		imported++
		log.Printf("Imported run %s from %s", run.ID, filepath.Base(file))
	}
	return imported, skipped
}

func findRunFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// loadRunFromFile decodes a run written by "qacompare compare --json".
// Runs without an ID get one derived from the file path, so importing the
// same archive twice stores each run once.
func loadRunFromFile(filePath string) (*qa.RunRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var run qa.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}

	if run.ID == "" {
		run.ID = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	if run.Fingerprint.IsEmpty() {
		tested := run.Tested()
		pvalues := make([]float64, len(tested))
		for i, c := range tested {
			pvalues[i] = c.PValue
		}
		run.Fingerprint = core.ComputeSequenceHash(pvalues)
	}
	return &run, nil
}
