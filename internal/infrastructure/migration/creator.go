package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationTemplate = `-- Migration: {{.Name}}{{if .Down}} (rollback){{end}}
-- Dialect: {{.Dialect}}
-- Created: {{.Timestamp}}

`

// MigrationFile is one generated up/down pair for a dialect.
type MigrationFile struct {
	Version  string
	Name     string
	Dialect  string
	UpPath   string
	DownPath string
}

// Dialects lists every dialect that needs a copy of each migration.
func Dialects() []string {
	return []string{DialectPostgres, DialectSQLite}
}

// CreateMigration writes an empty up/down pair for every dialect under
// root/<dialect>. The version continues the sequence found in root.
func CreateMigration(root, name string) ([]MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}

	next, err := nextVersion(os.DirFS(root))
	if err != nil {
		return nil, err
	}
	version := fmt.Sprintf("%06d", next)
	stamp := time.Now().Format(time.RFC3339)

	created := make([]MigrationFile, 0, len(Dialects()))
	for _, dialect := range Dialects() {
		dir := filepath.Join(root, dialect)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create migrations directory: %w", err)
		}
		mf := MigrationFile{
			Version:  version,
			Name:     base,
			Dialect:  dialect,
			UpPath:   filepath.Join(dir, version+"_"+base+".up.sql"),
			DownPath: filepath.Join(dir, version+"_"+base+".down.sql"),
		}
		if err := writeMigrationFile(mf.UpPath, mf, false, stamp); err != nil {
			return nil, err
		}
		if err := writeMigrationFile(mf.DownPath, mf, true, stamp); err != nil {
			_ = os.Remove(mf.UpPath)
			return nil, err
		}
		created = append(created, mf)
	}
	return created, nil
}

func writeMigrationFile(path string, mf MigrationFile, down bool, stamp string) error {
	tmpl, err := template.New("migration").Parse(migrationTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, map[string]any{
		"Name":      mf.Name,
		"Dialect":   mf.Dialect,
		"Timestamp": stamp,
		"Down":      down,
	})
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, c := range strings.ToLower(name) {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the base names of the migrations embedded for a dialect.
func ListMigrations(dialect string) ([]string, error) {
	return listMigrations(migrationsFS, "sql/"+dialect)
}

func listMigrations(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	migrations := make([]string, 0, len(entries)/2)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(entry.Name(), ".up.sql"); ok {
			migrations = append(migrations, base)
		}
	}
	sort.Strings(migrations)
	return migrations, nil
}

func nextVersion(fsys fs.FS) (int, error) {
	highest := 0
	for _, dialect := range Dialects() {
		names, err := listMigrations(fsys, dialect)
		if err != nil {
			return 0, err
		}
		for _, n := range names {
			prefix, _, _ := strings.Cut(n, "_")
			if v, err := strconv.Atoi(prefix); err == nil && v > highest {
				highest = v
			}
		}
	}
	return highest + 1, nil
}
