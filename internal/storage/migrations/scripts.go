package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql clickhouse/*.sql
var schema embed.FS

// script is one migration file.
type script struct {
	name string
	body string
}

// scripts returns the non-empty .sql files of dir sorted by name.
func scripts(dir string) ([]script, error) {
	entries, err := fs.ReadDir(schema, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]script, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(schema, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if body := strings.TrimSpace(string(data)); body != "" {
			out = append(out, script{name: name, body: body})
		}
	}
	return out, nil
}
