package catalog

import (
	"embed"

	"github.com/siloworks/silo/internal/catalog/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func mustRead(name string) string {
	data, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		panic("catalog: missing embedded migration " + name + ": " + err.Error())
	}
	return string(data)
}

// schemaMigration is the full, ordered schema history. modernc.org/sqlite
// executes a multi-statement string in one Exec call, so each step embeds
// its file whole rather than splitting on ";".
var schemaMigration = migrate.Migration{
	Steps: []migrate.Step{
		{
			Version:     1,
			Description: "troves, changesets, files, flavors, provenance, dependencies",
			SQL:         []string{mustRead("001_initial.sql")},
		},
		{
			Version:     2,
			Description: "changeset reversal tracking",
			SQL:         []string{mustRead("002_changeset_reversal.sql")},
		},
		{
			Version:     3,
			Description: "content-addressed file index and file history",
			SQL:         []string{mustRead("003_cas_history.sql")},
		},
		{
			Version:     4,
			Description: "repositories and synced repository packages",
			SQL:         []string{mustRead("004_repositories.sql")},
		},
		{
			Version:     5,
			Description: "binary deltas and delta application stats",
			SQL:         []string{mustRead("005_deltas.sql")},
		},
	},
}
