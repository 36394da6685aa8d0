package migrations

// The bun migrate library derives each migration's name from the file that
// calls MustRegister, and that file name must match YYYYMMDDHHMMSS_name.go.

func init() {
	Migrations.MustRegister(createTables, dropTables)
}
