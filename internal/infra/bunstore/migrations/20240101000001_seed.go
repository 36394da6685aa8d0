package migrations

func init() {
	Migrations.MustRegister(seedData, unseedData)
}
