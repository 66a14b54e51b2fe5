package data

import (
	"testing"

	"github.com/KotFed0t/invest_advice_bot/config"
)

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(config.Postgres{Host: "db", Port: 5432, User: "advisor", DbName: "advice", Password: "secret"})

	want := "host=db port=5432 user=advisor dbname=advice sslmode=disable password=secret"
	if dsn != want {
		t.Fatalf("dsn=%q want=%q", dsn, want)
	}
}
