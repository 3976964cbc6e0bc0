package sqlstore

import (
	"fmt"
	"strings"
)

// Dialect - различия PostgreSQL и SQLite, важные для DDL и пула.
type Dialect struct {
	Name      string
	Driver    string // имя драйвера database/sql
	SerialPK  string // тип автоинкрементного первичного ключа
	Timestamp string // тип служебных временных колонок
	MaxConns  int
}

var (
	Postgres = Dialect{
		Name:      "postgres",
		Driver:    "pgx",
		SerialPK:  "bigserial primary key",
		Timestamp: "timestamp with time zone",
		MaxConns:  10,
	}
	// SQLite: одно соединение, иначе ":memory:" у каждого коннекта своя база
	SQLite = Dialect{
		Name:      "sqlite",
		Driver:    "sqlite",
		SerialPK:  "integer primary key autoincrement",
		Timestamp: "timestamp",
		MaxConns:  1,
	}
)

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}
