package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Утилита накатывает схему из configs/schema.yaml. Стейтменты
// идемпотентные (IF NOT EXISTS), повторный прогон безопасен.

type statement struct {
	Name string `mapstructure:"name"`
	DDL  string `mapstructure:"ddl"`
}

type manifest struct {
	Statements []statement `mapstructure:"statements"`
}

func loadManifest() (*manifest, error) {
	viper.SetConfigName("schema")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read schema manifest")
	}

	var m manifest
	if err := viper.Unmarshal(&m); err != nil {
		return nil, errors.Wrap(err, "unmarshal schema manifest")
	}
	if len(m.Statements) == 0 {
		return nil, errors.New("schema manifest has no statements")
	}
	return &m, nil
}

func apply(ctx context.Context, dsn string, m *manifest) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	for _, st := range m.Statements {
		if _, err := conn.Exec(ctx, st.DDL); err != nil {
			return errors.Wrapf(err, "apply %s", st.Name)
		}
		fmt.Printf("%s applied\n", st.Name)
	}
	return nil
}

func main() {
	m, err := loadManifest()
	if err != nil {
		panic(err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = viper.GetString("db_dsn")
	}
	if dsn == "" {
		panic("DATABASE_DSN is not set")
	}
	if err := apply(context.Background(), dsn, m); err != nil {
		panic(err)
	}
	fmt.Println("done")
}
