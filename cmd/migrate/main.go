// Применяет схему positions к базе из конфига. Запускается руками или из CI
// перед стартом бота; все выражения идемпотентны.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	id                BIGSERIAL PRIMARY KEY,
	account_id        TEXT NOT NULL,
	symbol            TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'OPEN',
	qty               DOUBLE PRECISION NOT NULL,
	avg_cost_usdt     DOUBLE PRECISION NOT NULL,
	total_buy_fees    DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_sell_fees   DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_buy_amount  DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_sell_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
	realized_pnl      DOUBLE PRECISION,
	opened_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	closed_at         TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_positions_account_symbol
	ON positions (account_id, symbol);

-- не больше одной открытой строки на ключ (аккаунт, символ)
CREATE UNIQUE INDEX IF NOT EXISTS uq_positions_open
	ON positions (account_id, symbol) WHERE status = 'OPEN';
`

func resolveDSN() (string, error) {
	configFileName := os.Getenv("CONFIG_FILE")
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}

	viper.SetConfigFile("configs/" + configFileName)
	viper.SetConfigType("yaml")
	if err := viper.BindEnv("db_dsn", "DATABASE_DSN"); err != nil {
		return "", errors.Wrap(err, "bind env")
	}
	if err := viper.ReadInConfig(); err != nil {
		return "", errors.Wrap(err, "read config")
	}

	dsn := viper.GetString("db_dsn")
	if dsn == "" {
		return "", errors.New("db_dsn is empty (set it in config or DATABASE_DSN)")
	}
	return dsn, nil
}

func run() error {
	dsn, err := resolveDSN()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrate: schema is up to date")
}
