package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	// Chain gateway
	ChainRPCURL       string
	ChainPrivateKey   string
	ChainContractAddr string
	ChainID           int64

	// Funding reconciliation policy
	ReceiptPolls          int
	ReceiptPollIntervalMS int
	LedgerRetries         int
	LedgerRetryBaseMS     int

	// "linear_time" or "funded_fraction"
	RateDecay string
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func Load() *Config {
	c := &Config{
		AppPort:   getenv("APP_PORT", "8080"),
		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "gaplend"),
		MySQLUser: getenv("MYSQL_USER", "gaplend"),
		MySQLPass: getenv("MYSQL_PASS", "gaplend"),

		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:      getenvInt("REDIS_DB", 0),
		IdempTTLSecs: getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		ChainRPCURL:       getenv("CHAIN_RPC_URL", "http://geth:8545"),
		ChainPrivateKey:   os.Getenv("CHAIN_PRIVATE_KEY"),
		ChainContractAddr: os.Getenv("CHAIN_CONTRACT_ADDR"),

		ReceiptPolls:          getenvInt("RECEIPT_POLLS", 3),
		ReceiptPollIntervalMS: getenvInt("RECEIPT_POLL_INTERVAL_MS", 2000),
		LedgerRetries:         getenvInt("LEDGER_RETRIES", 5),
		LedgerRetryBaseMS:     getenvInt("LEDGER_RETRY_BASE_MS", 100),

		RateDecay: getenv("RATE_DECAY", "linear_time"),
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ChainID = n
		}
	}
	if c.ChainID == 0 {
		c.ChainID = 1337
	}
	return c
}

func (c *Config) Validate() error {
	if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
		return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
		return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.ChainRPCURL == "" {
		return errors.New("missing CHAIN_RPC_URL")
	}
	if c.ChainPrivateKey == "" {
		return errors.New("missing CHAIN_PRIVATE_KEY")
	}
	if c.ChainContractAddr == "" {
		return errors.New("missing CHAIN_CONTRACT_ADDR")
	}
	if c.RateDecay != "linear_time" && c.RateDecay != "funded_fraction" {
		return fmt.Errorf("invalid RATE_DECAY %q (want linear_time or funded_fraction)", c.RateDecay)
	}
	return nil
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
