package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Ethereum     EthereumConfig     `mapstructure:"ethereum"`
	RecordLedger RecordLedgerConfig `mapstructure:"recordledger"`
	MySQL        MySQLConfig        `mapstructure:"mysql"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auction      AuctionConfig      `mapstructure:"auction"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Leader       LeaderConfig       `mapstructure:"leader"`
	Instance     InstanceConfig     `mapstructure:"instance"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type EthereumConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id"`
	PrivateKey      string `mapstructure:"private_key"`
	NFTContract     string `mapstructure:"nft_contract"`
	TokenContract   string `mapstructure:"token_contract"`
	OperatorAddress string `mapstructure:"operator_address"`
}

type RecordLedgerConfig struct {
	// Backend is "http" for the BigchainDB-style API or "mysql" for the
	// SQL-backed store.
	Backend string `mapstructure:"backend"`
	APIURL  string `mapstructure:"api_url"`
	AppID   string `mapstructure:"app_id"`
	AppKey  string `mapstructure:"app_key"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuctionConfig struct {
	// Variant selects the bidding state machine: "open" or "sealed".
	Variant     string        `mapstructure:"variant"`
	MinDuration time.Duration `mapstructure:"min_duration"`
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("ethereum.rpc_url", "http://localhost:8545")
	viper.SetDefault("ethereum.chain_id", 11155111)
	viper.SetDefault("recordledger.backend", "http")
	viper.SetDefault("recordledger.api_url", "http://localhost:9984/api/v1")
	viper.SetDefault("mysql.dsn", "auction_user:auction_pass@tcp(localhost:3306)/artchain?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auction.variant", "open")
	viper.SetDefault("auction.min_duration", time.Hour)
	viper.SetDefault("auction.max_duration", 7*24*time.Hour)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("leader.ttl", 30*time.Second)
	viper.SetDefault("instance.id", "artchain-auction-1")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/artchain/")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("ethereum.rpc_url", "RPC_URL")
	viper.BindEnv("ethereum.chain_id", "CHAIN_ID")
	viper.BindEnv("ethereum.private_key", "PRIVATE_KEY")
	viper.BindEnv("ethereum.nft_contract", "NFT_CONTRACT_ADDRESS")
	viper.BindEnv("ethereum.token_contract", "ERC20_TOKEN_ADDRESS")
	viper.BindEnv("ethereum.operator_address", "OPERATOR_ADDRESS")
	viper.BindEnv("recordledger.backend", "RECORD_LEDGER_BACKEND")
	viper.BindEnv("recordledger.api_url", "RECORD_LEDGER_API_URL")
	viper.BindEnv("recordledger.app_id", "RECORD_LEDGER_APP_ID")
	viper.BindEnv("recordledger.app_key", "RECORD_LEDGER_APP_KEY")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("auction.variant", "AUCTION_VARIANT")
	viper.BindEnv("auction.min_duration", "MIN_AUCTION_DURATION")
	viper.BindEnv("auction.max_duration", "MAX_AUCTION_DURATION")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("leader.ttl", "LEADER_TTL")
	viper.BindEnv("instance.id", "INSTANCE_ID")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults plus environment variables.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Server: %s:%d, Ethereum: %s (chain %d), RecordLedger: %s/%s, Variant: %s, Instance: %s",
		c.Server.Host, c.Server.Port,
		c.Ethereum.RPCURL, c.Ethereum.ChainID,
		c.RecordLedger.Backend, c.RecordLedger.APIURL,
		c.Auction.Variant, c.Instance.ID,
	)
}
