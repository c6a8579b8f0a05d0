package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const maxAccounts = 10

type Config struct {
	Exchange ExchangeConfig
	Copy     CopyConfig
	Trading  TradingConfig
	Runtime  RuntimeConfig
	Accounts []Account
}

type ExchangeConfig struct {
	BaseURL      string
	WSPrivateURL string
	AccountType  string
	SettleCoin   string
	RecvWindow   string
	Timeout      time.Duration
}

type CopyConfig struct {
	Master        string
	Subscribers   []string
	MasterTrades  bool
	Pairs         map[string]string
	SubmitTimeout time.Duration
}

type TradingConfig struct {
	DefaultSymbol   string
	EquityAsset     string
	QtyPrecision    int32
	DefaultLeverage int
	MarginMode      string
}

type RuntimeConfig struct {
	DryRun       bool
	EnvFile      string
	AccountsFile string
	MetricsAddr  string
	PaperPrice   float64
	PaperEquity  float64
	Log          LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Account is one roster entry. The JSON roster uses the same field names.
type Account struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	AccountID string `mapstructure:"account_id"`
}

type pairEntry struct {
	Account string `mapstructure:"account"`
	Symbol  string `mapstructure:"symbol"`
}

type Option func(*viper.Viper)

// WithOverride forces key to value, above the file and the environment.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads configs/config.yaml, or path when given, then the account roster.
// A missing config file is not an error; defaults apply.
func Load(path string, opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix("SNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	for _, opt := range opts {
		opt(v)
	}

	cfg := &Config{}

	cfg.Exchange = ExchangeConfig{
		BaseURL:      envSub(v, "exchange.base_url"),
		WSPrivateURL: envSub(v, "exchange.ws_private_url"),
		AccountType:  v.GetString("exchange.account_type"),
		SettleCoin:   v.GetString("exchange.settle_coin"),
		RecvWindow:   v.GetString("exchange.recv_window"),
		Timeout:      v.GetDuration("exchange.timeout"),
	}

	var pairs []pairEntry
	if err := v.UnmarshalKey("copy.pairs", &pairs); err != nil {
		return nil, fmt.Errorf("copy.pairs: %w", err)
	}
	cfg.Copy = CopyConfig{
		Master:        v.GetString("copy.master"),
		Subscribers:   v.GetStringSlice("copy.subscribers"),
		MasterTrades:  v.GetBool("copy.master_trades"),
		Pairs:         map[string]string{},
		SubmitTimeout: v.GetDuration("copy.submit_timeout"),
	}
	for _, p := range pairs {
		if p.Account != "" {
			cfg.Copy.Pairs[p.Account] = strings.ToUpper(strings.TrimSpace(p.Symbol))
		}
	}

	cfg.Trading = TradingConfig{
		DefaultSymbol:   v.GetString("trading.default_symbol"),
		EquityAsset:     v.GetString("trading.equity_asset"),
		QtyPrecision:    v.GetInt32("trading.qty_precision"),
		DefaultLeverage: v.GetInt("trading.default_leverage"),
		MarginMode:      v.GetString("trading.margin_mode"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun:       v.GetBool("runtime.dry_run"),
		EnvFile:      v.GetString("runtime.env_file"),
		AccountsFile: envSub(v, "runtime.accounts_file"),
		MetricsAddr:  v.GetString("runtime.metrics_addr"),
		PaperPrice:   v.GetFloat64("runtime.paper_price"),
		PaperEquity:  v.GetFloat64("runtime.paper_equity"),
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
	}

	accounts, err := LoadAccounts(cfg.Runtime.EnvFile, cfg.Runtime.AccountsFile)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 && cfg.Runtime.DryRun {
		accounts = []Account{{AccountID: "paper-1"}, {AccountID: "paper-2"}}
	}
	cfg.Accounts = accounts

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.base_url", "https://api.bybit.com")
	v.SetDefault("exchange.ws_private_url", "wss://stream.bybit.com/v5/private")
	v.SetDefault("exchange.account_type", "UNIFIED")
	v.SetDefault("exchange.settle_coin", "USDT")
	v.SetDefault("exchange.recv_window", "5000")
	v.SetDefault("exchange.timeout", 15*time.Second)

	v.SetDefault("copy.master_trades", true)
	v.SetDefault("copy.submit_timeout", 10*time.Second)

	v.SetDefault("trading.default_symbol", "BTCUSDT")
	v.SetDefault("trading.equity_asset", "USDT")
	v.SetDefault("trading.qty_precision", 8)
	v.SetDefault("trading.default_leverage", 10)
	v.SetDefault("trading.margin_mode", "cross")

	v.SetDefault("runtime.env_file", ".env")
	v.SetDefault("runtime.metrics_addr", ":9090")
	v.SetDefault("runtime.paper_price", 100.0)
	v.SetDefault("runtime.paper_equity", 10000.0)
	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "text")
	v.SetDefault("runtime.log.file", "stdout")
}

// LoadAccounts reads API_KEY_{1..10} / API_SECRET_{1..10} (and optional
// ACCOUNT_ID_{n}) after loading envFile, falling back to the JSON roster at
// accountsFile when no pair is set in the environment.
func LoadAccounts(envFile, accountsFile string) ([]Account, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var accounts []Account
	for i := 1; i <= maxAccounts; i++ {
		key := os.Getenv(fmt.Sprintf("API_KEY_%d", i))
		secret := os.Getenv(fmt.Sprintf("API_SECRET_%d", i))
		if key == "" || secret == "" {
			continue
		}
		id := os.Getenv(fmt.Sprintf("ACCOUNT_ID_%d", i))
		if id == "" {
			id = fmt.Sprintf("account-%d", i)
		}
		accounts = append(accounts, Account{APIKey: key, APISecret: secret, AccountID: id})
	}
	if len(accounts) > 0 || accountsFile == "" {
		return accounts, nil
	}

	return loadAccountsFile(accountsFile)
}

func loadAccountsFile(path string) ([]Account, error) {
	av := viper.New()
	av.SetConfigFile(path)
	av.SetConfigType("json")
	if err := av.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read accounts file %s: %w", path, err)
	}

	var accounts []Account
	if err := av.UnmarshalKey("accounts", &accounts); err != nil {
		return nil, fmt.Errorf("decode accounts file %s: %w", path, err)
	}
	if len(accounts) > maxAccounts {
		return nil, fmt.Errorf("accounts file %s lists %d accounts, at most %d supported", path, len(accounts), maxAccounts)
	}
	for i := range accounts {
		if accounts[i].AccountID == "" {
			accounts[i].AccountID = fmt.Sprintf("account-%d", i+1)
		}
	}
	return accounts, nil
}

func (c *Config) Validate() error {
	seen := map[string]bool{}
	for _, acc := range c.Accounts {
		if seen[acc.AccountID] {
			return fmt.Errorf("account %s listed twice", acc.AccountID)
		}
		seen[acc.AccountID] = true
		if !c.Runtime.DryRun && (acc.APIKey == "" || acc.APISecret == "") {
			return fmt.Errorf("account %s has no api credentials", acc.AccountID)
		}
	}
	if c.Copy.Master != "" && len(c.Accounts) > 0 && !seen[c.Copy.Master] {
		return fmt.Errorf("copy.master %s is not in the account roster", c.Copy.Master)
	}
	if c.Trading.QtyPrecision < 0 {
		return fmt.Errorf("trading.qty_precision must not be negative")
	}
	switch strings.ToLower(c.Trading.MarginMode) {
	case "cross", "isolated":
	default:
		return fmt.Errorf("trading.margin_mode must be cross or isolated, got %q", c.Trading.MarginMode)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
