package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
)

const (
	defaultAppName          = "IDHashRegistry"
	defaultAppEnv           = "development"
	defaultPort             = "5000"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultLedgerTimeout    = 30 * time.Second
	defaultMaxUploadBytes   = 10 << 20
	defaultWriteRateLimit   = 30
	defaultProfilePath      = "connection-profile/network-connection.yaml"
	defaultChannel          = "mychannel"
	defaultContract         = "id-cc"
	defaultIdentityLabel    = "appUser"
	defaultAdminLabel       = "admin"
	defaultMSPID            = "Org1MSP"
	defaultOrgName          = "Org1"
	defaultCAName           = "ca.org1.example.com"
	defaultAffiliation      = "org1.department1"
	defaultUserStorePath    = "/tmp/state-store"
	defaultKeystorePath     = "/tmp/msp/keystore"
	defaultWalletBackend    = "filesystem"
	defaultWalletPath       = "wallet"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	ledgerTimeoutEnvVar     = "LEDGER_TIMEOUT"
	configFileEnvVar        = "CONFIG_FILE"
	walletBackendFilesystem = "filesystem"
	walletBackendPostgres   = "postgres"
	walletBackendMemory     = "memory"
)

// Config captures application runtime configuration loaded from an optional
// YAML file and environment variables. Environment always wins.
type Config struct {
	AppName        string        `yaml:"appName"`
	AppEnv         string        `yaml:"appEnv"`
	Port           string        `yaml:"port"`
	LogLevel       string        `yaml:"logLevel"`
	DatabaseURL    string        `yaml:"databaseURL"`
	RedisURL       string        `yaml:"redisURL"`
	TraceEndpoint  string        `yaml:"traceEndpoint"`
	ShutdownPeriod time.Duration `yaml:"shutdownPeriod"`
	IdempotencyTTL time.Duration `yaml:"idempotencyTTL"`
	WriteRateLimit int           `yaml:"writeRateLimit"`
	MaxUploadBytes int           `yaml:"maxUploadBytes"`

	Fabric Fabric `yaml:"fabric"`
	Wallet Wallet `yaml:"wallet"`
}

// Fabric holds network, contract and certificate authority settings.
type Fabric struct {
	ConnectionProfile    string        `yaml:"connectionProfile"`
	Channel              string        `yaml:"channel"`
	Contract             string        `yaml:"contract"`
	IdentityLabel        string        `yaml:"identityLabel"`
	AdminLabel           string        `yaml:"adminLabel"`
	MSPID                string        `yaml:"mspID"`
	OrgName              string        `yaml:"orgName"`
	CAName               string        `yaml:"caName"`
	Affiliation          string        `yaml:"affiliation"`
	UserStorePath        string        `yaml:"userStorePath"`
	KeystorePath         string        `yaml:"keystorePath"`
	DiscoveryAsLocalhost bool          `yaml:"discoveryAsLocalhost"`
	Timeout              time.Duration `yaml:"timeout"`
	Transactions         Transactions  `yaml:"transactions"`
}

// Transactions overrides the contract function names. Empty values fall back
// to the names exported by the bundled chaincode.
type Transactions struct {
	Store  string `yaml:"store"`
	Update string `yaml:"update"`
	Query  string `yaml:"query"`
}

// Wallet selects and configures the identity store backend.
type Wallet struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	EncryptionKey string `yaml:"encryptionKey"`
}

// Load reads configuration values from CONFIG_FILE (if set) and the
// environment and populates a Config instance.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(configFileEnvVar); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.TraceEndpoint = getEnv("TRACE_ENDPOINT", cfg.TraceEndpoint)

	cfg.Fabric.ConnectionProfile = getEnv("CONNECTION_PROFILE", cfg.Fabric.ConnectionProfile)
	cfg.Fabric.Channel = getEnv("CHANNEL_NAME", cfg.Fabric.Channel)
	cfg.Fabric.Contract = getEnv("CONTRACT_NAME", cfg.Fabric.Contract)
	cfg.Fabric.IdentityLabel = getEnv("IDENTITY_LABEL", cfg.Fabric.IdentityLabel)
	cfg.Fabric.AdminLabel = getEnv("ADMIN_LABEL", cfg.Fabric.AdminLabel)
	cfg.Fabric.MSPID = getEnv("MSP_ID", cfg.Fabric.MSPID)
	cfg.Fabric.OrgName = getEnv("ORG_NAME", cfg.Fabric.OrgName)
	cfg.Fabric.CAName = getEnv("CA_NAME", cfg.Fabric.CAName)
	cfg.Fabric.Affiliation = getEnv("CA_AFFILIATION", cfg.Fabric.Affiliation)
	cfg.Fabric.UserStorePath = getEnv("CA_USER_STORE", cfg.Fabric.UserStorePath)
	cfg.Fabric.KeystorePath = getEnv("CA_KEYSTORE", cfg.Fabric.KeystorePath)
	cfg.Fabric.Transactions.Store = getEnv("TX_STORE", cfg.Fabric.Transactions.Store)
	cfg.Fabric.Transactions.Update = getEnv("TX_UPDATE", cfg.Fabric.Transactions.Update)
	cfg.Fabric.Transactions.Query = getEnv("TX_QUERY", cfg.Fabric.Transactions.Query)

	cfg.Wallet.Backend = strings.ToLower(getEnv("WALLET_BACKEND", cfg.Wallet.Backend))
	cfg.Wallet.Path = getEnv("WALLET_PATH", cfg.Wallet.Path)
	cfg.Wallet.EncryptionKey = getEnv("WALLET_ENCRYPTION_KEY", cfg.Wallet.EncryptionKey)

	if v := os.Getenv("DISCOVERY_AS_LOCALHOST"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DISCOVERY_AS_LOCALHOST: %w", err)
		}
		cfg.Fabric.DiscoveryAsLocalhost = b
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(ledgerTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", ledgerTimeoutEnvVar, err)
		}
		cfg.Fabric.Timeout = d
	}
	if cfg.WriteRateLimit, err = intFromEnv("WRITE_RATE_LIMIT", cfg.WriteRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.MaxUploadBytes, err = intFromEnv("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		AppName:        defaultAppName,
		AppEnv:         defaultAppEnv,
		Port:           defaultPort,
		LogLevel:       defaultLogLevel,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		WriteRateLimit: defaultWriteRateLimit,
		MaxUploadBytes: defaultMaxUploadBytes,
		Fabric: Fabric{
			ConnectionProfile:    defaultProfilePath,
			Channel:              defaultChannel,
			Contract:             defaultContract,
			IdentityLabel:        defaultIdentityLabel,
			AdminLabel:           defaultAdminLabel,
			MSPID:                defaultMSPID,
			OrgName:              defaultOrgName,
			CAName:               defaultCAName,
			Affiliation:          defaultAffiliation,
			UserStorePath:        defaultUserStorePath,
			KeystorePath:         defaultKeystorePath,
			DiscoveryAsLocalhost: true,
			Timeout:              defaultLedgerTimeout,
		},
		Wallet: Wallet{
			Backend: defaultWalletBackend,
			Path:    defaultWalletPath,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Wallet.Backend {
	case walletBackendFilesystem:
		if c.Wallet.Path == "" {
			return fmt.Errorf("WALLET_PATH must be set for the filesystem wallet")
		}
	case walletBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres wallet")
		}
		if c.Wallet.EncryptionKey == "" {
			return fmt.Errorf("WALLET_ENCRYPTION_KEY must be set for the postgres wallet")
		}
	case walletBackendMemory:
	default:
		return fmt.Errorf("unknown WALLET_BACKEND %q", c.Wallet.Backend)
	}

	if c.Fabric.Channel == "" || c.Fabric.Contract == "" {
		return fmt.Errorf("CHANNEL_NAME and CONTRACT_NAME must be set")
	}
	if c.Fabric.IdentityLabel == "" {
		return fmt.Errorf("IDENTITY_LABEL must be set")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
