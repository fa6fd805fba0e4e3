package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the application-wide configuration. It is set once by NewConfig
// before anything else runs.
var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		URI     string
		Name    string
		Timeout time.Duration
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	GatewayCredentials struct {
		Key           string
		Secret        string
		WebhookSecret string
	}

	PaymentConfig struct {
		Razorpay GatewayCredentials
		PayU     GatewayCredentials
		Cashfree GatewayCredentials

		// an IP gets blocked after SignatureFailureLimit webhook signature
		// failures within SignatureFailureWindow
		SignatureFailureLimit  int
		SignatureFailureWindow time.Duration

		SettlementBatchSize int
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		AppName  string

		SecretKey       []byte
		WorkDir         string
		FrontendBaseURL string

		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Payment  PaymentConfig
	}
)

func (c *Config) Address() string { return c.Server.Host + ":" + c.Server.Port }

// NewConfig loads the configuration from the environment (and an optional
// config/.env.<env> file) with sane defaults and sets core.Conf.
func NewConfig(workDir string) *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)

	v.SetDefault("databaseURI", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "darasa")
	v.SetDefault("databaseTimeout", 10*time.Second)

	v.SetDefault("redisAddress", "localhost:6379")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("sigFailureLimit", 5)
	v.SetDefault("sigFailureWindow", 10*time.Minute)
	v.SetDefault("settlementBatchSize", 500)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:    v.GetBool("debug"),
		TestMode: env == "TEST",
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("appName"),

		SecretKey:       []byte(v.GetString("secretKey")),
		WorkDir:         workDir,
		FrontendBaseURL: v.GetString("frontendBaseURL"),

		DefaultFromEmail:          mail.Address{Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
		},
		Database: DatabaseConfig{
			URI:     v.GetString("databaseURI"),
			Name:    v.GetString("databaseName"),
			Timeout: v.GetDuration("databaseTimeout"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redisAddress"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Payment: PaymentConfig{
			Razorpay: GatewayCredentials{
				Key:           v.GetString("razorpayKeyID"),
				Secret:        v.GetString("razorpayKeySecret"),
				WebhookSecret: v.GetString("razorpayWebhookSecret"),
			},
			PayU: GatewayCredentials{
				Key:    v.GetString("payuKey"),
				Secret: v.GetString("payuSalt"),
			},
			Cashfree: GatewayCredentials{
				Key:           v.GetString("cashfreeAppID"),
				Secret:        v.GetString("cashfreeSecretKey"),
				WebhookSecret: v.GetString("cashfreeWebhookSecret"),
			},
			SignatureFailureLimit:  v.GetInt("sigFailureLimit"),
			SignatureFailureWindow: v.GetDuration("sigFailureWindow"),
			SettlementBatchSize:    v.GetInt("settlementBatchSize"),
		},
	}

	Conf = conf
	return conf
}

// NewTestConfig sets up a lightweight Conf for tests; no env loading.
func NewTestConfig() *Config {
	conf := &Config{
		Debug:                     true,
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "Darasa",
		WorkDir:                   Getwd(),
		SecretKey:                 []byte("secret"),
		DefaultFromEmail:          mail.Address{Address: "noreply@localhost"},
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Payment: PaymentConfig{
			Razorpay:               GatewayCredentials{Key: "rzp_test", Secret: "rzpsecret", WebhookSecret: "rzpwebhook"},
			PayU:                   GatewayCredentials{Key: "payukey", Secret: "payusalt"},
			Cashfree:               GatewayCredentials{Key: "cfapp", Secret: "cfsecret", WebhookSecret: "cfwebhook"},
			SignatureFailureLimit:  3,
			SignatureFailureWindow: time.Minute,
			SettlementBatchSize:    100,
		},
	}
	Conf = conf
	return conf
}
