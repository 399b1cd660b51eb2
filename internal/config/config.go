package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	Cart      CartConfig
	JWT       JWTConfig
	Admin     AdminConfig
	OTP       OTPConfig
	Payment   PaymentConfig
	Pricing   PricingConfig
	Notifier  NotifierConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	Mode            string   `mapstructure:"mode"`
	Addrs           []string `mapstructure:"addrs"`
	Addr            string   `mapstructure:"addr"`
	Password        string   `mapstructure:"password"`
	DB              int      `mapstructure:"db"`
	MasterName      string   `mapstructure:"master_name"`
	MaxRetries      int      `mapstructure:"max_retries"`
	MinRetryBackoff int      `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int      `mapstructure:"max_retry_backoff"` // мс
}

// MongoConfig используется, только если cart.backend = "mongo"
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// Хранилища корзины
const (
	CartBackendPostgres = "postgres"
	CartBackendMongo    = "mongo"
)

// CartConfig выбирает хранилище корзины
type CartConfig struct {
	Backend string `mapstructure:"backend"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expiration_hrs"`
	Issuer        string `mapstructure:"issuer"`
}

// AdminConfig — учетная запись оператора магазина (пароль хранится только как bcrypt-хеш)
type AdminConfig struct {
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// OTPConfig содержит настройки одноразовых кодов
type OTPConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	Retention   time.Duration `mapstructure:"retention"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	CodeLength  int           `mapstructure:"code_length"`
	Pepper      string        `mapstructure:"pepper"`
}

// Драйверы платежного шлюза
const (
	PaymentDriverRazorpay = "razorpay"
	PaymentDriverSandbox  = "sandbox"
)

// PaymentConfig содержит настройки платежного шлюза.
// Пустые ключи не мешают запуску: оформление заказа вернет gateway_unavailable.
type PaymentConfig struct {
	Driver        string        `mapstructure:"driver"`
	KeyID         string        `mapstructure:"key_id"`
	KeySecret     string        `mapstructure:"key_secret"`
	BaseURL       string        `mapstructure:"base_url"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
	IntentTTL     time.Duration `mapstructure:"intent_ttl"` // время жизни intent в кэше Redis
	ReceiptPrefix string        `mapstructure:"receipt_prefix"`
}

// Configured сообщает, заданы ли учетные данные шлюза
func (p PaymentConfig) Configured() bool {
	return strings.TrimSpace(p.KeyID) != "" && strings.TrimSpace(p.KeySecret) != ""
}

// PricingConfig — правила расчета заказа в минимальных единицах валюты
type PricingConfig struct {
	TaxRateBps            int64 `mapstructure:"tax_rate_bps"`
	FreeShippingThreshold int64 `mapstructure:"free_shipping_threshold"`
	ShippingFee           int64 `mapstructure:"shipping_fee"`
	DeliveryLeadDays      int   `mapstructure:"delivery_lead_days"`
}

// Драйверы отправки писем
const (
	NotifierDriverLog    = "log"
	NotifierDriverResend = "resend"
	NotifierDriverSMTP   = "smtp"
)

// NotifierConfig содержит настройки уведомлений
type NotifierConfig struct {
	Driver        string `mapstructure:"driver"`
	From          string `mapstructure:"from"`
	OperatorEmail string `mapstructure:"operator_email"`
	ResendAPIKey  string `mapstructure:"resend_api_key"`
	StoreName     string `mapstructure:"store_name"`
}

// RateLimitConfig — лимиты для OTP эндпоинтов
type RateLimitConfig struct {
	OTPRequestMax int           `mapstructure:"otp_request_max"`
	OTPVerifyMax  int           `mapstructure:"otp_verify_max"`
	Window        time.Duration `mapstructure:"window"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// setDefaults задает значения по умолчанию
func setDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("cart.backend", CartBackendPostgres)
	vip.SetDefault("jwt.expiration_hrs", 24)
	vip.SetDefault("jwt.issuer", "storefront-api")
	vip.SetDefault("otp.ttl", 10*time.Minute)
	vip.SetDefault("otp.retention", 20*time.Minute)
	vip.SetDefault("otp.max_attempts", 3)
	vip.SetDefault("otp.code_length", 5)
	vip.SetDefault("payment.driver", PaymentDriverRazorpay)
	vip.SetDefault("payment.base_url", "https://api.razorpay.com")
	vip.SetDefault("payment.currency", "INR")
	vip.SetDefault("payment.timeout", 10*time.Second)
	vip.SetDefault("payment.intent_ttl", 30*time.Minute)
	vip.SetDefault("payment.receipt_prefix", "rcpt")
	vip.SetDefault("pricing.tax_rate_bps", 1800)
	vip.SetDefault("pricing.free_shipping_threshold", 50000)
	vip.SetDefault("pricing.shipping_fee", 5000)
	vip.SetDefault("pricing.delivery_lead_days", 7)
	vip.SetDefault("notifier.driver", NotifierDriverLog)
	vip.SetDefault("notifier.store_name", "Storefront")
	vip.SetDefault("rate_limit.otp_request_max", 5)
	vip.SetDefault("rate_limit.otp_verify_max", 10)
	vip.SetDefault("rate_limit.window", time.Minute)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния
	setDefaults(vip)

	// Привязываем переменные окружения ЯВНО
	bindings := map[string]string{
		"server.port":                     "SERVER_PORT",
		"server.allowed_origins":          "SERVER_ALLOWED_ORIGINS",
		"database.host":                   "DATABASE_HOST",
		"database.port":                   "DATABASE_PORT",
		"database.user":                   "DATABASE_USER",
		"database.password":               "DATABASE_PASSWORD",
		"database.dbname":                 "DATABASE_DBNAME",
		"database.sslmode":                "DATABASE_SSLMODE",
		"redis.mode":                      "REDIS_MODE",
		"redis.addrs":                     "REDIS_ADDRS",
		"redis.addr":                      "REDIS_ADDR",
		"redis.password":                  "REDIS_PASSWORD",
		"redis.db":                        "REDIS_DB",
		"redis.master_name":               "REDIS_MASTER_NAME",
		"mongo.uri":                       "MONGO_URI",
		"mongo.database":                  "MONGO_DATABASE",
		"cart.backend":                    "CART_BACKEND",
		"jwt.secret":                      "JWT_SECRET",
		"jwt.expiration_hrs":              "JWT_EXPIRATION_HRS",
		"admin.email":                     "ADMIN_EMAIL",
		"admin.password_hash":             "ADMIN_PASSWORD_HASH",
		"otp.pepper":                      "OTP_PEPPER",
		"payment.driver":                  "PAYMENT_DRIVER",
		"payment.key_id":                  "PAYMENT_KEY_ID",
		"payment.key_secret":              "PAYMENT_KEY_SECRET",
		"payment.base_url":                "PAYMENT_BASE_URL",
		"pricing.free_shipping_threshold": "PRICING_FREE_SHIPPING_THRESHOLD",
		"notifier.driver":                 "NOTIFIER_DRIVER",
		"notifier.from":                   "NOTIFIER_FROM",
		"notifier.operator_email":         "NOTIFIER_OPERATOR_EMAIL",
		"notifier.resend_api_key":         "RESEND_API_KEY",
	}
	for key, env := range bindings {
		if err := vip.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файл необязателен, если все задано через переменные окружения
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("[Config] Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("[Config] Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("[Config] Database: %s@%s:%s/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		log.Printf("[Config] Redis: mode=%s addr=%s", cfg.Redis.Mode, cfg.Redis.Addr)
		log.Printf("[Config] Cart backend: %s", cfg.Cart.Backend)
		log.Printf("[Config] Payment driver=%s configured=%t", cfg.Payment.Driver, cfg.Payment.Configured())
		log.Printf("[Config] Notifier driver: %s", cfg.Notifier.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required in config (check JWT_SECRET env var)")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	switch c.Cart.Backend {
	case CartBackendPostgres:
	case CartBackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("cart backend 'mongo' requires mongo.uri and mongo.database")
		}
	default:
		return fmt.Errorf("unsupported cart backend: %s", c.Cart.Backend)
	}
	switch c.Payment.Driver {
	case PaymentDriverRazorpay, PaymentDriverSandbox:
	default:
		return fmt.Errorf("unsupported payment driver: %s", c.Payment.Driver)
	}
	switch c.Notifier.Driver {
	case NotifierDriverLog, NotifierDriverSMTP:
	case NotifierDriverResend:
		if c.Notifier.ResendAPIKey == "" || c.Notifier.From == "" {
			return fmt.Errorf("notifier driver 'resend' requires resend_api_key and from")
		}
	default:
		return fmt.Errorf("unsupported notifier driver: %s", c.Notifier.Driver)
	}
	if c.OTP.MaxAttempts <= 0 || c.OTP.CodeLength < 4 || c.OTP.CodeLength > 9 {
		return fmt.Errorf("otp configuration is invalid (max_attempts > 0, 4 <= code_length <= 9)")
	}
	if c.Pricing.TaxRateBps < 0 || c.Pricing.ShippingFee < 0 || c.Pricing.FreeShippingThreshold < 0 {
		return fmt.Errorf("pricing values must not be negative")
	}
	return nil
}
