package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	BaseURL           string `mapstructure:"BASE_URL"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr         string `mapstructure:"REDIS_ADDR"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB    int    `mapstructure:"REDIS_SESSION_DB"`
	RedisSettlementDB int    `mapstructure:"REDIS_SETTLEMENT_DB"`
	RedisTaskQueueDB  int    `mapstructure:"REDIS_TASK_QUEUE_DB"`

	// Gemini (conversation and slot extraction).
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Amadeus flight search.
	AmadeusClientID     string `mapstructure:"AMADEUS_CLIENT_ID"`
	AmadeusClientSecret string `mapstructure:"AMADEUS_CLIENT_SECRET"`

	// Stripe card checkout.
	StripeKey           string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Messaging channels.
	TelegramBotToken      string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookSecret string `mapstructure:"TELEGRAM_WEBHOOK_SECRET"`
	TwilioAccountSID      string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken       string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppNumber  string `mapstructure:"TWILIO_WHATSAPP_NUMBER"`

	// Circle USDC payment intents.
	CircleAPIKey  string `mapstructure:"CIRCLE_API_KEY"`
	CircleBaseURL string `mapstructure:"CIRCLE_API_BASE_URL"`

	// Circle Layer on-chain settlement.
	CircleLayerRPCURL           string `mapstructure:"CIRCLE_LAYER_RPC_URL"`
	CircleLayerChainID          int64  `mapstructure:"CIRCLE_LAYER_CHAIN_ID"`
	CircleLayerUSDCAddress      string `mapstructure:"CIRCLE_LAYER_USDC_ADDRESS"`
	CircleLayerMerchantXPub     string `mapstructure:"CIRCLE_LAYER_MERCHANT_XPUB"`
	CircleLayerMinConfirmations uint64 `mapstructure:"CIRCLE_LAYER_MIN_CONFIRMATIONS"`

	// Cloudinary ticket storage.
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("BASE_URL", "http://127.0.0.1:8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_SETTLEMENT_DB", 1)
	viper.SetDefault("REDIS_TASK_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("CIRCLE_API_BASE_URL", "https://api-sandbox.circle.com/v1")
	viper.SetDefault("CIRCLE_LAYER_MIN_CONFIRMATIONS", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
