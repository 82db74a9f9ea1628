/**
 * @description
 * Configuration for the MonetizeGram service. Values come from environment
 * variables, optionally seeded from a .env file, and are normalised after
 * unmarshalling so the rest of the service can trust them.
 *
 * @dependencies
 * - github.com/spf13/viper: environment binding and defaults.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the service.
type Config struct {
	ServerPort                 string  `mapstructure:"SERVER_PORT"`
	DatabaseURL                string  `mapstructure:"DATABASE_URL"`
	BotToken                   string  `mapstructure:"BOT_TOKEN"`
	SuperAdminID               int64   `mapstructure:"SUPER_ADMIN_ID"`
	SuperAdminUsername         string  `mapstructure:"SUPER_ADMIN_USERNAME"`
	PlatformCommissionPercent  float64 `mapstructure:"PLATFORM_COMMISSION_PERCENT"`
	MinimumWithdrawalRupees    int64   `mapstructure:"MINIMUM_WITHDRAWAL_AMOUNT"`
	AutomationSecret           string  `mapstructure:"AUTOMATION_SECRET"`
	SuperAdminSecret           string  `mapstructure:"SUPER_ADMIN_SECRET"`
	CronSecret                 string  `mapstructure:"CRON_SECRET"`
	PublicURL                  string  `mapstructure:"PUBLIC_URL"`
	PendingPaymentTTLMinutes   int     `mapstructure:"PENDING_PAYMENT_TTL_MINUTES"`
	AllocatorMaxBaseOffset     int64   `mapstructure:"ALLOCATOR_MAX_BASE_OFFSET"`
	AllocatorMaxProbes         int     `mapstructure:"ALLOCATOR_MAX_PROBES"`
	InviteLinkTTLHours         int     `mapstructure:"INVITE_LINK_TTL_HOURS"`
	BannedOwnerRetentionDays   int     `mapstructure:"BANNED_OWNER_RETENTION_DAYS"`
	SubscriptionSweepSchedule  string  `mapstructure:"SUBSCRIPTION_SWEEP_SCHEDULE"`
	RedisURL                   string  `mapstructure:"REDIS_URL"`
	RedisKeyPrefix             string  `mapstructure:"REDIS_KEY_PREFIX"`
	SessionTTLMinutes          int     `mapstructure:"SESSION_TTL_MINUTES"`
	CheckoutRateLimitPerMinute int     `mapstructure:"CHECKOUT_RATE_LIMIT_PER_MINUTE"`
	RabbitMQURL                string  `mapstructure:"RABBITMQ_URL"`
	EventsExchange             string  `mapstructure:"EVENTS_EXCHANGE"`
	SMSInboxQueue              string  `mapstructure:"SMS_INBOX_QUEUE"`
	LogLevel                   string  `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PLATFORM_COMMISSION_PERCENT", 10.0)
	viper.SetDefault("MINIMUM_WITHDRAWAL_AMOUNT", 100)
	viper.SetDefault("PENDING_PAYMENT_TTL_MINUTES", 120)
	viper.SetDefault("ALLOCATOR_MAX_BASE_OFFSET", 5)
	viper.SetDefault("ALLOCATOR_MAX_PROBES", 500)
	viper.SetDefault("INVITE_LINK_TTL_HOURS", 24)
	viper.SetDefault("BANNED_OWNER_RETENTION_DAYS", 7)
	viper.SetDefault("SUBSCRIPTION_SWEEP_SCHEDULE", "@every 15m")
	viper.SetDefault("REDIS_KEY_PREFIX", "monetizegram")
	viper.SetDefault("SESSION_TTL_MINUTES", 60)
	viper.SetDefault("CHECKOUT_RATE_LIMIT_PER_MINUTE", 5)
	viper.SetDefault("EVENTS_EXCHANGE", "monetizegram.events")
	viper.SetDefault("SMS_INBOX_QUEUE", "monetizegram.sms_inbox")
	viper.SetDefault("LOG_LEVEL", "info")

	// Bind environment variables explicitly so they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("BOT_TOKEN", "BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = viper.BindEnv("SUPER_ADMIN_ID")
	_ = viper.BindEnv("SUPER_ADMIN_USERNAME")
	_ = viper.BindEnv("PLATFORM_COMMISSION_PERCENT")
	_ = viper.BindEnv("MINIMUM_WITHDRAWAL_AMOUNT")
	_ = viper.BindEnv("AUTOMATION_SECRET")
	_ = viper.BindEnv("SUPER_ADMIN_SECRET")
	_ = viper.BindEnv("CRON_SECRET")
	_ = viper.BindEnv("PUBLIC_URL", "PUBLIC_URL", "RENDER_EXTERNAL_URL")
	_ = viper.BindEnv("PENDING_PAYMENT_TTL_MINUTES")
	_ = viper.BindEnv("ALLOCATOR_MAX_BASE_OFFSET")
	_ = viper.BindEnv("ALLOCATOR_MAX_PROBES")
	_ = viper.BindEnv("INVITE_LINK_TTL_HOURS")
	_ = viper.BindEnv("BANNED_OWNER_RETENTION_DAYS")
	_ = viper.BindEnv("SUBSCRIPTION_SWEEP_SCHEDULE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("SESSION_TTL_MINUTES")
	_ = viper.BindEnv("CHECKOUT_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("SMS_INBOX_QUEUE")
	_ = viper.BindEnv("LOG_LEVEL")

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.BotToken = strings.TrimSpace(config.BotToken)
	config.SuperAdminUsername = strings.TrimPrefix(strings.TrimSpace(config.SuperAdminUsername), "@")
	config.AutomationSecret = strings.TrimSpace(config.AutomationSecret)
	config.SuperAdminSecret = strings.TrimSpace(config.SuperAdminSecret)
	config.CronSecret = strings.TrimSpace(config.CronSecret)
	config.PublicURL = strings.TrimRight(strings.TrimSpace(config.PublicURL), "/")
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "monetizegram"
	}
	config.SubscriptionSweepSchedule = strings.TrimSpace(config.SubscriptionSweepSchedule)
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))

	if config.PlatformCommissionPercent < 0 {
		log.Printf("level=warn component=config msg=\"negative commission percent configured; coercing to zero\" percent=%f", config.PlatformCommissionPercent)
		config.PlatformCommissionPercent = 0
	}
	if config.PlatformCommissionPercent > 100 {
		log.Printf("level=warn component=config msg=\"commission percent too high; capping at 100\" percent=%f", config.PlatformCommissionPercent)
		config.PlatformCommissionPercent = 100
	}
	if config.MinimumWithdrawalRupees < 0 {
		log.Printf("level=warn component=config msg=\"negative minimum withdrawal configured; coercing to zero\" amount=%d", config.MinimumWithdrawalRupees)
		config.MinimumWithdrawalRupees = 0
	}
	if config.PendingPaymentTTLMinutes <= 0 {
		config.PendingPaymentTTLMinutes = 120
	}
	if config.AllocatorMaxBaseOffset <= 0 {
		config.AllocatorMaxBaseOffset = 5
	}
	if config.AllocatorMaxProbes <= 0 {
		config.AllocatorMaxProbes = 500
	}
	if config.InviteLinkTTLHours <= 0 {
		config.InviteLinkTTLHours = 24
	}
	if config.BannedOwnerRetentionDays <= 0 {
		config.BannedOwnerRetentionDays = 7
	}
	if config.SessionTTLMinutes <= 0 {
		config.SessionTTLMinutes = 60
	}
	if config.CheckoutRateLimitPerMinute <= 0 {
		config.CheckoutRateLimitPerMinute = 5
	}

	return
}

// Validate reports the first missing setting the service cannot start without.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("DATABASE_URL is required")
	case c.BotToken == "":
		return errors.New("BOT_TOKEN is required")
	case c.SuperAdminID == 0:
		return errors.New("SUPER_ADMIN_ID is required")
	case c.CronSecret == "":
		return errors.New("CRON_SECRET is required")
	}
	return nil
}

// PendingPaymentTTL is how long an allocated amount stays claimable.
func (c Config) PendingPaymentTTL() time.Duration {
	return time.Duration(c.PendingPaymentTTLMinutes) * time.Minute
}

// InviteLinkTTL is the lifetime of minted single-use invite links.
func (c Config) InviteLinkTTL() time.Duration {
	return time.Duration(c.InviteLinkTTLHours) * time.Hour
}

// BannedOwnerRetention is how long banned owner rows survive before purge.
func (c Config) BannedOwnerRetention() time.Duration {
	return time.Duration(c.BannedOwnerRetentionDays) * 24 * time.Hour
}

// SessionTTL bounds how long an idle conversation step is remembered.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// MinimumWithdrawal is the smallest payout an owner may request, in paise.
func (c Config) MinimumWithdrawal() int64 {
	return c.MinimumWithdrawalRupees * 100
}

// SweepEnabled reports whether the in-process expiry schedule should run.
func (c Config) SweepEnabled() bool {
	return c.SubscriptionSweepSchedule != "" && !strings.EqualFold(c.SubscriptionSweepSchedule, "off")
}
