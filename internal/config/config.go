package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/origins-network/sale-engine/common"
	lockedfundconfig "github.com/origins-network/sale-engine/modules/lockedfund/config"
	saleconfig "github.com/origins-network/sale-engine/modules/sale/config"
	"github.com/origins-network/sale-engine/pkg/logger"
	"github.com/origins-network/sale-engine/pkg/logger/slogx"
	"github.com/origins-network/sale-engine/pkg/middleware/requestcontext"
	"github.com/origins-network/sale-engine/pkg/middleware/requestlogger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configOnce sync.Once
	config     = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServer{
			Port: 8080,
		},
	}
)

type Config struct {
	Logger        logger.Config  `mapstructure:"logger"`
	Network       common.Network `mapstructure:"network"`
	EnableModules []string       `mapstructure:"enable_modules"`
	APIOnly       bool           `mapstructure:"api_only"`
	HTTPServer    HTTPServer     `mapstructure:"http_server"`
	Modules       Modules        `mapstructure:"modules"`
}

type HTTPServer struct {
	Port      int                               `mapstructure:"port"`
	Logger    requestlogger.Config              `mapstructure:"logger"`
	RequestIP requestcontext.WithClientIPConfig `mapstructure:"request_ip"`
}

type Modules struct {
	Sale       saleconfig.Config       `mapstructure:"sale"`
	LockedFund lockedfundconfig.Config `mapstructure:"lockedfund"`
}

// Load reads the configuration once from config.yaml and the environment.
func Load() Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))
	configOnce.Do(func() {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotfound viper.ConfigFileNotFoundError
			if errors.As(err, &errNotfound) {
				logger.WarnContext(ctx, "config file not found, use default value", slogx.Error(err))
			} else {
				logger.PanicContext(ctx, "invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&config); err != nil {
			logger.PanicContext(ctx, "failed to unmarshal config", slogx.Error(err))
		}
	})

	return *config
}

// Parse loads the configuration from the given file. An empty path falls
// back to the default search path.
func Parse(configFile string) Config {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
	return Load()
}

// BindPFlag binds a command-line flag to a configuration key.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("failed to bind flag to config", slogx.Error(err), slogx.String("key", key))
	}
}
