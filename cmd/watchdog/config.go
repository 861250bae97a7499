package main

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/omeid/uconfig"
	"github.com/omeid/uconfig/plugins"
	"github.com/omeid/uconfig/plugins/file"
	"github.com/rs/zerolog/log"
)

// configFilename is the filename of the config document loaded once at startup.
var configFilename = "config.json"

type config struct {
	Chains    map[string]chainConfig `default:""`
	Contracts []contractConfig       `default:""`
	Rules     rulesConfig
	Alerts    alertsConfig

	Metrics struct {
		Port string `default:"9090"`
	}
	Log struct {
		Human bool   `default:"false"`
		Debug bool   `default:"false"`
		Dir   string `default:"logs"`
	}
}

type chainConfig struct {
	RPCURL  string `default:""`
	ChainID uint64 `default:"0"`
}

type contractConfig struct {
	Name    string   `default:""`
	Address string   `default:""`
	Chain   string   `default:""`
	Events  []string `default:""`
}

type rulesConfig struct {
	TransferThreshold struct {
		MinValue string `default:"1000"`
		Severity string `default:"High"`
	}
	OwnershipChange struct {
		Enabled  bool   `default:"true"`
		Severity string `default:"Critical"`
	}
}

type alertsConfig struct {
	WebhookURL       string `default:""`
	TelegramBotToken string `default:""`
	TelegramChatID   string `default:""`
}

// setupConfig loads config.json from the working directory (if present), applies the RPC_URL
// environment override for a chain named "ethereum", and returns the parsed config plus whether
// the --simulate flag was passed.
func setupConfig() (*config, bool) {
	simulate := flag.Bool("simulate", false, "run with the synthetic event simulator instead of live chain subscriptions")
	flag.Parse()

	var fplugins []plugins.Plugin
	configBytes, err := os.ReadFile(configFilename)
	if os.IsNotExist(err) {
		log.Info().Str("config_file", configFilename).Msg("config file not found, using defaults")
	} else if err != nil {
		log.Fatal().Err(err).Str("config_file", configFilename).Msg("reading config file")
	} else {
		expanded := os.ExpandEnv(string(configBytes))
		fplugins = append(fplugins, file.NewReader(strings.NewReader(expanded), json.Unmarshal))
	}

	conf := &config{}
	c, err := uconfig.Classic(&conf, file.Files{}, fplugins...)
	if err != nil {
		c.Usage()
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	applyRPCURLOverride(conf, os.Getenv("RPC_URL"))

	return conf, *simulate
}

// applyRPCURLOverride overrides the RPC URL of the chain named "ethereum" when rpcURL is
// non-empty, matching the one environment override the config schema documents.
func applyRPCURLOverride(conf *config, rpcURL string) {
	if rpcURL == "" {
		return
	}
	if rpc, ok := conf.Chains["ethereum"]; ok {
		rpc.RPCURL = rpcURL
		conf.Chains["ethereum"] = rpc
	}
}
