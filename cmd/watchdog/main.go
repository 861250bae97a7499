package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
	"github.com/textileio/cli"
	"golang.org/x/sync/errgroup"

	"github.com/chainwatch-labs/evm-watchdog/buildinfo"
	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
	"github.com/chainwatch-labs/evm-watchdog/pkg/chainfeed"
	"github.com/chainwatch-labs/evm-watchdog/pkg/dashboard"
	"github.com/chainwatch-labs/evm-watchdog/pkg/logging"
	"github.com/chainwatch-labs/evm-watchdog/pkg/metrics"
	"github.com/chainwatch-labs/evm-watchdog/pkg/notify"
	"github.com/chainwatch-labs/evm-watchdog/pkg/simulator"
)

const eventChannelCapacity = 100

func main() {
	conf, simulate := setupConfig()

	logging.SetupLogger(buildinfo.String(), conf.Log.Dir, conf.Log.Debug, conf.Log.Human)

	if err := metrics.SetupInstrumentation(":"+conf.Metrics.Port, "evm-watchdog"); err != nil {
		log.Fatal().Err(err).Str("port", conf.Metrics.Port).Msg("could not set up instrumentation")
	}

	selected := map[string]bool{}
	if !simulate && len(conf.Chains) > 0 {
		for _, name := range selectChains(os.Stdout, os.Stdin, conf.Chains) {
			selected[name] = true
		}
	} else {
		for name := range conf.Chains {
			selected[name] = true
		}
	}

	state := watchdog.NewAppState()
	events := make(chan watchdog.NormalizedEvent, eventChannelCapacity)

	ctx, cancel := context.WithCancel(context.Background())

	// Each background task below runs against ctx directly (never a shared errgroup-derived
	// context): one chain's subscription error, or the simulator's, or the orchestrator's, must
	// never cancel the others. Only the dashboard's own exit or a top-level SIGINT (via ctx) ends
	// the process. g is used purely to wait for every task to unwind on shutdown.
	var g errgroup.Group

	chainNames := make([]string, 0, len(selected))
	for name := range selected {
		chainNames = append(chainNames, name)
		subscriber, err := buildSubscriber(name, conf, state)
		if err != nil {
			log.Error().Err(err).Str("chain", name).Msg("skipping chain: failed to connect")
			continue
		}
		sub, chainName := subscriber, name
		g.Go(func() error {
			if err := sub.Run(ctx, events); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("chain", chainName).Msg("chain subscriber terminated, other chains continue")
			}
			return nil
		})
	}

	if simulate {
		chainNames = append(chainNames, "Simulation")
		sim := simulator.New(log.Logger, time.Now().UnixNano())
		g.Go(func() error {
			if err := sim.Run(ctx, events); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("simulator terminated")
			}
			return nil
		})
	}

	rules := buildRuleEngine(conf)
	dispatcher, err := buildDispatcher(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("building alert dispatcher")
	}

	orch := watchdog.NewOrchestrator(log.Logger, state, rules, dispatcher)
	g.Go(func() error {
		if err := orch.Run(ctx, events); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("orchestrator terminated")
		}
		return nil
	})

	dash := dashboard.New(log.Logger, state)
	dashErrCh := make(chan error, 1)
	go func() { dashErrCh <- dash.Run(ctx, chainNames) }()

	cli.HandleInterrupt(cancel)

	select {
	case err := <-dashErrCh:
		cancel()
		if err != nil {
			// Printed directly to stderr, bypassing the zerolog pipeline, since the terminal has
			// just been restored and this is the one error the operator needs on the console.
			fmt.Fprintln(os.Stderr, err)
		}
	case <-ctx.Done():
	}

	cancel()
	_ = g.Wait()
}

func buildSubscriber(name string, conf *config, state *watchdog.AppState) (*chainfeed.Subscriber, error) {
	cc := conf.Chains[name]
	client, err := ethclient.Dial(cc.RPCURL)
	if err != nil {
		return nil, err
	}

	var contracts []chainfeed.Contract
	for _, c := range conf.Contracts {
		if c.Chain != name {
			continue
		}
		contracts = append(contracts, chainfeed.Contract{
			Name:    c.Name,
			Address: common.HexToAddress(c.Address),
		})
	}

	chain := chainfeed.Chain{Name: name, ChainID: cc.ChainID}
	return chainfeed.New(log.Logger, chain, client, contracts, state), nil
}

func buildRuleEngine(conf *config) *watchdog.RuleEngine {
	var rules []watchdog.Rule

	rules = append(rules, watchdog.NewThresholdRule(
		conf.Rules.TransferThreshold.MinValue,
		watchdog.ParseSeverity(conf.Rules.TransferThreshold.Severity),
	))

	if conf.Rules.OwnershipChange.Enabled {
		rules = append(rules, watchdog.NewOwnershipRule(
			watchdog.ParseSeverity(conf.Rules.OwnershipChange.Severity),
		))
	}

	rules = append(rules, watchdog.NewHighApprovalRule(nil, watchdog.Critical))

	return watchdog.NewRuleEngine(rules...)
}

func buildDispatcher(conf *config) (*watchdog.AlertDispatcher, error) {
	webhook, err := notify.NewWebhook(log.Logger, conf.Alerts.WebhookURL)
	if err != nil {
		return nil, err
	}
	telegram := notify.NewTelegram(log.Logger, conf.Alerts.TelegramBotToken, conf.Alerts.TelegramChatID)

	return watchdog.NewAlertDispatcher(log.Logger, webhook, telegram)
}
