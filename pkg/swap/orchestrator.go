package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"multiswap/pkg/aggregator"
	"multiswap/pkg/connector"
	"multiswap/pkg/events"
	"multiswap/pkg/journal"
	"multiswap/pkg/telemetry"
	"multiswap/pkg/types"
)

// Runtime binds a chain's rules to its connector and aggregator
type Runtime struct {
	Profile       Profile
	Connector     connector.Connector
	Aggregator    aggregator.Aggregator
	AwaitFinality bool
}

// Service runs the swap pipeline for every registered chain
type Service struct {
	chains    map[types.Chain]*Runtime
	lock      WalletLock
	journal   journal.Store
	journaled bool
	events    events.Publisher
	log       zerolog.Logger
	tracer    trace.Tracer
}

// Option customizes a Service
type Option func(*Service)

// WithLock replaces the in-process wallet lock
func WithLock(l WalletLock) Option {
	return func(s *Service) { s.lock = l }
}

// WithJournal records an intent before every signature
func WithJournal(store journal.Store) Option {
	return func(s *Service) {
		if store == nil {
			return
		}
		s.journal = store
		_, nop := store.(journal.Nop)
		s.journaled = !nop
	}
}

// WithPublisher emits a SwapEvent after every broadcast
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// NewService creates a service with no chains registered
func NewService(log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		chains:  make(map[types.Chain]*Runtime),
		lock:    NewLocalLock(),
		journal: journal.Nop{},
		events:  events.Nop{},
		log:     log,
		tracer:  otel.Tracer("multiswap/swap"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register enables a chain
func (s *Service) Register(rt Runtime) error {
	if rt.Connector == nil || rt.Aggregator == nil {
		return fmt.Errorf("chain %s needs a connector and an aggregator", rt.Profile.Chain)
	}
	if rt.Connector.Chain() != rt.Profile.Chain {
		return fmt.Errorf("connector for %s registered under %s", rt.Connector.Chain(), rt.Profile.Chain)
	}
	if _, exists := s.chains[rt.Profile.Chain]; exists {
		return fmt.Errorf("chain %s already registered", rt.Profile.Chain)
	}
	registered := rt
	s.chains[rt.Profile.Chain] = &registered
	return nil
}

// Chains returns the enabled chains
func (s *Service) Chains() []types.Chain {
	chains := make([]types.Chain, 0, len(s.chains))
	for _, chain := range []types.Chain{types.ChainSolana, types.ChainBase, types.ChainAptos} {
		if _, ok := s.chains[chain]; ok {
			chains = append(chains, chain)
		}
	}
	return chains
}

// Wallet returns the signing address used on chain
func (s *Service) Wallet(chain types.Chain) (types.Wallet, error) {
	rt, err := s.runtime(chain)
	if err != nil {
		return types.Wallet{}, err
	}
	return types.Wallet{Chain: chain, Address: rt.Connector.Address()}, nil
}

// Ping probes the chain's RPC endpoint
func (s *Service) Ping(ctx context.Context, chain types.Chain) error {
	rt, err := s.runtime(chain)
	if err != nil {
		return err
	}
	return rt.Connector.Ping(ctx)
}

// Intent looks up a journaled swap
func (s *Service) Intent(ctx context.Context, id string) (*journal.Intent, error) {
	return s.journal.Get(ctx, id)
}

// Close releases connectors, the journal and the publisher
func (s *Service) Close() {
	for _, rt := range s.chains {
		rt.Connector.Close()
	}
	if err := s.journal.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close journal")
	}
	if err := s.events.Close(); err != nil {
		s.log.Warn().Err(err).Msg("failed to close event publisher")
	}
}

func (s *Service) runtime(chain types.Chain) (*Runtime, error) {
	rt, ok := s.chains[chain]
	if !ok {
		return nil, fmt.Errorf("%w: chain %q is not enabled", types.ErrInvalidRequest, chain)
	}
	return rt, nil
}

// Swap validates req, gates it on balances, quotes, builds, signs and
// broadcasts. Nothing is retried.
func (s *Service) Swap(ctx context.Context, chain types.Chain, req types.SwapRequest) (receipt *types.SwapReceipt, err error) {
	ctx, span := s.tracer.Start(ctx, "swap", trace.WithAttributes(attribute.String("chain", string(chain))))
	defer func() {
		outcome := telemetry.OutcomeSuccess
		switch {
		case err == nil:
		case types.IsClientError(err):
			outcome = telemetry.OutcomeRejected
		default:
			outcome = telemetry.OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		telemetry.SwapsTotal.WithLabelValues(string(chain), outcome).Inc()
		span.End()
	}()

	rt, err := s.runtime(chain)
	if err != nil {
		return nil, err
	}
	log := s.log.With().Str("chain", string(chain)).Logger()

	// 1. Validate
	plan, err := rt.Profile.Resolve(req)
	if err != nil {
		return nil, err
	}

	release, err := s.lock.Acquire(ctx, string(chain)+":"+rt.Connector.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: wallet lock: %v", types.ErrConnector, err)
	}
	defer release()

	// 2. Pre-flight balance gates
	var units string
	err = s.step(ctx, chain, "preflight", func(ctx context.Context) error {
		if err := checkFees(ctx, rt); err != nil {
			return err
		}
		amount, err := checkFunds(ctx, rt, plan)
		if err != nil {
			return err
		}
		units = amount.String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 3. Quote
	var quote *types.QuoteRecord
	err = s.step(ctx, chain, "quote", func(ctx context.Context) error {
		quote, err = rt.Aggregator.Quote(ctx, plan.InputToken, plan.OutputToken, units)
		return err
	})
	if err != nil {
		return nil, err
	}
	if quote.InAmount != units {
		log.Warn().
			Str("requested", units).
			Str("quoted", quote.InAmount).
			Str("aggregator", rt.Aggregator.Name()).
			Msg("quote input amount differs from requested amount")
	}

	// 4. Build
	var build *types.BuildRecord
	err = s.step(ctx, chain, "build", func(ctx context.Context) error {
		build, err = rt.Aggregator.BuildSwap(ctx, quote, rt.Connector.Address())
		if err == nil && (build == nil || len(build.Payload) == 0) {
			err = types.ErrBuildUnavailable
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	intent := journal.NewIntent(string(chain), rt.Connector.Address(), string(plan.Direction), plan.InputToken, plan.OutputToken, units)
	if err := s.journal.Record(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to record swap intent: %w", err)
	}

	// 5. Sign and broadcast
	var txid string
	err = s.step(ctx, chain, "broadcast", func(ctx context.Context) error {
		txid, err = rt.Connector.SignAndBroadcast(ctx, build)
		return err
	})
	if err != nil {
		s.updateIntent(ctx, intent.ID, journal.StatusFailed, "", err)
		return nil, err
	}
	s.updateIntent(ctx, intent.ID, journal.StatusBroadcast, txid, nil)
	log.Info().Str("txid", txid).Str("amount", units).Msg("swap broadcast")

	// 6. Confirm
	if rt.AwaitFinality {
		err = s.step(ctx, chain, "confirm", func(ctx context.Context) error {
			return rt.Connector.AwaitFinality(ctx, txid, build)
		})
		if err != nil {
			s.updateIntent(ctx, intent.ID, journal.StatusFailed, txid, err)
			return nil, err
		}
		s.updateIntent(ctx, intent.ID, journal.StatusConfirmed, txid, nil)
	}

	// 7. Respond
	receipt = &types.SwapReceipt{
		Success:  true,
		TxID:     txid,
		Explorer: rt.Connector.Explorer(txid),
		AmountIn: json.Number(plan.Amount),
	}
	if rt.Profile.ReportDirection {
		receipt.Direction = plan.Direction
	} else {
		receipt.AmountOut = quote.OutAmount
		if receipt.AmountOut == "" {
			receipt.AmountOut = "0"
		}
	}
	if s.journaled {
		receipt.IntentID = intent.ID
	}

	s.publish(ctx, rt, plan, receipt, units)
	return receipt, nil
}

func (s *Service) step(ctx context.Context, chain types.Chain, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "swap."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	telemetry.ObserveStep(string(chain), name, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) updateIntent(ctx context.Context, id string, status journal.Status, txid string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	// the swap outcome does not depend on the journal once signing started
	if err := s.journal.Update(context.WithoutCancel(ctx), id, status, txid, msg); err != nil && !errors.Is(err, journal.ErrNotFound) {
		s.log.Error().Err(err).Str("intent", id).Str("status", string(status)).Msg("failed to update swap intent")
	}
}

func (s *Service) publish(ctx context.Context, rt *Runtime, plan *Plan, receipt *types.SwapReceipt, units string) {
	event := events.SwapEvent{
		IntentID:    receipt.IntentID,
		Chain:       string(rt.Profile.Chain),
		Wallet:      rt.Connector.Address(),
		Direction:   string(plan.Direction),
		InputToken:  plan.InputToken,
		OutputToken: plan.OutputToken,
		AmountIn:    units,
		AmountOut:   receipt.AmountOut,
		TxID:        receipt.TxID,
		Explorer:    receipt.Explorer,
		Confirmed:   rt.AwaitFinality,
		Timestamp:   time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("txid", receipt.TxID).Msg("failed to publish swap event")
	}
}
