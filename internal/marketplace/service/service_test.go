package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentmodels "agentmemory/internal/agent/models"
	agentstore "agentmemory/internal/agent/store"
	"agentmemory/internal/events"
	"agentmemory/internal/ledger"
	"agentmemory/internal/marketplace/models"
	"agentmemory/internal/marketplace/store"
	"agentmemory/pkg/domain"
	dErrors "agentmemory/pkg/domain-errors"
	"agentmemory/pkg/requestcontext"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func wallet(seed string) domain.Address {
	return domain.DeriveAddress("wallet", []byte(seed))
}

func ctxAs(seed string) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), wallet(seed))
	return requestcontext.WithTime(ctx, baseTime)
}

type fixture struct {
	svc      *Service
	agents   *agentstore.InMemory
	ledger   *ledger.InMemory
	recorder *events.InMemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	recorder := events.NewInMemoryStore()
	agents := agentstore.NewInMemory()
	l := ledger.NewInMemory()
	svc := New(
		store.NewInMemoryConfig(),
		store.NewInMemoryModules(),
		store.NewInMemoryPurchases(),
		agents,
		l,
		events.NewStorePublisher(recorder),
		nil,
	)
	return &fixture{svc: svc, agents: agents, ledger: l, recorder: recorder}
}

func (f *fixture) initPlatform(t *testing.T) *models.PlatformConfig {
	t.Helper()
	cfg, err := f.svc.InitializePlatform(ctxAs("admin"), wallet("treasury"), 500, 500)
	require.NoError(t, err)
	return cfg
}

func (f *fixture) registerAgent(t *testing.T, agentID, authoritySeed string) *agentmodels.Agent {
	t.Helper()
	agent, err := agentmodels.NewAgent(agentID, wallet(authoritySeed), baseTime)
	require.NoError(t, err)
	require.NoError(t, f.agents.Create(context.Background(), agent))
	return agent
}

func (f *fixture) balance(t *testing.T, seed string) uint64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), wallet(seed))
	require.NoError(t, err)
	return balance
}

func TestInitializePlatform(t *testing.T) {
	f := newFixture(t)

	cfg := f.initPlatform(t)
	assert.Equal(t, wallet("treasury"), cfg.Treasury)
	assert.Equal(t, uint16(500), cfg.PlatformFeeBps)

	got, err := f.svc.GetPlatform(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.Address, got.Address)

	// Singleton: a second initialization collides.
	_, err = f.svc.InitializePlatform(ctxAs("other"), wallet("treasury2"), 100, 100)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestInitializePlatformFeeBounds(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.InitializePlatform(ctxAs("admin"), wallet("treasury"), 1001, 0)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.svc.InitializePlatform(ctxAs("admin"), wallet("treasury"), 0, 1001)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.svc.InitializePlatform(ctxAs("admin"), domain.Address{}, 100, 100)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.svc.InitializePlatform(ctxAs("admin"), wallet("treasury"), 1000, 1000)
	assert.NoError(t, err)
}

func TestGetPlatformNotInitialized(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetPlatform(context.Background())
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestRegisterModule(t *testing.T) {
	f := newFixture(t)

	module, err := f.svc.RegisterModule(ctxAs("carol"), "sentiment-v1", 10_000_000, 250, "ipfs://cid")
	require.NoError(t, err)
	assert.Equal(t, wallet("carol"), module.Creator)
	assert.True(t, module.IsActive)
	assert.Zero(t, module.TotalSales)

	_, err = f.svc.RegisterModule(ctxAs("other"), "sentiment-v1", 10_000_000, 0, "")
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestRegisterModulePricingBounds(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", models.MinPrice-1, 0, "")
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	_, err = f.svc.RegisterModule(ctxAs("carol"), "m", models.MinPrice, 10001, "")
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	// Full 100% royalty intent is the inclusive ceiling.
	_, err = f.svc.RegisterModule(ctxAs("carol"), "m", models.MinPrice, 10000, "")
	assert.NoError(t, err)
}

func TestUpdatePricing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 250, "")
	require.NoError(t, err)

	module, err := f.svc.UpdatePricing(ctxAs("carol"), "m", 20_000_000, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000_000), module.Price)
	assert.Equal(t, uint16(500), module.RoyaltyBps)
	assert.Zero(t, module.TotalSales)
	assert.Zero(t, module.TotalRevenue)

	_, err = f.svc.UpdatePricing(ctxAs("mallory"), "m", 30_000_000, 0)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))

	_, err = f.svc.UpdatePricing(ctxAs("carol"), "m", models.MinPrice-1, 0)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)

	_, err = f.svc.Deactivate(ctxAs("mallory"), "m")
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))

	module, err := f.svc.Deactivate(ctxAs("carol"), "m")
	require.NoError(t, err)
	assert.False(t, module.IsActive)

	// Irreversible, and a second deactivation is a state conflict.
	_, err = f.svc.Deactivate(ctxAs("carol"), "m")
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestPurchaseWithReferrer(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 250, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 10_000_000))

	referrer := wallet("referrer")
	purchase, split, err := f.svc.Purchase(ctxAs("alice"), "trader-1", "m", &referrer)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), purchase.PricePaid)
	assert.Equal(t, uint64(500_000), split.PlatformFee)
	assert.Equal(t, uint64(9_000_000), split.CreatorAmount)
	assert.Equal(t, uint64(500_000), split.ReferralFee)

	assert.Equal(t, uint64(0), f.balance(t, "alice"))
	assert.Equal(t, uint64(500_000), f.balance(t, "treasury"))
	assert.Equal(t, uint64(9_000_000), f.balance(t, "carol"))
	assert.Equal(t, uint64(500_000), f.balance(t, "referrer"))

	module, err := f.svc.GetModule(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), module.TotalSales)
	assert.Equal(t, uint64(10_000_000), module.TotalRevenue)

	all := f.recorder.All()
	last := all[len(all)-1]
	assert.Equal(t, events.ActionModulePurchased, last.Action)
	require.NotNil(t, last.PlatformFee)
	assert.Equal(t, uint64(500_000), *last.PlatformFee)
	require.NotNil(t, last.CreatorAmount)
	assert.Equal(t, uint64(9_000_000), *last.CreatorAmount)
}

func TestPurchaseWithoutReferrer(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 10_000_000))

	_, split, err := f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), split.ReferralFee)
	assert.Equal(t, uint64(9_500_000), split.CreatorAmount)
	assert.Equal(t, uint64(9_500_000), f.balance(t, "carol"))
}

func TestPurchaseExactlyOncePerAgent(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 30_000_000))

	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	require.NoError(t, err)

	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))

	// Nothing moved and the counters did not advance on the replay.
	assert.Equal(t, uint64(20_000_000), f.balance(t, "alice"))
	module, err := f.svc.GetModule(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), module.TotalSales)
	assert.Equal(t, uint64(10_000_000), module.TotalRevenue)
}

func TestPurchaseInactiveModule(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "creators-agent", "carol")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)
	_, err = f.svc.Deactivate(ctxAs("carol"), "m")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("carol"), 10_000_000))

	// Inactive means nobody can buy, the creator included.
	_, _, err = f.svc.Purchase(ctxAs("carol"), "creators-agent", "m", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestPurchaseInsufficientFundsRollsBackReceipt(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 5_000_000))

	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
	assert.Equal(t, uint64(5_000_000), f.balance(t, "alice"))

	module, err := f.svc.GetModule(context.Background(), "m")
	require.NoError(t, err)
	assert.Zero(t, module.TotalSales)

	// The receipt was rolled back, so a funded retry goes through.
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 5_000_000))
	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	assert.NoError(t, err)
}

func TestPurchaseRequiresPlatform(t *testing.T) {
	f := newFixture(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)

	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeConflict))
}

func TestPurchaseRequiresAgentAuthority(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)

	_, _, err = f.svc.Purchase(ctxAs("mallory"), "trader-1", "m", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
}

func TestPurchaseRejectsZeroReferrer(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)

	zero := domain.Address{}
	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", &zero)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestGetPurchase(t *testing.T) {
	f := newFixture(t)
	f.initPlatform(t)
	agent := f.registerAgent(t, "trader-1", "alice")
	_, err := f.svc.RegisterModule(ctxAs("carol"), "m", 10_000_000, 0, "")
	require.NoError(t, err)
	require.NoError(t, f.ledger.Mint(context.Background(), wallet("alice"), 10_000_000))

	_, _, err = f.svc.Purchase(ctxAs("alice"), "trader-1", "m", nil)
	require.NoError(t, err)

	purchase, err := f.svc.GetPurchase(context.Background(), "trader-1", "m")
	require.NoError(t, err)
	assert.Equal(t, agent.Address, purchase.Agent)
	assert.Equal(t, models.DeriveModuleAddress("m"), purchase.Module)

	_, err = f.svc.GetPurchase(context.Background(), "trader-1", "other")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
