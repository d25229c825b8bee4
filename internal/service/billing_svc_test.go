package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/repository"
)

// ==================== 测试辅助 ====================

// fakeSales 按伙伴返回固定销售额
type fakeSales struct {
	totals map[string]int64
	errs   map[string]error
}

func (f *fakeSales) SalesTotal(ctx context.Context, partnerID string, from, to time.Time) (int64, error) {
	if err := f.errs[partnerID]; err != nil {
		return 0, err
	}
	return f.totals[partnerID], nil
}

type billingFixture struct {
	billing  *BillingService
	partners repository.PartnerRepository
	invoices repository.InvoiceRepository
	sales    *fakeSales
}

func setupBillingTest(t *testing.T) *billingFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Partner{}, &model.Invoice{}))

	partners := repository.NewPartnerRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	sales := &fakeSales{totals: make(map[string]int64), errs: make(map[string]error)}

	return &billingFixture{
		billing:  NewBillingService(DefaultBillingConfig(), partners, invoices, sales),
		partners: partners,
		invoices: invoices,
		sales:    sales,
	}
}

func (f *billingFixture) createPartner(t *testing.T, partnerID string) *model.Partner {
	t.Helper()
	p := &model.Partner{
		PartnerID:           partnerID,
		Name:                "Магазин " + partnerID,
		MonthlyFeeUSD:       499,
		SetupFeeUSD:         699,
		RevenueSharePercent: 0.04,
	}
	require.NoError(t, f.partners.Create(context.Background(), p))
	return p
}

func atDay(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
	}
}

// ==================== 月度跑账 ====================

func TestRunPartnerCycleAmounts(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-one")
	f.sales.totals[p.PartnerID] = 10_000_000

	period := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	inv, err := f.billing.RunPartnerCycle(ctx, p, period)
	require.NoError(t, err)

	// 月费 499 × 12 600 = 6 287 400；分成 ⌊10 000 000 × 0.04⌋ = 400 000
	assert.Equal(t, "202607", inv.MonthKey)
	assert.Equal(t, int64(10_000_000), inv.SalesUZS)
	assert.Equal(t, int64(6_287_400), inv.MonthlyFeeUZS)
	assert.Equal(t, int64(400_000), inv.RevenueShareUZS)
	assert.Equal(t, int64(6_687_400), inv.TotalUZS)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "INV-partne-202607", inv.InvoiceID)

	// 到期日 = 次月 1 号 + 宽限期
	wantDue := time.Date(2026, time.August, 8, 0, 0, 0, 0, time.UTC)
	assert.True(t, inv.DueAt.Equal(wantDue), "due_at = %s", inv.DueAt)

	// 欠款汇总落回伙伴记录
	got, err := f.partners.GetByPartnerID(ctx, p.PartnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(6_687_400), got.TotalDebtUZS)
}

func TestRunPartnerCycleIdempotentReplay(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-two")

	period := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	f.sales.totals[p.PartnerID] = 5_000_000
	_, err := f.billing.RunPartnerCycle(ctx, p, period)
	require.NoError(t, err)

	// 同月重跑：销售额口径变了也必须收敛到同一张账单
	f.sales.totals[p.PartnerID] = 8_000_000
	inv, err := f.billing.RunPartnerCycle(ctx, p, period)
	require.NoError(t, err)

	all, err := f.invoices.ListByPartner(ctx, p.PartnerID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(8_000_000), all[0].SalesUZS)
	assert.Equal(t, inv.TotalUZS, all[0].TotalUZS)

	got, err := f.partners.GetByPartnerID(ctx, p.PartnerID)
	require.NoError(t, err)
	assert.Equal(t, all[0].TotalUZS, got.TotalDebtUZS)
}

func TestRunMonthlyCycleIsolatesFailures(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	bad := f.createPartner(t, "partner-bad")
	good := f.createPartner(t, "partner-good")

	f.sales.errs[bad.PartnerID] = errors.New("маркетплейс недоступен")
	f.sales.totals[good.PartnerID] = 1_000_000

	period := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	f.billing.RunMonthlyCycle(ctx, period)

	// 坏伙伴只记日志；好伙伴照常出账
	_, err := f.invoices.GetByPartnerAndMonth(ctx, bad.PartnerID, "202606")
	assert.Error(t, err)

	inv, err := f.invoices.GetByPartnerAndMonth(ctx, good.PartnerID, "202606")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), inv.SalesUZS)
}

// ==================== 状态机 ====================

func TestEvaluateState(t *testing.T) {
	f := setupBillingTest(t)
	now := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)

	// 无欠款永远 active
	assert.Equal(t, BillingStateActive,
		f.billing.EvaluateState(&model.Partner{TotalDebtUZS: 0}, now))

	// 有欠款、从未付款、已过月初宽限期
	assert.Equal(t, BillingStateOverdue,
		f.billing.EvaluateState(&model.Partner{TotalDebtUZS: 100}, now))

	// 有欠款、从未付款、仍在宽限期
	early := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, BillingStateActive,
		f.billing.EvaluateState(&model.Partner{TotalDebtUZS: 100}, early))

	// 有欠款但 20 天前刚付过款
	recent := now.AddDate(0, 0, -20)
	assert.Equal(t, BillingStateActive,
		f.billing.EvaluateState(&model.Partner{TotalDebtUZS: 100, LastPaymentAt: &recent}, now))

	// 距上次付款超过 30 + 宽限
	stale := now.AddDate(0, 0, -40)
	assert.Equal(t, BillingStateOverdue,
		f.billing.EvaluateState(&model.Partner{TotalDebtUZS: 100, LastPaymentAt: &stale}, now))
}

func TestCheckWriteAllowedBlocksOverdue(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-debtor")
	require.NoError(t, f.partners.UpdateFields(ctx, p.PartnerID,
		map[string]interface{}{"total_debt_uzs": int64(6_687_400)}))

	// 月中第 20 天，欠款且从未付款 → overdue
	f.billing.SetClock(atDay(2026, time.August, 20))

	err := f.billing.CheckWriteAllowed(ctx, p.PartnerID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAccountBlocked, apperr.KindOf(err))

	details := apperr.DetailsOf(err)
	require.NotNil(t, details)
	assert.Equal(t, int64(6_687_400), details["debt_uzs"])
	assert.Contains(t, details, "due_at")

	// 封禁窗口写入伙伴记录
	got, err := f.partners.GetByPartnerID(ctx, p.PartnerID)
	require.NoError(t, err)
	require.NotNil(t, got.BlockedUntil)
	wantUntil := time.Date(2026, time.September, 3, 10, 0, 0, 0, time.UTC)
	assert.True(t, got.BlockedUntil.Equal(wantUntil), "blocked_until = %s", got.BlockedUntil)

	// 第二次直接命中 IsBlocked 短路
	err = f.billing.CheckWriteAllowed(ctx, p.PartnerID)
	assert.Equal(t, apperr.KindAccountBlocked, apperr.KindOf(err))
}

func TestCheckWriteAllowedActiveWithinGrace(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-grace")
	require.NoError(t, f.partners.UpdateFields(ctx, p.PartnerID,
		map[string]interface{}{"total_debt_uzs": int64(500_000)}))

	f.billing.SetClock(atDay(2026, time.August, 3))
	assert.NoError(t, f.billing.CheckWriteAllowed(ctx, p.PartnerID))
}

func TestCheckWriteAllowedUnknownPartner(t *testing.T) {
	f := setupBillingTest(t)
	err := f.billing.CheckWriteAllowed(context.Background(), "нет такого")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ==================== 付款 ====================

func TestRegisterPaymentSettlesOldestFirst(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-payer")

	periods := []struct {
		month time.Month
		sales int64
	}{
		{time.May, 2_500_000},
		{time.June, 5_000_000},
	}
	for _, pr := range periods {
		f.sales.totals[p.PartnerID] = pr.sales
		_, err := f.billing.RunPartnerCycle(ctx, p,
			time.Date(2026, pr.month, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	// 5 月账单 6 387 400，6 月账单 6 487 400；只够冲销最旧一张
	remaining, err := f.billing.RegisterPayment(ctx, p.PartnerID, 6_500_000)
	require.NoError(t, err)
	assert.Equal(t, int64(6_487_400), remaining)

	may, err := f.invoices.GetByPartnerAndMonth(ctx, p.PartnerID, "202605")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, may.Status)
	assert.NotNil(t, may.PaidAt)

	june, err := f.invoices.GetByPartnerAndMonth(ctx, p.PartnerID, "202606")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, june.Status)

	got, err := f.partners.GetByPartnerID(ctx, p.PartnerID)
	require.NoError(t, err)
	assert.Equal(t, int64(6_487_400), got.TotalDebtUZS)
	assert.NotNil(t, got.LastPaymentAt)
}

func TestRegisterPaymentClearsBlock(t *testing.T) {
	f := setupBillingTest(t)
	ctx := context.Background()
	p := f.createPartner(t, "partner-unblock")
	f.sales.totals[p.PartnerID] = 0
	_, err := f.billing.RunPartnerCycle(ctx, p,
		time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 先触发封禁
	f.billing.SetClock(atDay(2026, time.August, 20))
	err = f.billing.CheckWriteAllowed(ctx, p.PartnerID)
	require.Equal(t, apperr.KindAccountBlocked, apperr.KindOf(err))

	// 足额付清 → 欠款归零、封禁解除
	remaining, err := f.billing.RegisterPayment(ctx, p.PartnerID, 6_287_400)
	require.NoError(t, err)
	assert.Equal(t, int64(0), remaining)

	got, err := f.partners.GetByPartnerID(ctx, p.PartnerID)
	require.NoError(t, err)
	assert.Nil(t, got.BlockedUntil)
	assert.NoError(t, f.billing.CheckWriteAllowed(ctx, p.PartnerID))
}

func TestRegisterPaymentRejectsNonPositive(t *testing.T) {
	f := setupBillingTest(t)
	_, err := f.billing.RegisterPayment(context.Background(), "x", 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.billing.RegisterPayment(context.Background(), "x", -100)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
