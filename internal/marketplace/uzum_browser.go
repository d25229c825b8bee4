package marketplace

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
	"uzum_erp_v1_202608/pkg/uzum"
)

// ==================== 向导状态机 ====================

// 每个商品走一遍完整状态链；任一迁移失败即该迁移的终态失败，
// 但已走完的状态保留在 StepsCompleted 里供审计
const (
	StatePageLoaded               = "page_loaded"
	StateCategorySelected         = "category_selected"
	StateFieldsFilled             = "fields_filled"
	StateStep1Saved               = "step1_saved"
	StateSkuAndIkpuFilled         = "sku_and_ikpu_filled"
	StatePriceAndDimensionsFilled = "price_and_dimensions_filled"
	StateStep2Saved               = "step2_saved"
	StateFinished                 = "finished"
)

// UzumBrowser 卖家后台浏览器适配器
// uzum 没有商品创建 API，只能驱动 <sx-products> 向导；
// 同一伙伴的会话互斥，保证向导状态不被并发打断
type UzumBrowser struct {
	session Session
	wizard  *shadowDOM // 穿透 <sx-products>
	page    *shadowDOM // 普通 DOM（登录页）
	cred    *service.Credential

	mu       sync.Mutex
	loggedIn bool
	shopID   string
}

// NewUzumBrowser 创建浏览器适配器；凭证需已解密
func NewUzumBrowser(session Session, cred *service.Credential) *UzumBrowser {
	return &UzumBrowser{
		session: session,
		wizard:  newShadowDOM(session, uzum.HostComponent),
		page:    newShadowDOM(session, ""),
		cred:    cred,
	}
}

// ==================== 登录 ====================

// ensureLogin 手机号+密码登录；成功判据是提交后 URL 不再含 /signin
// 登录失败直接短路后续全部操作
func (b *UzumBrowser) ensureLogin(ctx context.Context) error {
	if b.loggedIn {
		return nil
	}

	if err := b.session.Navigate(ctx, uzum.LoginURL); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "打开登录页失败", err)
	}
	if err := b.page.setValue(ctx, uzum.SelLoginPhone, b.cred.Login); err != nil {
		return apperr.Wrap(apperr.KindAuthFailed, "填写手机号失败", err)
	}
	if err := b.page.setValue(ctx, uzum.SelLoginPassword, b.cred.Password); err != nil {
		return apperr.Wrap(apperr.KindAuthFailed, "填写密码失败", err)
	}
	if err := b.page.clickCenter(ctx, uzum.SelLoginSubmit); err != nil {
		return apperr.Wrap(apperr.KindAuthFailed, "提交登录表单失败", err)
	}

	// 等跳转落定再看 URL
	deadline := time.Now().Add(uzum.StepTimeout)
	for {
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindTimeout, "登录等待被取消", ctx.Err())
		case <-time.After(uzum.SavePollInterval):
		}
		url, err := b.session.CurrentURL(ctx)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, "读取当前地址失败", err)
		}
		if !strings.Contains(url, uzum.SigninPath) {
			break
		}
		if time.Now().After(deadline) {
			return apperr.New(apperr.KindAuthFailed, "登录失败: 页面停留在 /signin")
		}
	}

	// 店铺 ID 藏在客户端状态 blob 里：第一个 ≥5 位数字键
	blob, err := b.session.Eval(ctx, `JSON.stringify(window.localStorage)`)
	if err == nil {
		if unquoted, uerr := strconv.Unquote(strings.TrimSpace(blob)); uerr == nil {
			blob = unquoted
		}
		b.shopID = firstLongDigitKey(blob)
	}
	if b.shopID == "" {
		log.Printf("[UzumBrowser] 警告: 未能从状态 blob 解析店铺 ID")
	}

	b.loggedIn = true
	return nil
}

// ==================== 统一契约 ====================

// TestConnection 验证登录通道
func (b *UzumBrowser) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLogin(ctx); err != nil {
		if apperr.IsKind(err, apperr.KindAuthFailed) {
			return &ConnectionResult{OK: false, Error: err.Error()}, nil
		}
		return nil, err
	}
	result := &ConnectionResult{OK: true}
	if b.shopID != "" {
		result.Accounts = []string{b.shopID}
		result.PrimaryAccount = b.shopID
	}
	return result, nil
}

// CreateOffer 驱动新建商品向导
// 幂等性：以伙伴自选 SKU 为外键；上次失败未过 step2_saved 可安全重跑，
// 过了 step2_saved 再提交同 SKU 必然撞 DuplicateSKU
func (b *UzumBrowser) CreateOffer(ctx context.Context, offer *model.Offer) (*CreateResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := &CreateResult{OfferID: offer.OfferID}

	if err := b.ensureLogin(ctx); err != nil {
		return result, err
	}

	type transition struct {
		state string
		run   func(context.Context, *model.Offer) error
	}
	wizard := []transition{
		{StatePageLoaded, b.openWizard},
		{StateCategorySelected, b.selectCategory},
		{StateFieldsFilled, b.fillFields},
		{StateStep1Saved, b.saveStep1},
		{StateSkuAndIkpuFilled, b.fillSkuAndIkpu},
		{StatePriceAndDimensionsFilled, b.fillPriceAndDimensions},
		{StateStep2Saved, b.saveStep2},
		{StateFinished, b.confirmFinished},
	}

	for _, t := range wizard {
		stepCtx, cancel := context.WithTimeout(ctx, uzum.StepTimeout)
		err := t.run(stepCtx, offer)
		cancel()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", t.state, err))
			return result, err
		}
		result.StepsCompleted = append(result.StepsCompleted, t.state)
	}

	log.Printf("[UzumBrowser] 商品 %s 向导完成", offer.OfferID)
	return result, nil
}

// ==================== 向导迁移 ====================

func (b *UzumBrowser) openWizard(ctx context.Context, _ *model.Offer) error {
	if err := b.session.Navigate(ctx, uzum.NewProductURL); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "打开新建商品页失败", err)
	}
	// 等宿主组件挂载
	deadline := time.Now().Add(uzum.SavePollTimeout)
	for {
		ok, err := b.page.exists(ctx, uzum.HostComponent)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, "检测向导组件失败", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.New(apperr.KindUpload, "向导组件未加载")
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindTimeout, "等待向导加载被取消", ctx.Err())
		case <-time.After(uzum.SavePollInterval):
		}
	}
}

// selectCategory 4 级级联下拉，逐级点开再选项
func (b *UzumBrowser) selectCategory(ctx context.Context, offer *model.Offer) error {
	if len(offer.CategoryPath) != 4 {
		return apperr.Newf(apperr.KindValidation, "uzum 类目需要 4 级路径，收到 %d 级", len(offer.CategoryPath))
	}
	for level, name := range offer.CategoryPath {
		dropdown := fmt.Sprintf(uzum.SelCategoryLevel, level+1)
		if err := b.wizard.clickCenter(ctx, dropdown); err != nil {
			return err
		}
		option := fmt.Sprintf(uzum.SelCategoryOption, name)
		if err := b.wizard.clickCenter(ctx, option); err != nil {
			return apperr.Newf(apperr.KindUpload, "第 %d 级类目 %q 不存在", level+1, name)
		}
	}
	return nil
}

func (b *UzumBrowser) fillFields(ctx context.Context, offer *model.Offer) error {
	fields := []struct {
		selector string
		value    string
	}{
		{uzum.SelNameRu, cutRunes(offer.Name, uzum.MaxNameLen)},
		{uzum.SelNameUz, cutRunes(offer.NameUz, uzum.MaxNameLen)},
		{uzum.SelShortDescRu, cutRunes(offer.ShortDesc, uzum.MaxShortDescLen)},
		{uzum.SelLongDescRu, offer.Description},
		{uzum.SelCountry, offer.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := b.wizard.setValue(ctx, f.selector, f.value); err != nil {
			return err
		}
	}
	for name, value := range offer.Characteristics {
		sel := fmt.Sprintf(uzum.SelCharacteristic, name)
		if err := b.wizard.setValue(ctx, sel, value); err != nil {
			return err
		}
	}
	return nil
}

func (b *UzumBrowser) saveStep1(ctx context.Context, _ *model.Offer) error {
	if err := b.wizard.waitEnabled(ctx, uzum.SelStep1Save, uzum.SavePollInterval, uzum.SavePollTimeout); err != nil {
		return err
	}
	return b.wizard.clickCenter(ctx, uzum.SelStep1Save)
}

func (b *UzumBrowser) fillSkuAndIkpu(ctx context.Context, offer *model.Offer) error {
	if err := b.wizard.setValue(ctx, uzum.SelSku, offer.OfferID); err != nil {
		return err
	}
	if len(offer.CommodityCodes) > 0 {
		if err := b.wizard.setValue(ctx, uzum.SelIkpu, offer.CommodityCodes[0]); err != nil {
			return err
		}
	}
	return nil
}

func (b *UzumBrowser) fillPriceAndDimensions(ctx context.Context, offer *model.Offer) error {
	fields := []struct {
		selector string
		value    string
	}{
		{uzum.SelPrice, strconv.FormatInt(offer.PriceUZS, 10)},
		{uzum.SelWeight, formatDim(offer.WeightKg)},
		{uzum.SelLength, formatDim(offer.LengthCm)},
		{uzum.SelWidth, formatDim(offer.WidthCm)},
		{uzum.SelHeight, formatDim(offer.HeightCm)},
	}
	for _, f := range fields {
		if err := b.wizard.setValue(ctx, f.selector, f.value); err != nil {
			return err
		}
	}
	return nil
}

// saveStep2 保存第二步；保存后先查重复 SKU 的错误提示
func (b *UzumBrowser) saveStep2(ctx context.Context, offer *model.Offer) error {
	if err := b.wizard.waitEnabled(ctx, uzum.SelStep2Save, uzum.SavePollInterval, uzum.SavePollTimeout); err != nil {
		return err
	}
	if err := b.wizard.clickCenter(ctx, uzum.SelStep2Save); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return apperr.Wrap(apperr.KindTimeout, "等待保存结果被取消", ctx.Err())
	case <-time.After(2 * uzum.SavePollInterval):
	}

	dup, err := b.wizard.exists(ctx, uzum.SelDuplicateSkuError)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "检测保存结果失败", err)
	}
	if dup {
		return apperr.Newf(apperr.KindDuplicateSKU, "SKU %s 已存在", offer.OfferID)
	}
	return nil
}

func (b *UzumBrowser) confirmFinished(ctx context.Context, _ *model.Offer) error {
	deadline := time.Now().Add(uzum.SavePollTimeout)
	for {
		ok, err := b.wizard.exists(ctx, uzum.SelFinishNote)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, "检测完成提示失败", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.New(apperr.KindUpload, "未出现创建完成提示")
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindTimeout, "等待完成提示被取消", ctx.Err())
		case <-time.After(uzum.SavePollInterval):
		}
	}
}

// ==================== 只读面（走 API 通道） ====================

var errBrowserReadOnly = apperr.New(apperr.KindUnsupported, "浏览器通道只做商品创建，读操作走 uzum API")

func (b *UzumBrowser) ListOffers(ctx context.Context, page, pageSize int) (*OfferList, error) {
	return nil, errBrowserReadOnly
}

func (b *UzumBrowser) OfferStatus(ctx context.Context, offerID string) (*StatusResult, error) {
	return nil, errBrowserReadOnly
}

func (b *UzumBrowser) UpdatePrice(ctx context.Context, offerID string, priceUZS int64, currency string) error {
	return errBrowserReadOnly
}

func (b *UzumBrowser) UpdateStock(ctx context.Context, offerID string, amount int) error {
	return errBrowserReadOnly
}

func (b *UzumBrowser) FetchOrders(ctx context.Context, page int, status string) ([]Order, error) {
	return nil, errBrowserReadOnly
}

func (b *UzumBrowser) SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error) {
	return nil, errBrowserReadOnly
}

// ==================== 辅助 ====================

func cutRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func formatDim(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
