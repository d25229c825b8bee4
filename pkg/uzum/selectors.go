package uzum

import "time"

// ==========================================
// 卖家后台（seller.uzum.uz）新建商品向导的 DOM 坐标
// 向导渲染在 <sx-products> Web Component 内部，
// 所有选择器都要先穿透 shadow root 再查询
// ==========================================

const (
	// --- 页面 ---
	LoginURL      = "https://seller.uzum.uz/signin"
	NewProductURL = "https://seller.uzum.uz/seller/products/new"
	SigninPath    = "/signin" // 提交后 URL 仍含此片段 = 登录失败

	// --- 宿主组件 ---
	HostComponent = "sx-products"

	// --- 登录表单（普通 DOM，不在 shadow 内） ---
	SelLoginPhone    = "input[name='phone']"
	SelLoginPassword = "input[name='password']"
	SelLoginSubmit   = "button[type='submit']"

	// --- 第一步：类目与基础信息 ---
	SelCategoryLevel  = ".category-select[data-level='%d']"      // 1..4 级联
	SelCategoryOption = ".category-select__option[title='%s']"
	SelNameRu         = "input[formcontrolname='titleRu']"
	SelNameUz         = "input[formcontrolname='titleUz']"
	SelShortDescRu    = "textarea[formcontrolname='shortDescriptionRu']"
	SelLongDescRu     = "textarea[formcontrolname='descriptionRu']"
	SelCountry        = "input[formcontrolname='madeIn']"
	SelCharacteristic = "[data-characteristic='%s'] input"
	SelStep1Save      = "button[data-test='step1-save']"

	// --- 第二步：SKU / IKPU / 价格 / 尺寸 ---
	SelSku        = "input[formcontrolname='sellerSku']"
	SelIkpu       = "input[formcontrolname='ikpuCode']"
	SelPrice      = "input[formcontrolname='sellerPrice']"
	SelWeight     = "input[formcontrolname='weight']"
	SelLength     = "input[formcontrolname='length']"
	SelWidth      = "input[formcontrolname='width']"
	SelHeight     = "input[formcontrolname='height']"
	SelStep2Save  = "button[data-test='step2-save']"
	SelFinishNote = ".product-created__note"

	// --- 错误提示 ---
	SelDuplicateSkuError = ".error-toast[data-code='DUPLICATE_SKU']"
)

// 字段长度约束（向导前端强制）
const (
	MaxNameLen      = 90
	MaxShortDescLen = 390
)

// 保存按钮轮询参数
const (
	SavePollInterval = 500 * time.Millisecond
	SavePollTimeout  = 45 * time.Second
	StepTimeout      = 60 * time.Second
)
