package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/repository"
	"uzum_erp_v1_202608/pkg/utils"
)

// ==================== 凭证保险柜 ====================

// 敏感字段（api_key / api_secret / password）用进程级对称密钥
// AES-256-GCM 加密后存 base64 密文；campaign_id 等非敏感字段存明文。
// 明文在任何路径下都不落日志。

// VaultService 每伙伴每市场的加密凭证存取
type VaultService struct {
	repo repository.CredentialRepository
	aead cipher.AEAD
}

// CredentialInput 写入保险柜的字段集
type CredentialInput struct {
	APIKey     string `json:"api_key,omitempty"`
	APISecret  string `json:"api_secret,omitempty"`
	Login      string `json:"login,omitempty"`
	Password   string `json:"password,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
}

// Credential 读出的凭证；Decrypted=false 时敏感字段为空
type Credential struct {
	PartnerID   string
	Marketplace model.Marketplace
	APIKey      string
	APISecret   string
	Login       string
	Password    string
	CampaignID  string
	BusinessID  string
	IsActive    bool
	Decrypted   bool
}

// CredentialSummary 列表视图：只给存在性与脱敏后的登录名
type CredentialSummary struct {
	Marketplace  model.Marketplace `json:"marketplace"`
	HasAPIKey    bool              `json:"has_api_key"`
	HasAPISecret bool              `json:"has_api_secret"`
	HasPassword  bool              `json:"has_password"`
	LoginMasked  string            `json:"login_masked,omitempty"`
	CampaignID   string            `json:"campaign_id,omitempty"`
	IsActive     bool              `json:"is_active"`
}

// NewVaultService 创建保险柜
// key 为空属开发路径：生成随机密钥并告警（重启后旧密文不可解）
func NewVaultService(encryptionKey string, repo repository.CredentialRepository) (*VaultService, error) {
	if encryptionKey == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("生成随机密钥失败: %w", err)
		}
		encryptionKey = base64.StdEncoding.EncodeToString(buf)
		log.Println("[Vault] 警告: ENCRYPTION_KEY 未配置，已生成临时密钥（仅限开发环境，重启后旧密文不可解）")
	}

	// 任意长度的密钥字符串经 SHA-256 规整为 32 字节
	keyBytes := sha256.Sum256([]byte(encryptionKey))
	block, err := aes.NewCipher(keyBytes[:])
	if err != nil {
		return nil, fmt.Errorf("初始化 AES 失败: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("初始化 GCM 失败: %w", err)
	}

	return &VaultService{repo: repo, aead: aead}, nil
}

// ==================== 加解密 ====================

func (s *VaultService) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *VaultService) decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("密文解码失败: %w", err)
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", fmt.Errorf("密文长度非法")
	}
	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("解密失败: %w", err)
	}
	return string(plain), nil
}

// ==================== 存取操作 ====================

// Save 加密敏感子集后落库；同 (partner, marketplace) 幂等覆盖
func (s *VaultService) Save(ctx context.Context, partnerID string, mp model.Marketplace, input *CredentialInput) error {
	apiKeyEnc, err := s.encrypt(input.APIKey)
	if err != nil {
		return fmt.Errorf("加密 api_key 失败: %w", err)
	}
	apiSecretEnc, err := s.encrypt(input.APISecret)
	if err != nil {
		return fmt.Errorf("加密 api_secret 失败: %w", err)
	}
	passwordEnc, err := s.encrypt(input.Password)
	if err != nil {
		return fmt.Errorf("加密 password 失败: %w", err)
	}

	cred := &model.MarketplaceCredential{
		PartnerID:    partnerID,
		Marketplace:  mp,
		APIKeyEnc:    apiKeyEnc,
		APISecretEnc: apiSecretEnc,
		PasswordEnc:  passwordEnc,
		Login:        input.Login,
		CampaignID:   input.CampaignID,
		BusinessID:   input.BusinessID,
		IsActive:     true,
	}
	return s.repo.Upsert(ctx, cred)
}

// Get 读取凭证；decrypt=true 时解出敏感字段
func (s *VaultService) Get(ctx context.Context, partnerID string, mp model.Marketplace, decrypt bool) (*Credential, error) {
	rec, err := s.repo.Get(ctx, partnerID, mp)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAuthFailed,
			fmt.Sprintf("伙伴 %s 无 %s 凭证", partnerID, mp), err)
	}

	cred := &Credential{
		PartnerID:   rec.PartnerID,
		Marketplace: rec.Marketplace,
		Login:       rec.Login,
		CampaignID:  rec.CampaignID,
		BusinessID:  rec.BusinessID,
		IsActive:    rec.IsActive,
	}
	if !decrypt {
		return cred, nil
	}

	if cred.APIKey, err = s.decrypt(rec.APIKeyEnc); err != nil {
		return nil, err
	}
	if cred.APISecret, err = s.decrypt(rec.APISecretEnc); err != nil {
		return nil, err
	}
	if cred.Password, err = s.decrypt(rec.PasswordEnc); err != nil {
		return nil, err
	}
	cred.Decrypted = true
	return cred, nil
}

// List 伙伴的凭证概览；永不返回密文或明文秘密
func (s *VaultService) List(ctx context.Context, partnerID string) ([]CredentialSummary, error) {
	recs, err := s.repo.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	out := make([]CredentialSummary, 0, len(recs))
	for _, rec := range recs {
		summary := CredentialSummary{
			Marketplace:  rec.Marketplace,
			HasAPIKey:    rec.APIKeyEnc != "",
			HasAPISecret: rec.APISecretEnc != "",
			HasPassword:  rec.PasswordEnc != "",
			CampaignID:   rec.CampaignID,
			IsActive:     rec.IsActive,
		}
		if rec.Login != "" {
			summary.LoginMasked = utils.MaskSecret(rec.Login)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Deactivate 停用凭证（不删密文）
func (s *VaultService) Deactivate(ctx context.Context, partnerID string, mp model.Marketplace) error {
	return s.repo.SetActive(ctx, partnerID, mp, false)
}
