package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"hive/internal/pkg/config"
)

// 字段加密错误
var (
	ErrNoKeyMaterial     = errors.New("未配置字段加密密钥")
	ErrUnknownKeyVersion = errors.New("未知的密钥版本")
	ErrDecryptFailed     = errors.New("字段解密失败")
	ErrEmptyPlaintext    = errors.New("拒绝加密空明文")
)

// hkdf 的固定盐值，隔离字段加密与同一密钥的其他用途
const keyDerivationSalt = "hive-field-encryption"

// Envelope 单个加密字段的存储格式（JSON序列化后存入数据库列）
//
// 说明：
// - data/iv/tag: base64 编码；tag 为 GCM 认证标签，字段名作为 AAD 参与校验
// - keyVersion: 产生该信封的密钥版本，支持后续密钥轮换
// - encryptedAt: 加密时间，仅做记录，不参与过期判断
type Envelope struct {
	Data        string `json:"data"`
	IV          string `json:"iv"`
	Tag         string `json:"tag"`
	KeyVersion  string `json:"keyVersion"`
	EncryptedAt string `json:"encryptedAt"`
}

// FieldCipher 字段加密服务
//
// 进程启动时构造一次，之后只读，可被任意并发请求共享。
type FieldCipher struct {
	aeads         map[string]cipher.AEAD // keyVersion -> AEAD
	activeVersion string
}

// NewFieldCipher 根据配置构造字段加密服务
//
// 每个版本的密钥原料经 HKDF-SHA256 拉伸为32字节 AES-256 密钥，
// 版本号作为 info 参与派生，不同版本互相隔离。
func NewFieldCipher(cfg *config.CryptoConfig) (*FieldCipher, error) {
	if len(cfg.Keys) == 0 {
		return nil, ErrNoKeyMaterial
	}
	if cfg.ActiveVersion == "" {
		return nil, fmt.Errorf("%w: 未指定 active_version", ErrNoKeyMaterial)
	}
	if _, ok := cfg.Keys[cfg.ActiveVersion]; !ok {
		return nil, fmt.Errorf("%w: active_version %q 无对应密钥", ErrNoKeyMaterial, cfg.ActiveVersion)
	}

	aeads := make(map[string]cipher.AEAD, len(cfg.Keys))
	for version, secret := range cfg.Keys {
		if secret == "" {
			return nil, fmt.Errorf("%w: 版本 %q 密钥为空", ErrNoKeyMaterial, version)
		}
		aead, err := deriveAEAD([]byte(secret), version)
		if err != nil {
			return nil, err
		}
		aeads[version] = aead
	}

	return &FieldCipher{
		aeads:         aeads,
		activeVersion: cfg.ActiveVersion,
	}, nil
}

// deriveAEAD HKDF 派生32字节密钥并构造 AES-256-GCM
func deriveAEAD(secret []byte, version string) (cipher.AEAD, error) {
	reader := hkdf.New(sha256.New, secret, []byte(keyDerivationSalt), []byte(version))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("密钥派生失败: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ActiveVersion 当前加密使用的密钥版本
func (c *FieldCipher) ActiveVersion() string {
	return c.activeVersion
}

// EncryptField 加密单个字段值
//
// fieldName 作为 AAD 绑定进认证标签：从字段A拷贝的密文无法被当作字段B解开。
// 每次调用生成新的随机 IV，相同明文两次加密产生不同信封。
// 空明文直接拒绝：空串不是合法凭据，其信封 data 为空也过不了形状判定。
func (c *FieldCipher) EncryptField(fieldName, plaintext string) (*Envelope, error) {
	if plaintext == "" {
		return nil, ErrEmptyPlaintext
	}

	aead := c.aeads[c.activeVersion]

	iv := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("生成IV失败: %w", err)
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), []byte(fieldName))

	// Seal 输出为 密文||tag，拆开分别存储
	tagStart := len(sealed) - aead.Overhead()
	return &Envelope{
		Data:        base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:          base64.StdEncoding.EncodeToString(iv),
		Tag:         base64.StdEncoding.EncodeToString(sealed[tagStart:]),
		KeyVersion:  c.activeVersion,
		EncryptedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// EncryptToStorage 加密并序列化为可直接入库的字符串
func (c *FieldCipher) EncryptToStorage(fieldName, plaintext string) (string, error) {
	env, err := c.EncryptField(fieldName, plaintext)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecryptField 解密信封
//
// 失败场景：密钥版本未配置、base64 非法、认证标签校验失败
// （数据被篡改 / fieldName 与加密时不一致 / 密钥不对）。
func (c *FieldCipher) DecryptField(fieldName string, env *Envelope) (string, error) {
	aead, ok := c.aeads[env.KeyVersion]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKeyVersion, env.KeyVersion)
	}

	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("%w: data 非法", ErrDecryptFailed)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv 非法", ErrDecryptFailed)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		return "", fmt.Errorf("%w: tag 非法", ErrDecryptFailed)
	}
	if len(iv) != aead.NonceSize() {
		return "", fmt.Errorf("%w: iv 长度非法", ErrDecryptFailed)
	}

	sealed := append(data, tag...)
	plaintext, err := aead.Open(nil, iv, sealed, []byte(fieldName))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// DecryptStored 解密数据库列的原始取值，带历史明文兜底
//
// - 空值直接返回空
// - 能解析为完整信封的按密文解密，失败时返回错误（不回退）
// - 其余一律视为加密功能上线前写入的历史明文，原样返回
//
// 调用方无需关心某行数据是否早于加密功能写入。
func (c *FieldCipher) DecryptStored(fieldName, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	env, ok := parseEnvelope(raw)
	if !ok {
		// 历史明文兜底
		return raw, nil
	}

	return c.DecryptField(fieldName, env)
}

// parseEnvelope 信封格式判定，集中在这一处
//
// 判定标准：合法JSON且五个必填字段全部非空。已知局限：
// 恰好符合该形状的明文会被误判为密文（格式探测，没有额外的格式标记位）。
func parseEnvelope(raw string) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false
	}
	if env.Data == "" || env.IV == "" || env.Tag == "" || env.KeyVersion == "" || env.EncryptedAt == "" {
		return nil, false
	}
	return &env, true
}

// IsEncrypted 判断存储值是否为信封格式
func IsEncrypted(raw string) bool {
	_, ok := parseEnvelope(raw)
	return ok
}

// VerifySecret 常量时间比较候选凭据与真实凭据
//
// 两侧先做 SHA-256 再比较定长摘要：耗时与内容无关，
// 长度不同的候选也不会提前短路，不泄露真实凭据的长度。
func VerifySecret(candidate, actual string) bool {
	ch := sha256.Sum256([]byte(candidate))
	ah := sha256.Sum256([]byte(actual))
	return subtle.ConstantTimeCompare(ch[:], ah[:]) == 1
}
