package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"hive/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyRecordingUploaded NotificationType = "recording_uploaded" // 录屏上传成功
	NotifyAgentKeyIssued    NotificationType = "agent_key_issued"   // agent密钥签发
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error
}

// WebhookNotifier Webhook通知器
type WebhookNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewWebhookNotifier 创建Webhook通知器
func NewWebhookNotifier(cfg *config.NotifyConfig, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send 发送通知
//
// 未启用时直接返回 nil；失败只记日志不向上传播，通知不影响主流程。
func (n *WebhookNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Warn("通知消息序列化失败", zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("构造通知请求失败", zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("发送通知失败", zap.Error(err), zap.String("type", string(msg.Type)))
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		n.logger.Warn("通知端点返回异常状态",
			zap.Int("status", resp.StatusCode),
			zap.String("type", string(msg.Type)),
		)
	}
	return nil
}

// AgentKeyIssuedMessage 构造agent密钥签发通知
func AgentKeyIssuedMessage(taskID int64) *NotificationMessage {
	return &NotificationMessage{
		Type:      NotifyAgentKeyIssued,
		Title:     "agent密钥已签发",
		Content:   fmt.Sprintf("任务 %d 签发了新的agent回调密钥", taskID),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"task_id": taskID,
		},
	}
}

// RecordingUploadedMessage 构造录屏上传通知
func RecordingUploadedMessage(taskID, recordingID int64, storageKey string) *NotificationMessage {
	return &NotificationMessage{
		Type:      NotifyRecordingUploaded,
		Title:     "录屏上传成功",
		Content:   fmt.Sprintf("任务 %d 的录屏已上传", taskID),
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"task_id":      taskID,
			"recording_id": recordingID,
			"storage_key":  storageKey,
		},
	}
}
