package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hive/internal/adapter/notification"
	"hive/internal/adapter/storage"
	"hive/internal/dto"
	"hive/internal/model"
	"hive/internal/pkg/config"
	"hive/internal/pkg/crypto"
	"hive/internal/repository"
	"hive/pkg/constants"
	pkgErrors "hive/pkg/responses"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// 内存库绑定单连接，避免连接池各拿一个空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Task{},
		&model.Recording{},
		&model.Workspace{},
		&model.WorkspaceMember{},
	))
	return db
}

func newTestFieldCipher(t *testing.T) *crypto.FieldCipher {
	t.Helper()
	c, err := crypto.NewFieldCipher(&config.CryptoConfig{
		Keys:          map[string]string{"v1": "test-key-material-0123456789abcdef"},
		ActiveVersion: "v1",
	})
	require.NoError(t, err)
	return c
}

type gateFixture struct {
	db       *gorm.DB
	taskRepo *repository.TaskRepository
	cipher   *crypto.FieldCipher
	store    *storage.MockStorage
	taskSvc  TaskService
	recSvc   *RecordingService
	sweepSvc *SweepService
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	db := newTestDB(t)
	taskRepo := repository.NewTaskRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	cipher := newTestFieldCipher(t)
	store := storage.NewMockStorage()
	notifier := notification.NewWebhookNotifier(&config.NotifyConfig{}, zap.NewNop())

	return &gateFixture{
		db:       db,
		taskRepo: taskRepo,
		cipher:   cipher,
		store:    store,
		taskSvc:  NewTaskService(taskRepo, recordingRepo, cipher, notifier),
		recSvc:   NewRecordingService(taskRepo, recordingRepo, cipher, store, notifier, zap.NewNop()),
		sweepSvc: NewSweepService(taskRepo, cipher, zap.NewNop()),
	}
}

func (f *gateFixture) createTask(t *testing.T) *model.Task {
	t.Helper()
	task := &model.Task{
		WorkspaceID: 1,
		Title:       "录制回归用例",
		Status:      constants.TaskStatusInProgress,
		Assignee:    "alice",
	}
	require.NoError(t, f.taskRepo.Create(task))
	return task
}

func (f *gateFixture) upload(t *testing.T, taskID int64, key string) (*dto.RecordingResponse, error) {
	t.Helper()
	data := []byte("webm-bytes-0123456789")
	return f.recSvc.Upload(context.Background(), taskID, key, &dto.RecordingUpload{
		Filename:    "run.webm",
		ContentType: "video/webm",
		Size:        int64(len(data)),
	}, bytes.NewReader(data))
}

func (f *gateFixture) storedAgentKey(t *testing.T, taskID int64) *string {
	t.Helper()
	task, err := f.taskRepo.GetByID(taskID)
	require.NoError(t, err)
	return task.AgentKey
}

// 签发 → 上传成功 → 密钥置空 → 重放被拒
func TestUploadSingleUseLifecycle(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Key)

	// 落库的是信封密文，不是明文
	stored := f.storedAgentKey(t, task.ID)
	require.NotNil(t, stored)
	assert.True(t, crypto.IsEncrypted(*stored))
	assert.NotContains(t, *stored, issued.Key)

	resp, err := f.upload(t, task.ID, issued.Key)
	require.NoError(t, err)
	assert.Equal(t, task.ID, resp.TaskID)
	assert.Equal(t, 1, f.store.Len())

	// 消费后列值为 null
	assert.Nil(t, f.storedAgentKey(t, task.ID))

	// 同一密钥重放
	_, err = f.upload(t, task.ID, issued.Key)
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
	assert.Equal(t, 1, f.store.Len())
}

// 错误密钥不消费密钥，持正确密钥的重试仍然成功
func TestWrongKeyDoesNotConsume(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	_, err = f.upload(t, task.ID, "wrong-key")
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
	assert.NotNil(t, f.storedAgentKey(t, task.ID))
	assert.Equal(t, 0, f.store.Len())

	_, err = f.upload(t, task.ID, issued.Key)
	assert.NoError(t, err)
}

func TestNeverIssuedUnauthorized(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	_, err := f.recSvc.ValidateUploadKey(task.ID, "any-key")
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)

	// 空候选值同样拒绝
	_, err = f.recSvc.ValidateUploadKey(task.ID, "")
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 任务不存在先于凭据校验
func TestMissingTaskBeatsCredentialCheck(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.recSvc.ValidateUploadKey(42, "any-key")
	assert.ErrorIs(t, err, pkgErrors.ErrRecordNotFound)
	assert.NotErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 库里的信封被篡改时按未授权处理，不向调用方暴露解密失败
func TestTamperedStoredKeyFailsClosed(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	stored := f.storedAgentKey(t, task.ID)
	require.NotNil(t, stored)
	tampered := bytes.Replace([]byte(*stored), []byte(`"data":"`), []byte(`"data":"AAAA`), 1)
	require.NoError(t, f.taskRepo.SetAgentKey(task.ID, string(tampered)))

	_, err = f.recSvc.ValidateUploadKey(task.ID, issued.Key)
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 字段加密上线前写入的明文密钥仍然可用
func TestLegacyPlaintextKeyAccepted(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	legacy := "not-json-and-not-base64!!"
	require.NoError(t, f.taskRepo.SetAgentKey(task.ID, legacy))

	got, err := f.recSvc.ValidateUploadKey(task.ID, legacy)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = f.recSvc.ValidateUploadKey(task.ID, "something-else")
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 对象存储失败时请求失败，但密钥保持有效
func TestStorageFailureKeepsKey(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	f.store.FailNext = true
	_, err = f.upload(t, task.ID, issued.Key)
	require.Error(t, err)
	assert.NotErrorIs(t, err, pkgErrors.ErrUnauthorized)

	// 可重试
	assert.NotNil(t, f.storedAgentKey(t, task.ID))
	_, err = f.upload(t, task.ID, issued.Key)
	assert.NoError(t, err)
}

// 重复签发覆盖旧密钥，旧密钥随即作废
func TestReissueInvalidatesOldKey(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	first, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)
	second, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Key, second.Key)

	_, err = f.recSvc.ValidateUploadKey(task.ID, first.Key)
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)

	_, err = f.recSvc.ValidateUploadKey(task.ID, second.Key)
	assert.NoError(t, err)
}

// ClearAgentKey 幂等：对已为空的行再次调用不是错误
func TestClearAgentKeyIdempotent(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	require.NoError(t, f.taskRepo.ClearAgentKey(task.ID))
	require.NoError(t, f.taskRepo.ClearAgentKey(task.ID))
	assert.Nil(t, f.storedAgentKey(t, task.ID))
}

// 上传成功后录屏可查，响应携带元数据
func TestUploadPersistsRecording(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	data := []byte("webm-bytes")
	resp, err := f.recSvc.Upload(context.Background(), task.ID, issued.Key, &dto.RecordingUpload{
		Filename:    "run.webm",
		ContentType: "video/webm",
		Size:        int64(len(data)),
		Meta:        []byte(`{"duration_ms":1234}`),
	}, bytes.NewReader(data))
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration_ms":1234}`, string(resp.Meta))

	stored, ok := f.store.Get(resp.StorageKey)
	require.True(t, ok)
	assert.Equal(t, data, stored)

	list, err := f.taskSvc.ListRecordings(task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resp.ID, list[0].ID)
}

// 扫描快照与回写之间密钥被上传消费时，回写必须落空，
// 已消费的密钥不能被迁移写回复活
func TestSweepDoesNotResurrectConsumedKey(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	legacy := "plain-legacy-secret"
	require.NoError(t, f.taskRepo.SetAgentKey(task.ID, legacy))

	// 迁移扫描读取快照
	snapshot, err := f.taskRepo.FindWithAgentKey(0)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	require.NotNil(t, snapshot[0].AgentKey)

	// 快照之后、回写之前，密钥被一次上传消费
	_, err = f.upload(t, task.ID, legacy)
	require.NoError(t, err)
	require.Nil(t, f.storedAgentKey(t, task.ID))

	// 迁移的回写与 SweepService 相同：条件更新，旧值已不在则落空
	encrypted, err := f.cipher.EncryptToStorage(constants.FieldTaskAgentKey, *snapshot[0].AgentKey)
	require.NoError(t, err)
	ok, err := f.taskRepo.ReplaceAgentKey(task.ID, *snapshot[0].AgentKey, encrypted)
	require.NoError(t, err)
	assert.False(t, ok)

	// 列保持 null，已消费的密钥不能再通过校验
	assert.Nil(t, f.storedAgentKey(t, task.ID))
	_, err = f.recSvc.ValidateUploadKey(task.ID, legacy)
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 快照之后密钥被重新签发时，回写同样不能覆盖新密钥
func TestSweepDoesNotOverwriteReissuedKey(t *testing.T) {
	f := newGateFixture(t)
	task := f.createTask(t)

	legacy := "plain-legacy-secret"
	require.NoError(t, f.taskRepo.SetAgentKey(task.ID, legacy))

	snapshot, err := f.taskRepo.FindWithAgentKey(0)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	issued, err := f.taskSvc.IssueAgentKey(task.ID)
	require.NoError(t, err)

	encrypted, err := f.cipher.EncryptToStorage(constants.FieldTaskAgentKey, *snapshot[0].AgentKey)
	require.NoError(t, err)
	ok, err := f.taskRepo.ReplaceAgentKey(task.ID, *snapshot[0].AgentKey, encrypted)
	require.NoError(t, err)
	assert.False(t, ok)

	// 新签发的密钥不受影响，旧明文作废
	_, err = f.recSvc.ValidateUploadKey(task.ID, issued.Key)
	assert.NoError(t, err)
	_, err = f.recSvc.ValidateUploadKey(task.ID, legacy)
	assert.ErrorIs(t, err, pkgErrors.ErrUnauthorized)
}

// 存量明文密钥被迁移为信封后，原明文仍然可通过校验
func TestSweepReencryptsLegacyKeys(t *testing.T) {
	f := newGateFixture(t)
	legacyTask := f.createTask(t)
	envelopeTask := f.createTask(t)
	f.createTask(t) // 从未签发密钥的任务，不应被扫描

	legacy := "plain-legacy-secret"
	require.NoError(t, f.taskRepo.SetAgentKey(legacyTask.ID, legacy))
	_, err := f.taskSvc.IssueAgentKey(envelopeTask.ID)
	require.NoError(t, err)

	// 空串不是合法凭据，扫描直接跳过
	emptyTask := f.createTask(t)
	require.NoError(t, f.taskRepo.SetAgentKey(emptyTask.ID, ""))

	migrated, err := f.sweepSvc.ReencryptLegacyKeys(0)
	require.NoError(t, err)
	assert.Equal(t, 1, migrated)

	emptyStored := f.storedAgentKey(t, emptyTask.ID)
	require.NotNil(t, emptyStored)
	assert.Equal(t, "", *emptyStored)

	stored := f.storedAgentKey(t, legacyTask.ID)
	require.NotNil(t, stored)
	assert.True(t, crypto.IsEncrypted(*stored))

	got, err := f.recSvc.ValidateUploadKey(legacyTask.ID, legacy)
	require.NoError(t, err)
	assert.Equal(t, legacyTask.ID, got.ID)

	// 已是信封的行不重复迁移
	migrated, err = f.sweepSvc.ReencryptLegacyKeys(0)
	require.NoError(t, err)
	assert.Equal(t, 0, migrated)
}
