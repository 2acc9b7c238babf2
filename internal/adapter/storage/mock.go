package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockStorage 内存存储适配器（本地开发与测试用）
type MockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailNext 置为 true 时下一次 Put 返回错误（测试失败路径用）
	FailNext bool
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		objects: make(map[string][]byte),
	}
}

// Put 写入对象
func (m *MockStorage) Put(_ context.Context, key, _ string, _ int64, body io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("mock storage: 写入失败")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

// Get 读取对象（仅测试断言用）
func (m *MockStorage) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// Len 对象数量
func (m *MockStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
