package wallet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	xerrors "Kluivert-Agent/internal/errors"
)

const maxRecordSize = 1 << 20

// FileStore 以 JSON Lines 形式追加保存钱包状态，读取时取最后一行。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore 创建一个基于本地文件的钱包存储。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 返回数据文件路径。
func (s *FileStore) Path() string { return s.path }

// Load 返回最近写入的一条记录。
func (s *FileStore) Load(_ context.Context) (Data, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, Unavailable(err, "打开钱包文件失败")
	}
	defer file.Close()

	var last []byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		last = append(last[:0], line...)
	}
	if err := scanner.Err(); err != nil {
		return nil, false, Unavailable(err, "读取钱包文件失败")
	}
	if last == nil {
		return nil, false, nil
	}
	return Data(last), true, nil
}

// Save 以追加写的方式记录钱包状态。
func (s *FileStore) Save(_ context.Context, data Data) error {
	if err := ValidateForSave(data); err != nil {
		return err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "钱包数据不是合法的 JSON 文档")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return Unavailable(err, "创建钱包目录失败")
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Unavailable(err, "打开钱包文件失败")
	}
	defer file.Close()

	if _, err := file.Write(append(compact.Bytes(), '\n')); err != nil {
		return Unavailable(err, fmt.Sprintf("写入钱包文件 %s 失败", s.path))
	}
	return nil
}
