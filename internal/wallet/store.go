package wallet

import (
	"context"
	"encoding/json"
	"strings"

	xerrors "Kluivert-Agent/internal/errors"
)

// Data 是序列化后的钱包状态。对存储层而言它是不透明的 JSON 文档。
type Data []byte

// String 返回原始 JSON 文本。
func (d Data) String() string { return string(d) }

// Valid 判断数据是否为非空的合法 JSON。
func (d Data) Valid() bool {
	return len(strings.TrimSpace(string(d))) > 0 && json.Valid(d)
}

// Store 负责钱包状态的读写。每次调用自行建立并释放连接。
//
// Load 在没有任何记录时返回 (nil, false, nil)；存在多条记录时返回最近写入的一条。
// Save 以追加方式写入新记录。无法连接存储时两者均返回 STORE_UNAVAILABLE。
type Store interface {
	Load(ctx context.Context) (Data, bool, error)
	Save(ctx context.Context, data Data) error
}

// Unavailable 将底层错误包装为 STORE_UNAVAILABLE。
func Unavailable(err error, message string) error {
	return xerrors.Wrap(xerrors.CodeStoreUnavailable, err, message)
}

// ValidateForSave 校验即将写入的数据。
func ValidateForSave(data Data) error {
	if !data.Valid() {
		return xerrors.New(xerrors.CodeInvalidArgument, "钱包数据不是合法的 JSON 文档")
	}
	return nil
}
