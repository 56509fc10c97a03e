package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RemoteID 远程服务的整数主键，同时接受字符串形式，输出为字符串
type RemoteID string

func (id *RemoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RemoteID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("remote id: %w", err)
	}
	*id = RemoteID(n.String())
	return nil
}

func (id RemoteID) String() string { return string(id) }

func (id RemoteID) IsZero() bool { return id == "" }

// Int 远程接口写入时需要数值
func (id RemoteID) Int() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// Timestamps 非数据库实体共用的时间字段
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

func GenerateUUID() string {
	return uuid.New().String()
}
