package models

import (
	"database/sql/driver"
	"encoding/json"
)

// StringArray 字符串数组类型，用于存储商品图片
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	raw, ok := rawJSONBytes(value)
	if !ok {
		*s = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// First 返回第一个元素，为空返回空字符串
func (s StringArray) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// sqlite 驱动返回 string，postgres 返回 []byte
func rawJSONBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	case string:
		if v == "" {
			return nil, false
		}
		return []byte(v), true
	default:
		return nil, false
	}
}
