package repository

import (
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// caseInsensitiveLike 返回不区分大小写的模糊匹配条件
func caseInsensitiveLike(db *gorm.DB, column string) string {
	return caseInsensitiveLikeByDialect(dbDialectName(db), column)
}

func caseInsensitiveLikeByDialect(dialect, column string) string {
	switch dialect {
	case "postgres", "postgresql":
		return column + " ILIKE ?"
	default:
		// sqlite 的 LIKE 对 ASCII 默认不区分大小写
		return column + " LIKE ?"
	}
}
