package repository

import (
	"errors"

	"gorm.io/gorm"
)

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// pageQuery 先统计总数，再按排序分页读取；preloads 只作用于读取阶段
func pageQuery[T any](query *gorm.DB, page, pageSize int, order string, preloads ...string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	records := make([]T, 0)
	if total == 0 {
		return records, 0, nil
	}
	query = applyPagination(query, page, pageSize)
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	if err := query.Order(order).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// firstOrNil 读取单条记录，不存在返回 nil, nil
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var record T
	if err := query.First(&record, conds...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
