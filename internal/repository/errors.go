package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation 唯一/外键约束冲突
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrStaleVersion 乐观锁版本不匹配
	ErrStaleVersion = errors.New("stale version")
	// ErrUnknown 其它持久化错误
	ErrUnknown = errors.New("persistence error")
)

// translateError 将 gorm 错误归类为仓储错误
// 需配合 gorm.Config{TranslateError: true} 才能识别约束冲突。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConstraintViolation),
		errors.Is(err, ErrStaleVersion),
		errors.Is(err, ErrUnknown):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case isConstraintMessage(err.Error()):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnknown, err)
	}
}

// isConstraintMessage 兜底识别未被方言翻译的约束错误
func isConstraintMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{
		"foreign key constraint failed",
		"unique constraint failed",
		"violates foreign key constraint",
		"violates unique constraint",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func rowsAffectedOrNotFound(result *gorm.DB) error {
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
