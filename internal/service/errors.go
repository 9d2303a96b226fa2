package service

import (
	"errors"
	"fmt"

	"github.com/portfolio-next/internal/lifecycle"
	"github.com/portfolio-next/internal/repository"
)

var (
	// ErrUnauthenticated 未登录
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized 无权执行
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed 输入校验失败
	ErrValidationFailed = errors.New("validation failed")
	// ErrPersistenceFailure 存储层失败
	ErrPersistenceFailure = errors.New("persistence failure")
)

// 前置条件类错误
var (
	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrReviewNotRequested 发布前未申请审核
	ErrReviewNotRequested = errors.New("review not requested")
	// ErrVersionConflict 并发修改冲突
	ErrVersionConflict = errors.New("version conflict")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

// persistenceError 将仓储错误映射为服务错误
func persistenceError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStaleVersion):
		return ErrVersionConflict
	case isServiceError(err):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
}

// lifecycleError 将生命周期判定错误映射为服务错误
func lifecycleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrForbidden):
		return ErrUnauthorized
	case errors.Is(err, lifecycle.ErrIllegalTransition):
		return ErrInvalidTransition
	default:
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
}

func isServiceError(err error) bool {
	for _, target := range []error{
		ErrUnauthenticated,
		ErrUnauthorized,
		ErrNotFound,
		ErrValidationFailed,
		ErrPersistenceFailure,
		ErrInvalidTransition,
		ErrReviewNotRequested,
		ErrVersionConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
