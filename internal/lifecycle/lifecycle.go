// Package lifecycle 定义博客文章的状态流转表与操作守卫。
//
// 流转以 (当前状态, 操作) 为键显式登记，未登记的组合一律非法。
// 守卫先于流转表判定，非属主非管理员无论文章处于何种状态都得到 ErrForbidden。
package lifecycle

import (
	"errors"

	"github.com/portfolio-next/internal/constants"
)

// Status 文章状态
type Status string

// Operation 生命周期操作
type Operation string

const (
	StatusDraft     Status = constants.BlogStatusDraft
	StatusPublished Status = constants.BlogStatusPublished
	StatusArchived  Status = constants.BlogStatusArchived
)

const (
	OpCreate        Operation = constants.BlogOpCreate
	OpUpdate        Operation = constants.BlogOpUpdate
	OpRequestReview Operation = constants.BlogOpRequestReview
	OpPublish       Operation = constants.BlogOpPublish
	OpArchive       Operation = constants.BlogOpArchive
	OpUnarchive     Operation = constants.BlogOpUnarchive
	OpDelete        Operation = constants.BlogOpDelete
)

var (
	// ErrForbidden 守卫不成立
	ErrForbidden = errors.New("lifecycle guard rejected")
	// ErrIllegalTransition (状态, 操作) 组合未登记
	ErrIllegalTransition = errors.New("illegal lifecycle transition")
	// ErrUnknownStatus 状态值不在枚举内
	ErrUnknownStatus = errors.New("unknown lifecycle status")
)

// Subject 守卫判定所需的操作者属性
type Subject struct {
	Admin bool
	Owner bool
}

type transitionKey struct {
	from Status
	op   Operation
}

// transition 登记项；removes 表示操作后行被物理删除
type transition struct {
	to      Status
	removes bool
}

var transitions = map[transitionKey]transition{
	{StatusDraft, OpUpdate}:        {to: StatusDraft},
	{StatusPublished, OpUpdate}:    {to: StatusPublished},
	{StatusArchived, OpUpdate}:     {to: StatusArchived},
	{StatusDraft, OpRequestReview}: {to: StatusDraft},
	{StatusDraft, OpPublish}:       {to: StatusPublished},
	{StatusDraft, OpArchive}:       {to: StatusArchived},
	{StatusPublished, OpArchive}:   {to: StatusArchived},
	{StatusArchived, OpUnarchive}:  {to: StatusDraft},
	{StatusDraft, OpDelete}:        {removes: true},
	{StatusPublished, OpDelete}:    {removes: true},
	{StatusArchived, OpDelete}:     {removes: true},
}

// Decision 判定结果
type Decision struct {
	From    Status
	To      Status
	Removes bool
}

// Initial 新建文章的初始状态
func Initial() Status {
	return StatusDraft
}

// Valid 状态是否在枚举内
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// Allowed 守卫判定
func Allowed(op Operation, current Status, subject Subject) bool {
	switch op {
	case OpCreate:
		return true
	case OpUpdate, OpArchive, OpDelete:
		return subject.Admin || (current == StatusDraft && subject.Owner)
	case OpRequestReview:
		return subject.Owner
	case OpPublish, OpUnarchive:
		return subject.Admin
	default:
		return false
	}
}

// Decide 依据守卫与流转表给出下一状态
func Decide(op Operation, current Status, subject Subject) (Decision, error) {
	if op == OpCreate {
		return Decision{To: Initial()}, nil
	}
	if !current.Valid() {
		return Decision{}, ErrUnknownStatus
	}
	if !Allowed(op, current, subject) {
		return Decision{}, ErrForbidden
	}
	next, ok := transitions[transitionKey{from: current, op: op}]
	if !ok {
		return Decision{}, ErrIllegalTransition
	}
	return Decision{From: current, To: next.to, Removes: next.removes}, nil
}

// Operations 返回在当前状态下对该操作者可用的操作
func Operations(current Status, subject Subject) []Operation {
	ordered := []Operation{OpUpdate, OpRequestReview, OpPublish, OpArchive, OpUnarchive, OpDelete}
	result := make([]Operation, 0, len(ordered))
	for _, op := range ordered {
		if _, err := Decide(op, current, subject); err == nil {
			result = append(result, op)
		}
	}
	return result
}
