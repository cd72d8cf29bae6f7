package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrConflict 并发写入冲突（锁等待超时、序列化失败等），调用方可重试一次
var ErrConflict = errors.New("并发冲突，请稍后重试")
