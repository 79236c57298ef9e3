package scheduler

import "fmt"

// DataError 输入数据不合法（地点表为空、出行矩阵残缺、参数越界等），在任何一代开始之前返回
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "无效的排程数据: " + e.Reason
}

func dataErrorf(format string, args ...any) error {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// AlgorithmError 在评估、选择或繁殖阶段发生的意外错误，整个运行作废，不返回部分结果
type AlgorithmError struct {
	Stage      string
	Generation int
	Err        error
}

func (e *AlgorithmError) Error() string {
	return fmt.Sprintf("遗传算法在第 %d 代的 %s 阶段失败: %v", e.Generation, e.Stage, e.Err)
}

func (e *AlgorithmError) Unwrap() error {
	return e.Err
}
