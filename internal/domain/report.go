package domain

import (
	"encoding/json"
	"time"
)

// BatchReport 是 resolve 命令对外稳定输出（stdout JSON / --output 文件）的结构。
type BatchReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary BatchSummary   `json:"summary"`
	Items   []ResolvedItem `json:"items"`
}

type BatchSummary struct {
	Resolved int `json:"resolved"`
	Empty    int `json:"empty"`
	Failed   int `json:"failed"`
	Invalid  int `json:"invalid"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 items 计算得出
//
// 注意：items 保持输入顺序，不排序（下标需要与输入列表对齐）。
func (r *BatchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Items == nil {
		r.Items = []ResolvedItem{}
	}

	var s BatchSummary
	for _, it := range r.Items {
		switch {
		case it.Invalid:
			s.Invalid++
		case it.Error != "":
			s.Failed++
		case it.DirectURL == "":
			s.Empty++
		default:
			s.Resolved++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r BatchReport) MarshalJSON() ([]byte, error) {
	type Alias BatchReport
	return json.Marshal(Alias(r))
}
