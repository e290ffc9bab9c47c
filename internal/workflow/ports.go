package workflow

import (
	"context"
	"time"
)

// Mutator 在条件更新中修改记录,返回需要追加的审计条目
type Mutator func(s *Submission) (TrailEntry, error)

// Registry 提交记录存储,所有状态迁移都通过 ConditionalUpdate 完成
type Registry interface {
	Load(ctx context.Context, id string) (*Submission, error)
	Create(ctx context.Context, s *Submission, entry TrailEntry) error
	// Remove 仅当存储的 (status, stage) 等于 expected 时删除
	Remove(ctx context.Context, id string, expected State) error
	// ConditionalUpdate 仅当存储的 (status, stage) 等于 expected 时应用 mutate,否则返回 Conflict
	ConditionalUpdate(ctx context.Context, id string, expected State, mutate Mutator) (*Submission, error)
	List(ctx context.Context, filter Filter) ([]*Submission, int64, error)
}

// Directory 审批人目录
type Directory interface {
	// ReviewersFor 按目录顺序返回某组织单元在指定阶段的审批人
	ReviewersFor(ctx context.Context, orgUnit string, stage Stage) ([]string, error)
	// OrgUnitOf 返回作者所属组织单元,未登记时返回空字符串
	OrgUnitOf(ctx context.Context, identity string) (string, error)
}

// Event 已提交的状态迁移事件
type Event struct {
	Type          EventType   `json:"type"`
	SubmissionID  string      `json:"submission_id"`
	Actor         string      `json:"actor"`
	Author        string      `json:"author"`
	From          State       `json:"from"`
	To            State       `json:"to"`
	Owner         string      `json:"owner,omitempty"`
	PreviousOwner string      `json:"previous_owner,omitempty"`
	OrgUnit       string      `json:"org_unit,omitempty"`
	Remarks       string      `json:"remarks,omitempty"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Submission    *Submission `json:"submission,omitempty"`
}

// Publisher 事件发布者,在事务提交后调用
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Clock 时间来源
type Clock func() time.Time
