package workflow

import (
	"fmt"
	"time"
)

// Status 提交状态
type Status string

const (
	StatusDraft              Status = "Draft"
	StatusPendingFirstReview Status = "PendingFirstReview"
	StatusFirstApproved      Status = "FirstApproved"
	StatusFinalApproved      Status = "FinalApproved"
	StatusRejected           Status = "Rejected"
)

// Statuses 返回全部状态
func Statuses() []Status {
	return []Status{StatusDraft, StatusPendingFirstReview, StatusFirstApproved, StatusFinalApproved, StatusRejected}
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPendingFirstReview, StatusFirstApproved, StatusFinalApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Editable 判断该状态下作者是否可编辑
func (s Status) Editable() bool {
	switch s {
	case StatusDraft, StatusRejected:
		return true
	case StatusPendingFirstReview, StatusFirstApproved, StatusFinalApproved:
		return false
	default:
		panic(fmt.Sprintf("unhandled status %q", string(s)))
	}
}

// Stage 审批阶段
type Stage string

const (
	StageAuthor         Stage = "Author"
	StageFirstReviewer  Stage = "FirstReviewer"
	StageSecondReviewer Stage = "SecondReviewer"
	StageCompleted      Stage = "Completed"
)

// ParseStage 解析阶段字符串
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageAuthor, StageFirstReviewer, StageSecondReviewer, StageCompleted:
		return Stage(s), nil
	default:
		return "", fmt.Errorf("unknown stage %q", s)
	}
}

// Reviewing 判断该阶段是否由审批人持有
func (s Stage) Reviewing() bool {
	switch s {
	case StageFirstReviewer, StageSecondReviewer:
		return true
	case StageAuthor, StageCompleted:
		return false
	default:
		panic(fmt.Sprintf("unhandled stage %q", string(s)))
	}
}

// State 提交所处的 (status, stage) 组合
type State struct {
	Status Status `json:"status"`
	Stage  Stage  `json:"stage"`
}

func (s State) String() string {
	return fmt.Sprintf("(%s, %s)", s.Status, s.Stage)
}

// Decision 审批决定
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision 解析审批决定
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	default:
		return "", Errorf(CodeValidation, "decision must be %q or %q", DecisionApprove, DecisionReject)
	}
}

// Review 某一级审批的当前记录
type Review struct {
	Reviewer  string    `json:"reviewer"`
	Decision  Decision  `json:"decision"`
	Timestamp time.Time `json:"timestamp"`
	Remarks   string    `json:"remarks"`
}

// Rejection 驳回信息
type Rejection struct {
	RejectedAtStage Stage     `json:"rejected_at_stage"`
	RejectedBy      string    `json:"rejected_by"`
	Timestamp       time.Time `json:"timestamp"`
	Remarks         string    `json:"remarks"`
}

// Submission 提交记录
type Submission struct {
	ID             string     `json:"id"`
	AuthorIdentity string     `json:"author_identity"`
	OrgUnit        string     `json:"org_unit,omitempty"`
	PayloadRef     string     `json:"payload_ref"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	FileName       string     `json:"file_name,omitempty"`
	MimeType       string     `json:"mime_type,omitempty"`
	Status         Status     `json:"status"`
	Stage          Stage      `json:"stage"`
	CurrentOwner   string     `json:"current_owner,omitempty"`
	Editable       bool       `json:"editable"`
	FirstReview    *Review    `json:"first_review,omitempty"`
	SecondReview   *Review    `json:"second_review,omitempty"`
	Rejection      *Rejection `json:"rejection,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

// State 返回当前 (status, stage)
func (s *Submission) State() State {
	return State{Status: s.Status, Stage: s.Stage}
}

// Clone 深拷贝提交记录
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	c := *s
	if s.FirstReview != nil {
		r := *s.FirstReview
		c.FirstReview = &r
	}
	if s.SecondReview != nil {
		r := *s.SecondReview
		c.SecondReview = &r
	}
	if s.Rejection != nil {
		r := *s.Rejection
		c.Rejection = &r
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

// Fields 作者可编辑的字段,nil 表示不修改
type Fields struct {
	Title       *string
	Description *string
	Category    *string
	PayloadRef  *string
	FileName    *string
	MimeType    *string
}

// Empty 判断是否没有任何字段变更
func (f Fields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Category == nil &&
		f.PayloadRef == nil && f.FileName == nil && f.MimeType == nil
}

// Filter 列表查询条件
type Filter struct {
	Status     *Status
	OwnedBy    string
	OrgUnit    string
	Author     string
	ReviewedBy string // 曾经做出审批决定的审批人
	// VisibleTo 非空时只返回该用户可读的记录: 作者、当前处理人、做出过审批决定的人,
	// 以及 VisibleIDs 中额外授权的记录
	VisibleTo  string
	VisibleIDs []string
	Offset     int
	Limit      int
}

// TrailEntry 审计轨迹条目,只追加不修改
type TrailEntry struct {
	Event    EventType
	From     State
	To       State
	Actor    string
	Owner    string
	Remarks  string
	Decision Decision
	Stage    Stage // 审批决定所属阶段,非审批事件为空
	At       time.Time
}
