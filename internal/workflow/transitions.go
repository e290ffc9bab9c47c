package workflow

import (
	"fmt"
	"strings"
)

// EventType 工作流事件类型
type EventType string

const (
	EventCreated        EventType = "submission.created"
	EventSubmitted      EventType = "submission.submitted"
	EventFirstApproved  EventType = "submission.first_approved"
	EventFirstRejected  EventType = "submission.first_rejected"
	EventSecondApproved EventType = "submission.second_approved"
	EventSecondRejected EventType = "submission.second_rejected"
	EventEdited         EventType = "submission.edited"
	EventDeleted        EventType = "submission.deleted"
)

var (
	stateDraft          = State{Status: StatusDraft, Stage: StageAuthor}
	statePendingFirst   = State{Status: StatusPendingFirstReview, Stage: StageFirstReviewer}
	stateFirstApproved  = State{Status: StatusFirstApproved, Stage: StageSecondReviewer}
	stateFinalApproved  = State{Status: StatusFinalApproved, Stage: StageCompleted}
	stateRejected       = State{Status: StatusRejected, Stage: StageCompleted}
	stateRejectedAuthor = State{Status: StatusRejected, Stage: StageAuthor}
)

// ValidStates 全部合法的 (status, stage) 组合
func ValidStates() []State {
	return []State{stateDraft, statePendingFirst, stateFirstApproved, stateFinalApproved, stateRejected, stateRejectedAuthor}
}

// Valid 判断组合是否出现在状态表中
func (s State) Valid() bool {
	for _, v := range ValidStates() {
		if v == s {
			return true
		}
	}
	return false
}

type transitionKey struct {
	from  State
	event EventType
}

// transitions 状态表,edit 在 Draft 上保持原状态
var transitions = map[transitionKey]State{
	{stateDraft, EventSubmitted}:              statePendingFirst,
	{stateRejected, EventSubmitted}:           statePendingFirst,
	{stateRejectedAuthor, EventSubmitted}:     statePendingFirst,
	{statePendingFirst, EventFirstApproved}:   stateFirstApproved,
	{statePendingFirst, EventFirstRejected}:   stateRejected,
	{stateFirstApproved, EventSecondApproved}: stateFinalApproved,
	{stateFirstApproved, EventSecondRejected}: stateRejected,
	{stateDraft, EventEdited}:                 stateDraft,
	{stateRejected, EventEdited}:              stateDraft,
	{stateRejectedAuthor, EventEdited}:        stateDraft,
	{stateDraft, EventDeleted}:                stateDraft,
}

// Next 查询状态表,不存在的迁移返回 InvalidTransition
func Next(from State, event EventType) (State, error) {
	to, ok := transitions[transitionKey{from: from, event: event}]
	if !ok {
		return State{}, Errorf(CodeInvalidTransition, "%s is not allowed from %s", event, from)
	}
	return to, nil
}

// CheckInvariants 校验提交记录的结构不变量
func CheckInvariants(s *Submission) error {
	st := s.State()
	if !st.Valid() {
		return fmt.Errorf("state %s is not in the state table", st)
	}
	owned := strings.TrimSpace(s.CurrentOwner) != ""
	if owned != st.Stage.Reviewing() {
		return fmt.Errorf("current owner %q inconsistent with stage %s", s.CurrentOwner, st.Stage)
	}
	if s.Editable != st.Status.Editable() {
		return fmt.Errorf("editable=%t inconsistent with status %s", s.Editable, st.Status)
	}
	if st.Status != StatusDraft && s.SubmittedAt == nil && st != stateRejectedAuthor {
		return fmt.Errorf("submitted_at missing for status %s", st.Status)
	}
	if st.Stage.Reviewing() && s.OrgUnit == "" {
		return fmt.Errorf("org unit missing for stage %s", st.Stage)
	}
	return nil
}
