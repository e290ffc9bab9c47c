package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine 两级审批状态机
type Engine struct {
	registry  Registry
	resolver  *Resolver
	directory Directory
	publisher Publisher
	clock     Clock
	newID     func() string
	log       logrus.FieldLogger
}

// Option 引擎选项
type Option func(*Engine)

// WithClock 注入时间来源
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithPublisher 注入事件发布者
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithIDGenerator 注入 ID 生成器
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithLogger 注入日志记录器
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine 创建工作流引擎
func NewEngine(registry Registry, resolver *Resolver, directory Directory, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		resolver:  resolver,
		directory: directory,
		clock:     time.Now,
		newID:     uuid.NewString,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateInput 创建提交的参数
type CreateInput struct {
	Author      string
	PayloadRef  string
	Title       string
	Description string
	Category    string
	FileName    string
	MimeType    string
}

// Create 作者创建草稿
func (e *Engine) Create(ctx context.Context, in CreateInput) (*Submission, error) {
	author := strings.TrimSpace(in.Author)
	if author == "" {
		return nil, Errorf(CodeForbidden, "author identity is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, Errorf(CodeValidation, "title is required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, Errorf(CodeValidation, "category is required")
	}
	if strings.TrimSpace(in.PayloadRef) == "" {
		return nil, Errorf(CodeValidation, "payload reference is required")
	}

	now := e.now()
	s := &Submission{
		ID:             e.newID(),
		AuthorIdentity: author,
		PayloadRef:     in.PayloadRef,
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Category:       category,
		FileName:       in.FileName,
		MimeType:       in.MimeType,
		Status:         StatusDraft,
		Stage:          StageAuthor,
		Editable:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry := TrailEntry{Event: EventCreated, To: s.State(), Actor: author, At: now}
	if err := e.registry.Create(ctx, s, entry); err != nil {
		return nil, err
	}

	e.committed(ctx, s, entry, "")
	return s, nil
}

// Submit 作者提交进入一级审批
func (e *Engine) Submit(ctx context.Context, id, actor, orgUnit string) (*Submission, error) {
	s, err := e.registry.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == "" || actor != s.AuthorIdentity {
		return nil, Errorf(CodeForbidden, "only the author may submit %s", id)
	}
	from := s.State()
	to, err := Next(from, EventSubmitted)
	if err != nil {
		return nil, err
	}
	if !s.Editable {
		return nil, Errorf(CodeInvalidTransition, "submission %s is not editable", id)
	}

	unit, err := e.orgUnitFor(ctx, s, orgUnit)
	if err != nil {
		return nil, err
	}
	owner, err := e.resolver.ResolveFirstReviewer(ctx, unit)
	if err != nil {
		return nil, err
	}

	now := e.now()
	entry := TrailEntry{Event: EventSubmitted, From: from, To: to, Actor: actor, Owner: owner, At: now}
	updated, err := e.registry.ConditionalUpdate(ctx, id, from, func(cur *Submission) (TrailEntry, error) {
		if cur.OrgUnit == "" {
			cur.OrgUnit = unit
		}
		cur.Status = to.Status
		cur.Stage = to.Stage
		cur.CurrentOwner = owner
		cur.Editable = false
		cur.FirstReview = nil
		cur.SecondReview = nil
		cur.Rejection = nil
		cur.SubmittedAt = &now
		cur.UpdatedAt = now
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	e.committed(ctx, updated, entry, "")
	return updated, nil
}

// orgUnitFor 记录上已有的组织单元不可更改
func (e *Engine) orgUnitFor(ctx context.Context, s *Submission, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if s.OrgUnit != "" {
		if requested != "" && requested != s.OrgUnit {
			return "", Errorf(CodeValidation, "org unit is already %s and cannot change to %s", s.OrgUnit, requested)
		}
		return s.OrgUnit, nil
	}
	if requested != "" {
		return requested, nil
	}
	unit, err := e.directory.OrgUnitOf(ctx, s.AuthorIdentity)
	if err != nil {
		return "", err
	}
	if unit == "" {
		return "", Errorf(CodeValidation, "author %s does not belong to an org unit", s.AuthorIdentity)
	}
	return unit, nil
}

// FirstReview 一级审批决定
func (e *Engine) FirstReview(ctx context.Context, id, actor string, decision Decision, remarks string) (*Submission, error) {
	switch decision {
	case DecisionApprove:
		return e.ApproveFirst(ctx, id, actor, remarks)
	case DecisionReject:
		return e.RejectFirst(ctx, id, actor, remarks)
	default:
		return nil, Errorf(CodeValidation, "unknown decision %q", decision)
	}
}

// SecondReview 二级审批决定
func (e *Engine) SecondReview(ctx context.Context, id, actor string, decision Decision, remarks string) (*Submission, error) {
	switch decision {
	case DecisionApprove:
		return e.ApproveSecond(ctx, id, actor, remarks)
	case DecisionReject:
		return e.RejectSecond(ctx, id, actor, remarks)
	default:
		return nil, Errorf(CodeValidation, "unknown decision %q", decision)
	}
}

// ApproveFirst 一级审批通过,路由到二级审批人
func (e *Engine) ApproveFirst(ctx context.Context, id, actor, remarks string) (*Submission, error) {
	return e.review(ctx, id, actor, StageFirstReviewer, EventFirstApproved, remarks)
}

// RejectFirst 一级审批驳回
func (e *Engine) RejectFirst(ctx context.Context, id, actor, remarks string) (*Submission, error) {
	return e.review(ctx, id, actor, StageFirstReviewer, EventFirstRejected, remarks)
}

// ApproveSecond 二级审批通过,提交终审完成
func (e *Engine) ApproveSecond(ctx context.Context, id, actor, remarks string) (*Submission, error) {
	return e.review(ctx, id, actor, StageSecondReviewer, EventSecondApproved, remarks)
}

// RejectSecond 二级审批驳回
func (e *Engine) RejectSecond(ctx context.Context, id, actor, remarks string) (*Submission, error) {
	return e.review(ctx, id, actor, StageSecondReviewer, EventSecondRejected, remarks)
}

func (e *Engine) review(ctx context.Context, id, actor string, stage Stage, event EventType, remarks string) (*Submission, error) {
	s, err := e.registry.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := s.State()
	to, err := Next(from, event)
	if err != nil {
		return nil, err
	}
	if actor == "" || actor != s.CurrentOwner {
		return nil, Errorf(CodeForbidden, "%s is not the current owner of %s", actor, id)
	}

	remarks = strings.TrimSpace(remarks)
	decision := DecisionApprove
	if to.Status == StatusRejected {
		decision = DecisionReject
		if remarks == "" {
			return nil, Errorf(CodeValidation, "remarks are required to reject")
		}
	}

	var nextOwner string
	if event == EventFirstApproved {
		nextOwner, err = e.resolver.ResolveSecondReviewer(ctx, s.OrgUnit)
		if err != nil {
			return nil, err
		}
	}

	now := e.now()
	entry := TrailEntry{
		Event:    event,
		From:     from,
		To:       to,
		Actor:    actor,
		Owner:    nextOwner,
		Remarks:  remarks,
		Decision: decision,
		Stage:    stage,
		At:       now,
	}
	updated, err := e.registry.ConditionalUpdate(ctx, id, from, func(cur *Submission) (TrailEntry, error) {
		// 同一状态可能已是新一轮提交
		if cur.CurrentOwner != actor {
			return TrailEntry{}, Errorf(CodeConflict, "owner of %s changed concurrently", id)
		}
		r := &Review{Reviewer: actor, Decision: decision, Timestamp: now, Remarks: remarks}
		if stage == StageFirstReviewer {
			cur.FirstReview = r
		} else {
			cur.SecondReview = r
		}
		if decision == DecisionReject {
			cur.Rejection = &Rejection{RejectedAtStage: stage, RejectedBy: actor, Timestamp: now, Remarks: remarks}
		}
		cur.Status = to.Status
		cur.Stage = to.Stage
		cur.CurrentOwner = nextOwner
		cur.Editable = to.Status.Editable()
		cur.UpdatedAt = now
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	e.committed(ctx, updated, entry, actor)
	return updated, nil
}

// EditCheck 在作者与可编辑校验通过后、写入前执行的附加校验
type EditCheck func(ctx context.Context, current *Submission) error

// Edit 作者修改可编辑字段,驳回状态下回到草稿
func (e *Engine) Edit(ctx context.Context, id, actor string, fields Fields, checks ...EditCheck) (*Submission, error) {
	s, _, err := e.EditTracked(ctx, id, actor, fields, checks...)
	return s, err
}

// EditTracked 同 Edit,另返回本次写入替换掉的 payload 引用,未替换时为空。
// 旧引用在条件更新内读取,并发修改不会让两次写入报告同一个旧引用
func (e *Engine) EditTracked(ctx context.Context, id, actor string, fields Fields, checks ...EditCheck) (*Submission, string, error) {
	s, err := e.registry.Load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if actor == "" || actor != s.AuthorIdentity {
		return nil, "", Errorf(CodeForbidden, "only the author may edit %s", id)
	}
	if !s.Editable {
		return nil, "", Errorf(CodeInvalidTransition, "submission %s is not editable in %s", id, s.State())
	}
	from := s.State()
	to, err := Next(from, EventEdited)
	if err != nil {
		return nil, "", err
	}
	if err := validateFields(fields); err != nil {
		return nil, "", err
	}
	for _, check := range checks {
		if err := check(ctx, s); err != nil {
			return nil, "", err
		}
	}

	now := e.now()
	entry := TrailEntry{Event: EventEdited, From: from, To: to, Actor: actor, At: now}
	var replaced string
	updated, err := e.registry.ConditionalUpdate(ctx, id, from, func(cur *Submission) (TrailEntry, error) {
		previous := cur.PayloadRef
		applyFields(cur, fields)
		replaced = ""
		if cur.PayloadRef != previous {
			replaced = previous
		}
		if cur.Status == StatusRejected {
			cur.Rejection = nil
		}
		cur.Status = to.Status
		cur.Stage = to.Stage
		cur.Editable = true
		cur.UpdatedAt = now
		return entry, nil
	})
	if err != nil {
		return nil, "", err
	}

	e.committed(ctx, updated, entry, "")
	return updated, replaced, nil
}

// Delete 作者删除草稿,返回被删除的记录
func (e *Engine) Delete(ctx context.Context, id, actor string) (*Submission, error) {
	s, err := e.registry.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == "" || actor != s.AuthorIdentity {
		return nil, Errorf(CodeForbidden, "only the author may delete %s", id)
	}
	from := s.State()
	if s.Status != StatusDraft {
		return nil, Errorf(CodeInvalidTransition, "only drafts can be deleted, %s is %s", id, s.Status)
	}
	if _, err := Next(from, EventDeleted); err != nil {
		return nil, err
	}
	if err := e.registry.Remove(ctx, id, from); err != nil {
		return nil, err
	}

	e.committed(ctx, s, TrailEntry{Event: EventDeleted, From: from, To: from, Actor: actor, At: e.now()}, "")
	return s, nil
}

// Get 按 ID 查询
func (e *Engine) Get(ctx context.Context, id string) (*Submission, error) {
	return e.registry.Load(ctx, id)
}

// List 按条件查询
func (e *Engine) List(ctx context.Context, filter Filter) ([]*Submission, int64, error) {
	return e.registry.List(ctx, filter)
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// committed 记录日志并在提交后发布事件,发布失败不回滚
func (e *Engine) committed(ctx context.Context, s *Submission, entry TrailEntry, previousOwner string) {
	e.log.WithFields(logrus.Fields{
		"submission_id": s.ID,
		"event":         entry.Event,
		"actor":         entry.Actor,
		"owner":         entry.Owner,
		"from":          entry.From.String(),
		"to":            entry.To.String(),
	}).Info("workflow transition")

	if e.publisher == nil {
		return
	}
	evt := Event{
		Type:          entry.Event,
		SubmissionID:  s.ID,
		Actor:         entry.Actor,
		Author:        s.AuthorIdentity,
		From:          entry.From,
		To:            entry.To,
		Owner:         s.CurrentOwner,
		PreviousOwner: previousOwner,
		OrgUnit:       s.OrgUnit,
		Remarks:       entry.Remarks,
		OccurredAt:    entry.At,
		Submission:    s.Clone(),
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"submission_id": s.ID,
			"event":         entry.Event,
		}).Error("failed to publish workflow event")
	}
}

func validateFields(f Fields) error {
	if f.Empty() {
		return Errorf(CodeValidation, "no fields to update")
	}
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return Errorf(CodeValidation, "title cannot be empty")
	}
	if f.Category != nil && strings.TrimSpace(*f.Category) == "" {
		return Errorf(CodeValidation, "category cannot be empty")
	}
	if f.PayloadRef != nil && strings.TrimSpace(*f.PayloadRef) == "" {
		return Errorf(CodeValidation, "payload reference cannot be empty")
	}
	return nil
}

func applyFields(s *Submission, f Fields) {
	if f.Title != nil {
		s.Title = strings.TrimSpace(*f.Title)
	}
	if f.Description != nil {
		s.Description = strings.TrimSpace(*f.Description)
	}
	if f.Category != nil {
		s.Category = strings.TrimSpace(*f.Category)
	}
	if f.PayloadRef != nil {
		s.PayloadRef = *f.PayloadRef
	}
	if f.FileName != nil {
		s.FileName = *f.FileName
	}
	if f.MimeType != nil {
		s.MimeType = *f.MimeType
	}
}
