package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mautops/review-gin/internal/blob"
	"github.com/mautops/review-gin/internal/config"
	"github.com/mautops/review-gin/internal/database"
	"github.com/mautops/review-gin/internal/directory"
	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/mautops/review-gin/internal/service"
	"github.com/mautops/review-gin/internal/workflow"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// asUser 模拟认证中间件与请求 ID 中间件写入的值
func asUser(userID string) context.Context {
	ctx := context.WithValue(context.Background(), "user_id", userID)
	return context.WithValue(ctx, "request_id", "req-"+userID)
}

// recordingBlobs 记录删除的引用
type recordingBlobs struct {
	inner   blob.Store
	mu      sync.Mutex
	deleted []string
}

func (b *recordingBlobs) Store(ctx context.Context, data []byte) (string, error) {
	return b.inner.Store(ctx, data)
}

func (b *recordingBlobs) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return b.inner.Fetch(ctx, ref)
}

func (b *recordingBlobs) Exists(ctx context.Context, ref string) (bool, error) {
	return b.inner.Exists(ctx, ref)
}

func (b *recordingBlobs) Delete(ctx context.Context, ref string) error {
	b.mu.Lock()
	b.deleted = append(b.deleted, ref)
	b.mu.Unlock()
	return b.inner.Delete(ctx, ref)
}

type serviceFixture struct {
	db          *gorm.DB
	blobs       *recordingBlobs
	ledger      repository.BlobRepository
	submissions service.SubmissionService
	queries     service.QueryService
	audit       repository.AuditLogRepository
}

func newServiceFixture(t *testing.T, maxSize int64, permissions ...service.PermissionChecker) *serviceFixture {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	members := repository.NewMemberRepository(db)
	for _, m := range []*model.MemberModel{
		{Identity: "alice", OrgUnit: "CS", Role: model.RoleAuthor},
		{Identity: "bob", OrgUnit: "CS", Role: model.RoleAuthor},
		{Identity: "R1", OrgUnit: "CS", Role: model.RoleFirstReviewer},
		{Identity: "R2", OrgUnit: "CS", Role: model.RoleSecondReviewer},
	} {
		require.NoError(t, members.Upsert(context.Background(), m))
	}

	store, err := blob.New(context.Background(), filepath.Join(t.TempDir(), "blobs"), maxSize)
	require.NoError(t, err)
	blobs := &recordingBlobs{inner: store}

	log, _ := test.NewNullLogger()
	submissions := repository.NewSubmissionRepository(db)
	dir := directory.NewMemberDirectory(members)
	engine := workflow.NewEngine(submissions, workflow.NewResolver(dir), dir, workflow.WithLogger(log))
	auditRepo := repository.NewAuditLogRepository(db)
	ledger := repository.NewBlobRepository(db)

	return &serviceFixture{
		db:          db,
		blobs:       blobs,
		ledger:      ledger,
		submissions: service.NewSubmissionService(engine, blobs, ledger, service.NewAuditLogService(auditRepo), log, permissions...),
		queries: service.NewQueryService(submissions,
			repository.NewApprovalRecordRepository(db),
			repository.NewStateHistoryRepository(db), permissions...),
		audit: auditRepo,
	}
}

func (f *serviceFixture) upload(t *testing.T, author string) *workflow.Submission {
	t.Helper()
	sub, err := f.submissions.Upload(asUser(author), &service.CreateSubmissionRequest{
		Title:    "Essay",
		Category: "homework",
	}, &service.UploadedFile{Name: "essay.txt", MimeType: "text/plain", Data: []byte("body of " + author)})
	require.NoError(t, err)
	return sub
}

func requireCode(t *testing.T, err error, code workflow.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, workflow.CodeOf(err), "unexpected error: %v", err)
}

func TestUploadAndPayloadAccess(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")
	assert.Equal(t, "essay.txt", sub.FileName)
	assert.Equal(t, "text/plain", sub.MimeType)
	assert.Equal(t, workflow.StatusDraft, sub.Status)

	got, data, err := f.submissions.Payload(asUser("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	assert.Equal(t, "body of alice", string(data))

	_, _, err = f.submissions.Payload(asUser("R1"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)

	_, err = f.submissions.Submit(asUser("alice"), sub.ID, nil)
	require.NoError(t, err)
	_, _, err = f.submissions.Payload(asUser("R1"), sub.ID)
	require.NoError(t, err)

	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, &service.ReviewRequest{Decision: "approve"})
	require.NoError(t, err)
	// 一级审批人审批后仍可查看
	_, _, err = f.submissions.Payload(asUser("R1"), sub.ID)
	require.NoError(t, err)
	_, _, err = f.submissions.Payload(asUser("R2"), sub.ID)
	require.NoError(t, err)

	_, _, err = f.submissions.Payload(asUser("mallory"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)

	_, _, err = f.submissions.Payload(asUser("alice"), "missing")
	requireCode(t, err, workflow.CodeNotFound)
}

// viewerRelations 模拟 OpenFGA 中的 viewer 关系
type viewerRelations struct {
	viewers map[string]bool
	err     error
	checks  []string
}

func (v *viewerRelations) CheckPermission(_ context.Context, userID, relation, objectType, objectID string) (bool, error) {
	v.checks = append(v.checks, userID+" "+relation+" "+objectType+":"+objectID)
	if v.err != nil {
		return false, v.err
	}
	return v.viewers[userID], nil
}

func TestPayloadAccessFallsBackToPermissionChecker(t *testing.T) {
	relations := &viewerRelations{viewers: map[string]bool{"auditor": true}}
	f := newServiceFixture(t, 0, relations)
	sub := f.upload(t, "alice")

	_, data, err := f.submissions.Payload(asUser("auditor"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "body of alice", string(data))

	_, _, err = f.submissions.Payload(asUser("mallory"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)

	// 作者不经过外部判定
	_, _, err = f.submissions.Payload(asUser("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"auditor viewer submission:" + sub.ID,
		"mallory viewer submission:" + sub.ID,
	}, relations.checks)

	relations.err = errors.New("openfga unavailable")
	_, _, err = f.submissions.Payload(asUser("auditor"), sub.ID)
	require.Error(t, err)
	assert.Equal(t, workflow.Code(""), workflow.CodeOf(err))
}

func TestCreateRequiresStoredPayload(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := asUser("alice")

	for _, ref := range []string{"", "unknown-ref", "../escape"} {
		_, err := f.submissions.Create(ctx, &service.CreateSubmissionRequest{Title: "Essay", Category: "homework", PayloadRef: ref})
		requireCode(t, err, workflow.CodeValidation)
	}

	ref, err := f.blobs.inner.Store(context.Background(), []byte("body"))
	require.NoError(t, err)
	_, err = f.submissions.Create(ctx, &service.CreateSubmissionRequest{Title: "Essay", Category: "homework", PayloadRef: ref})
	requireCode(t, err, workflow.CodeForbidden)

	require.NoError(t, f.ledger.Record(context.Background(), ref, "alice", 4))
	sub, err := f.submissions.Create(ctx, &service.CreateSubmissionRequest{
		Title:      "  Essay  ",
		Category:   "homework",
		PayloadRef: ref,
		FileName:   "essay.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "Essay", sub.Title)
	assert.Equal(t, "alice", sub.AuthorIdentity)
	assert.Equal(t, ref, sub.PayloadRef)

	_, err = f.submissions.Create(ctx, nil)
	requireCode(t, err, workflow.CodeValidation)
}

func TestUploadCleansUpOnFailure(t *testing.T) {
	f := newServiceFixture(t, 0)

	_, err := f.submissions.Upload(asUser("alice"), &service.CreateSubmissionRequest{
		Title:    strings.Repeat("x", 201),
		Category: "homework",
	}, &service.UploadedFile{Name: "a.txt", Data: []byte("body")})
	requireCode(t, err, workflow.CodeValidation)
	require.Len(t, f.blobs.deleted, 1)

	ok, err := f.blobs.Exists(context.Background(), f.blobs.deleted[0])
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.submissions.Upload(asUser(""), &service.CreateSubmissionRequest{Title: "Essay", Category: "homework"},
		&service.UploadedFile{Data: []byte("body")})
	requireCode(t, err, workflow.CodeForbidden)
}

func TestUploadTooLarge(t *testing.T) {
	f := newServiceFixture(t, 8)
	_, err := f.submissions.Upload(asUser("alice"), &service.CreateSubmissionRequest{Title: "Essay", Category: "homework"},
		&service.UploadedFile{Data: []byte("way more than eight bytes")})
	requireCode(t, err, workflow.CodeValidation)
}

func TestUpdateValidatesInput(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")

	bad := "bad\x00title"
	_, err := f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{Title: &bad})
	requireCode(t, err, workflow.CodeValidation)

	missing := "missing-ref"
	_, err = f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{PayloadRef: &missing})
	requireCode(t, err, workflow.CodeValidation)

	title := "Essay v2"
	updated, err := f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Essay v2", updated.Title)

	_, err = f.submissions.Update(asUser("bob"), sub.ID, &service.UpdateSubmissionRequest{Title: &title})
	requireCode(t, err, workflow.CodeForbidden)
}

func TestUpdateChecksAccessBeforeInput(t *testing.T) {
	f := newServiceFixture(t, 0)

	missing := "nope"
	_, err := f.submissions.Update(asUser("alice"), "missing", &service.UpdateSubmissionRequest{PayloadRef: &missing})
	requireCode(t, err, workflow.CodeNotFound)

	sub := f.upload(t, "alice")
	_, err = f.submissions.Submit(asUser("alice"), sub.ID, nil)
	require.NoError(t, err)
	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, &service.ReviewRequest{Decision: "approve"})
	require.NoError(t, err)
	_, err = f.submissions.SecondReview(asUser("R2"), sub.ID, &service.ReviewRequest{Decision: "approve"})
	require.NoError(t, err)

	long := strings.Repeat("t", 201)
	_, err = f.submissions.Update(asUser("bob"), sub.ID, &service.UpdateSubmissionRequest{Title: &long, PayloadRef: &missing})
	requireCode(t, err, workflow.CodeForbidden)
	_, err = f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{Title: &long})
	requireCode(t, err, workflow.CodeInvalidTransition)

	draft := f.upload(t, "alice")
	_, err = f.submissions.Update(asUser("alice"), draft.ID, &service.UpdateSubmissionRequest{Title: &long})
	requireCode(t, err, workflow.CodeValidation)
}

func TestUpdateReplacingPayloadRemovesOldBlob(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()
	sub := f.upload(t, "alice")

	same := sub.PayloadRef
	_, err := f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{PayloadRef: &same})
	require.NoError(t, err)
	assert.Empty(t, f.blobs.deleted)

	next, err := f.blobs.Store(ctx, []byte("second version"))
	require.NoError(t, err)
	require.NoError(t, f.ledger.Record(ctx, next, "alice", 14))
	updated, err := f.submissions.Update(asUser("alice"), sub.ID, &service.UpdateSubmissionRequest{PayloadRef: &next})
	require.NoError(t, err)
	assert.Equal(t, next, updated.PayloadRef)
	assert.Equal(t, []string{sub.PayloadRef}, f.blobs.deleted)

	ok, err := f.blobs.Exists(ctx, sub.PayloadRef)
	require.NoError(t, err)
	assert.False(t, ok)
	_, data, err := f.submissions.Payload(asUser("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "second version", string(data))
}

func TestDeleteRemovesPayload(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")

	requireCode(t, f.submissions.Delete(asUser("bob"), sub.ID), workflow.CodeForbidden)
	require.NoError(t, f.submissions.Delete(asUser("alice"), sub.ID))

	ok, err := f.blobs.Exists(context.Background(), sub.PayloadRef)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.submissions.Get(asUser("alice"), sub.ID)
	requireCode(t, err, workflow.CodeNotFound)
}

func TestReviewRequestValidation(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")
	_, err := f.submissions.Submit(asUser("alice"), sub.ID, &service.SubmitRequest{OrgUnit: "CS"})
	require.NoError(t, err)

	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, &service.ReviewRequest{Decision: "maybe"})
	requireCode(t, err, workflow.CodeValidation)

	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, &service.ReviewRequest{Decision: "reject"})
	requireCode(t, err, workflow.CodeValidation)

	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, nil)
	requireCode(t, err, workflow.CodeValidation)

	_, err = f.submissions.SecondReview(asUser("R2"), sub.ID, &service.ReviewRequest{Decision: "approve"})
	requireCode(t, err, workflow.CodeInvalidTransition)
}

func TestFullFlowIsAudited(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")

	_, err := f.submissions.Submit(asUser("alice"), sub.ID, nil)
	require.NoError(t, err)
	_, err = f.submissions.FirstReview(asUser("R1"), sub.ID, &service.ReviewRequest{Decision: "approve"})
	require.NoError(t, err)
	done, err := f.submissions.SecondReview(asUser("R2"), sub.ID, &service.ReviewRequest{Decision: "approve", Remarks: "well done"})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFinalApproved, done.Status)
	assert.Equal(t, workflow.StageCompleted, done.Stage)

	logs, err := f.audit.FindByResource(context.Background(), "submission", sub.ID)
	require.NoError(t, err)
	actions := make(map[string]string, len(logs))
	for _, l := range logs {
		actions[l.Action] = l.UserID
		assert.Equal(t, "req-"+l.UserID, l.RequestID)
	}
	assert.Equal(t, map[string]string{
		"create":        "alice",
		"submit":        "alice",
		"first_review":  "R1",
		"second_review": "R2",
	}, actions)

	records, err := f.queries.GetRecords(asUser("alice"), sub.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "R1", records[0].Reviewer)
	assert.Equal(t, "well done", records[1].Remarks)

	history, err := f.queries.GetHistory(asUser("alice"), sub.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, string(workflow.EventCreated), history[0].Event)
	assert.Equal(t, "R2", history[2].Owner)
	assert.Equal(t, string(workflow.StatusFinalApproved), history[3].ToStatus)
}

func TestQueries(t *testing.T) {
	f := newServiceFixture(t, 0)
	a := f.upload(t, "alice")
	b := f.upload(t, "bob")
	f.upload(t, "bob")
	for _, s := range []*workflow.Submission{a, b} {
		_, err := f.submissions.Submit(asUser(s.AuthorIdentity), s.ID, nil)
		require.NoError(t, err)
	}

	inbox, total, err := f.queries.Inbox(asUser("R1"), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, inbox, 2)

	_, _, err = f.queries.Inbox(context.Background(), 1, 10)
	requireCode(t, err, workflow.CodeForbidden)

	count, err := f.queries.PendingCount(context.Background(), "R1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	count, err = f.queries.PendingCount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	page, total, err := f.queries.ListSubmissions(asUser("bob"), &service.ListSubmissionsFilter{Author: "bob", PageSize: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, page, 1)

	// 未提交的草稿只有作者可见
	_, total, err = f.queries.ListSubmissions(asUser("R1"), &service.ListSubmissionsFilter{Author: "bob"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	mine, total, err := f.queries.ListSubmissions(asUser("bob"), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, sub := range mine {
		assert.Equal(t, "bob", sub.AuthorIdentity)
	}
	_, total, err = f.queries.ListSubmissions(asUser("bob"), &service.ListSubmissionsFilter{Author: "alice"})
	require.NoError(t, err)
	assert.Zero(t, total, "bob must not see alice's submissions")

	_, _, err = f.queries.ListSubmissions(context.Background(), nil)
	requireCode(t, err, workflow.CodeForbidden)

	pending := workflow.StatusPendingFirstReview
	rows, total, err := f.queries.ListSubmissions(asUser("R1"), &service.ListSubmissionsFilter{Status: &pending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	all, total, err := f.queries.ListSubmissions(asUser("R1"), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	stats, err := f.queries.Stats(asUser("R1"), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[workflow.StatusPendingFirstReview])
	assert.EqualValues(t, 1, stats[workflow.StatusDraft])

	_, err = f.queries.GetHistory(asUser("R1"), "missing")
	requireCode(t, err, workflow.CodeNotFound)
	_, err = f.queries.GetRecords(asUser("R1"), "missing")
	requireCode(t, err, workflow.CodeNotFound)
}

func TestReadAccess(t *testing.T) {
	relations := &viewerRelations{viewers: map[string]bool{"auditor": true}}
	f := newServiceFixture(t, 0, relations)
	sub := f.upload(t, "alice")

	_, err := f.submissions.Get(asUser("R1"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)
	_, err = f.queries.GetRecords(asUser("mallory"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)
	_, err = f.queries.GetHistory(asUser("mallory"), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)
	_, err = f.submissions.Get(context.Background(), sub.ID)
	requireCode(t, err, workflow.CodeForbidden)

	_, err = f.submissions.Submit(asUser("alice"), sub.ID, nil)
	require.NoError(t, err)
	got, err := f.submissions.Get(asUser("R1"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "R1", got.CurrentOwner)
	history, err := f.queries.GetHistory(asUser("R1"), sub.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	records, err := f.queries.GetRecords(asUser("auditor"), sub.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// listingRelations 同时支持列举 viewer 关系
type listingRelations struct {
	viewerRelations
	objects map[string][]string
}

func (l *listingRelations) ListObjectIDs(_ context.Context, userID, relation, objectType string) ([]string, error) {
	if l.err != nil {
		return nil, l.err
	}
	if relation != "viewer" || objectType != "submission" {
		return nil, nil
	}
	return l.objects[userID], nil
}

func TestListIncludesViewerObjects(t *testing.T) {
	relations := &listingRelations{objects: map[string][]string{}}
	f := newServiceFixture(t, 0, relations)
	a := f.upload(t, "alice")
	f.upload(t, "alice")
	relations.objects["auditor"] = []string{a.ID}

	rows, total, err := f.queries.ListSubmissions(asUser("auditor"), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)

	_, total, err = f.queries.ListSubmissions(asUser("mallory"), nil)
	require.NoError(t, err)
	assert.Zero(t, total)

	relations.err = errors.New("openfga unavailable")
	_, _, err = f.queries.ListSubmissions(asUser("auditor"), nil)
	require.Error(t, err)
}

func TestSharedPayloadRef(t *testing.T) {
	f := newServiceFixture(t, 0)
	victim := f.upload(t, "alice")
	ref := victim.PayloadRef

	_, err := f.submissions.Create(asUser("bob"), &service.CreateSubmissionRequest{Title: "Copy", Category: "homework", PayloadRef: ref})
	requireCode(t, err, workflow.CodeForbidden)

	own := f.upload(t, "bob")
	_, err = f.submissions.Update(asUser("bob"), own.ID, &service.UpdateSubmissionRequest{PayloadRef: &ref})
	requireCode(t, err, workflow.CodeForbidden)
	require.NoError(t, f.submissions.Delete(asUser("bob"), own.ID))

	_, data, err := f.submissions.Payload(asUser("alice"), victim.ID)
	require.NoError(t, err)
	assert.Equal(t, "body of alice", string(data))

	// 作者的两份草稿共用一个文件时,删除其中一份保留文件
	second, err := f.submissions.Create(asUser("alice"), &service.CreateSubmissionRequest{Title: "Again", Category: "homework", PayloadRef: ref})
	require.NoError(t, err)
	require.NoError(t, f.submissions.Delete(asUser("alice"), second.ID))
	_, data, err = f.submissions.Payload(asUser("alice"), victim.ID)
	require.NoError(t, err)
	assert.Equal(t, "body of alice", string(data))
	assert.NotContains(t, f.blobs.deleted, ref)

	require.NoError(t, f.submissions.Delete(asUser("alice"), victim.ID))
	assert.Contains(t, f.blobs.deleted, ref)
	uploader, err := f.ledger.Uploader(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, uploader)
}

func TestRoutingFailure(t *testing.T) {
	f := newServiceFixture(t, 0)
	sub := f.upload(t, "alice")

	_, err := f.submissions.Submit(asUser("alice"), sub.ID, &service.SubmitRequest{OrgUnit: "EE"})
	requireCode(t, err, workflow.CodeNoReviewerAvailable)

	got, err := f.submissions.Get(asUser("alice"), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, got.Status)
	assert.Empty(t, got.OrgUnit)
}

func TestReviewedAndDashboard(t *testing.T) {
	f := newServiceFixture(t, 0)
	a := f.upload(t, "alice")
	b := f.upload(t, "bob")
	c := f.upload(t, "alice")
	for _, sub := range []*workflow.Submission{a, b, c} {
		_, err := f.submissions.Submit(asUser(sub.AuthorIdentity), sub.ID, nil)
		require.NoError(t, err)
	}

	_, err := f.submissions.FirstReview(asUser("R1"), a.ID, &service.ReviewRequest{Decision: "approve"})
	require.NoError(t, err)
	_, err = f.submissions.FirstReview(asUser("R1"), b.ID, &service.ReviewRequest{Decision: "reject", Remarks: "missing sources"})
	require.NoError(t, err)

	rows, total, err := f.queries.Reviewed(asUser("R1"), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string{rows[0].ID, rows[1].ID})

	rows, _, err = f.queries.ListSubmissions(asUser("R1"), &service.ListSubmissionsFilter{ReviewedBy: "R1", Author: "alice"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)

	d, err := f.queries.Dashboard(asUser("R1"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Pending)
	assert.EqualValues(t, 1, d.Approved)
	assert.EqualValues(t, 1, d.Rejected)
	assert.EqualValues(t, 2, d.TotalReviewed)
	require.Len(t, d.Recent, 1)
	assert.Equal(t, c.ID, d.Recent[0].ID)

	d, err = f.queries.Dashboard(asUser("R2"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Pending)
	assert.Zero(t, d.TotalReviewed)

	_, err = f.queries.Dashboard(context.Background())
	requireCode(t, err, workflow.CodeForbidden)
	_, _, err = f.queries.Reviewed(context.Background(), 1, 10)
	requireCode(t, err, workflow.CodeForbidden)
}

func TestBulkUpload(t *testing.T) {
	f := newServiceFixture(t, 0)
	subs, err := f.submissions.BulkUpload(asUser("alice"), nil, []*service.UploadedFile{
		{Name: "essay.txt", MimeType: "text/plain", Data: []byte("first")},
		{Name: "dir/report.final.pdf", MimeType: "application/pdf", Data: []byte("second")},
	})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "essay", subs[0].Title)
	assert.Equal(t, "report.final", subs[1].Title)
	for _, sub := range subs {
		assert.Equal(t, "Other", sub.Category)
		assert.Equal(t, "Bulk uploaded assignment", sub.Description)
		assert.Equal(t, workflow.StatusDraft, sub.Status)
	}
	_, data, err := f.submissions.Payload(asUser("alice"), subs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	subs, err = f.submissions.BulkUpload(asUser("alice"), &service.BulkUploadRequest{Category: "lab"},
		[]*service.UploadedFile{{Name: ".txt", Data: []byte("x")}})
	require.NoError(t, err)
	assert.Equal(t, ".txt", subs[0].Title)
	assert.Equal(t, "lab", subs[0].Category)

	_, err = f.submissions.BulkUpload(asUser("alice"), nil, nil)
	requireCode(t, err, workflow.CodeValidation)
	_, err = f.submissions.BulkUpload(context.Background(), nil, []*service.UploadedFile{{Name: "a.txt"}})
	requireCode(t, err, workflow.CodeForbidden)
	_, err = f.submissions.BulkUpload(asUser("alice"), nil, make([]*service.UploadedFile, 21))
	requireCode(t, err, workflow.CodeValidation)
}

func TestBulkUploadIsAllOrNothing(t *testing.T) {
	f := newServiceFixture(t, 8)
	_, err := f.submissions.BulkUpload(asUser("bob"), nil, []*service.UploadedFile{
		{Name: "one.txt", Data: []byte("small")},
		{Name: "two.txt", Data: []byte("fits too")},
		{Name: "three.txt", Data: []byte("far too large for the store")},
	})
	requireCode(t, err, workflow.CodeValidation)

	_, total, err := f.queries.ListSubmissions(asUser("bob"), &service.ListSubmissionsFilter{Author: "bob"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Len(t, f.blobs.deleted, 2)
	for _, ref := range f.blobs.deleted {
		exists, err := f.blobs.Exists(context.Background(), ref)
		require.NoError(t, err)
		assert.False(t, exists)
	}

	// 标题非法时不写入任何文件
	_, err = f.submissions.BulkUpload(asUser("bob"), nil, []*service.UploadedFile{
		{Name: "ok.txt", Data: []byte("a")},
		{Name: strings.Repeat("t", 201) + ".txt", Data: []byte("b")},
	})
	requireCode(t, err, workflow.CodeValidation)
	assert.Len(t, f.blobs.deleted, 2)
}
