package issuance

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/certkeeper/certkeeper/storage"
	"github.com/certkeeper/certkeeper/storage/model"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storage.Storage) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s, err := storage.NewStorageFromDB(db)
	require.NoError(t, err)
	return NewService(s.Backends(), func() time.Time { return testNow }), s
}

func isInvalidArgument(err error) bool {
	var e model.InvalidArgumentError
	return errors.As(err, &e)
}

func isNotFound(err error) bool {
	var e model.NotFoundError
	return errors.As(err, &e)
}

func createTemplate(t *testing.T, svc *Service, validityDays int) *model.CertificateTemplate {
	t.Helper()
	tmpl, err := svc.CreateTemplate(
		TemplateRequest{
			Name:             fmt.Sprintf("Welding %d", validityDays),
			CertificateType:  model.CertificateTypeQualification,
			IssuingAuthority: "Chamber of Crafts",
			ValidityDays:     validityDays,
		},
	)
	require.NoError(t, err)
	return tmpl
}

func approvedApplication(t *testing.T, svc *Service, tmpl *model.CertificateTemplate) *model.CertificateApplication {
	t.Helper()
	app, err := svc.SubmitApplication(
		ApplicationRequest{
			UserID:     "user-7",
			HolderName: "Kim Lee",
			Title:      "Certified Welder",
			TemplateID: tmpl.ID,
		},
	)
	require.NoError(t, err)
	app, err = svc.Approve(app.ID, ReviewRequest{Auditor: "auditor-1"})
	require.NoError(t, err)
	return app
}

func TestCreateTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	tmpl := createTemplate(t, svc, 365)
	assert.True(t, tmpl.Active)
	assert.NotEmpty(t, tmpl.ID)

	_, err := svc.CreateTemplate(TemplateRequest{Name: "missing fields"})
	assert.True(t, isInvalidArgument(err), "got %v", err)

	_, err = svc.CreateTemplate(
		TemplateRequest{
			Name:             "bad type",
			CertificateType:  "diploma",
			IssuingAuthority: "x",
		},
	)
	assert.True(t, isInvalidArgument(err), "got %v", err)

	_, err = svc.CreateTemplate(
		TemplateRequest{
			Name:             tmpl.Name,
			CertificateType:  model.CertificateTypeSkill,
			IssuingAuthority: "x",
		},
	)
	var exists model.AlreadyExistsError
	assert.True(t, errors.As(err, &exists), "got %v", err)
}

func TestCustomCertificateTypes(t *testing.T) {
	_, s := newTestService(t)
	svc := NewService(s.Backends(), nil, "diploma")
	_, err := svc.CreateTemplate(
		TemplateRequest{
			Name:             "Diploma",
			CertificateType:  "diploma",
			IssuingAuthority: "University",
		},
	)
	require.NoError(t, err)
}

func TestUpdateAndDeleteTemplate(t *testing.T) {
	svc, _ := newTestService(t)
	tmpl := createTemplate(t, svc, 365)
	inactive := false
	updated, err := svc.UpdateTemplate(
		tmpl.ID, TemplateRequest{
			Name:             "Welding II",
			CertificateType:  model.CertificateTypeQualification,
			IssuingAuthority: "Chamber of Crafts",
			ValidityDays:     730,
			Active:           &inactive,
		},
	)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	got, err := svc.GetTemplate(tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welding II", got.Name)
	assert.Equal(t, 730, got.ValidityDays)
	assert.False(t, got.Active)

	_, err = svc.SubmitApplication(
		ApplicationRequest{UserID: "u", HolderName: "h", Title: "t", TemplateID: tmpl.ID},
	)
	assert.True(t, isInvalidArgument(err), "got %v", err)

	require.NoError(t, svc.DeleteTemplate(tmpl.ID))
	assert.True(t, isNotFound(svc.DeleteTemplate(tmpl.ID)))
	list, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitApplication(t *testing.T) {
	svc, _ := newTestService(t)
	tmpl := createTemplate(t, svc, 365)

	_, err := svc.SubmitApplication(ApplicationRequest{UserID: "u"})
	assert.True(t, isInvalidArgument(err), "got %v", err)

	_, err = svc.SubmitApplication(
		ApplicationRequest{UserID: "u", HolderName: "h", Title: "t", TemplateID: "unknown"},
	)
	assert.True(t, isInvalidArgument(err), "got %v", err)

	app, err := svc.SubmitApplication(
		ApplicationRequest{
			UserID:          "u",
			HolderName:      "h",
			Title:           "t",
			TemplateID:      tmpl.ID,
			ApplicationData: map[string]any{"hours": float64(40)},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, app.Status)

	pending := model.ApplicationStatusPending
	list, err := svc.ListApplications(&pending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, float64(40), list[0].ApplicationData["hours"])
	assert.Equal(t, tmpl.Name, list[0].Template.Name)

	approved := model.ApplicationStatusApproved
	list, err = svc.ListApplications(&approved)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReview(t *testing.T) {
	svc, _ := newTestService(t)
	tmpl := createTemplate(t, svc, 365)
	app, err := svc.SubmitApplication(
		ApplicationRequest{UserID: "u", HolderName: "h", Title: "t", TemplateID: tmpl.ID},
	)
	require.NoError(t, err)

	_, err = svc.Reject(app.ID, ReviewRequest{})
	assert.True(t, isInvalidArgument(err), "auditor is required")

	rejected, err := svc.Reject(app.ID, ReviewRequest{Auditor: "a", Comment: "incomplete"})
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewedAt)

	_, err = svc.Approve(app.ID, ReviewRequest{Auditor: "a"})
	assert.True(t, isInvalidArgument(err), "rejected applications cannot be approved")

	audits, err := svc.ListAudits(app.ID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, model.AuditDecisionRejected, audits[0].Decision)
	assert.Equal(t, "incomplete", audits[0].Comment)

	_, err = svc.Approve("unknown", ReviewRequest{Auditor: "a"})
	assert.True(t, isNotFound(err))
	_, err = svc.ListAudits("unknown")
	assert.True(t, isNotFound(err))
}

func TestIssue(t *testing.T) {
	svc, s := newTestService(t)
	tmpl := createTemplate(t, svc, 365)
	app := approvedApplication(t, svc, tmpl)

	var changed []string
	svc.Changed = func(n string) { changed = append(changed, n) }

	record, err := svc.Issue(app.ID, IssueRequest{Metadata: map[string]any{"grade": "A"}})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CERT-20260504-[A-Z2-9]{8}$`), record.CertificateNumber)
	assert.Len(t, record.VerificationCode, codeLength)
	assert.True(t, record.Certificate.Valid)
	assert.Equal(t, model.CertificateTypeQualification, record.CertificateType)
	assert.Equal(t, "Chamber of Crafts", record.IssuingAuthority)
	require.NotNil(t, record.ExpiryDate)
	assert.True(t, model.DateOf(testNow).AddDate(0, 0, 365).Equal(*record.ExpiryDate))

	stored, err := s.RecordsStorage().FindByCertificateNumber(record.CertificateNumber)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Kim Lee", stored.Certificate.HolderName)
	assert.Equal(t, "A", stored.Metadata["grade"])

	issued, err := svc.GetApplication(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusIssued, issued.Status)
	require.NotNil(t, issued.CertificateID)
	assert.Equal(t, record.CertificateID, *issued.CertificateID)

	_, err = svc.Issue(app.ID, IssueRequest{})
	assert.True(t, isInvalidArgument(err), "already issued")

	_, err = svc.Revoke(record.CertificateID)
	require.NoError(t, err)
	c, err := s.CertificatesStorage().Get(record.CertificateID)
	require.NoError(t, err)
	assert.False(t, c.Valid)

	r, err := svc.Reinstate(record.CertificateID)
	require.NoError(t, err)
	assert.True(t, r.Certificate.Valid)
	assert.Equal(t, []string{record.CertificateNumber, record.CertificateNumber}, changed)
}

func TestIssue_NeverExpires(t *testing.T) {
	svc, _ := newTestService(t)
	app := approvedApplication(t, svc, createTemplate(t, svc, 0))
	record, err := svc.Issue(app.ID, IssueRequest{})
	require.NoError(t, err)
	assert.Nil(t, record.ExpiryDate)
}

func TestIssue_RequiresApproval(t *testing.T) {
	svc, _ := newTestService(t)
	tmpl := createTemplate(t, svc, 10)
	app, err := svc.SubmitApplication(
		ApplicationRequest{UserID: "u", HolderName: "h", Title: "t", TemplateID: tmpl.ID},
	)
	require.NoError(t, err)
	_, err = svc.Issue(app.ID, IssueRequest{})
	assert.True(t, isInvalidArgument(err))

	_, err = svc.Issue(app.ID, IssueRequest{ImageURL: "not a url"})
	assert.True(t, isInvalidArgument(err))
}

func TestRenew(t *testing.T) {
	svc, _ := newTestService(t)
	app := approvedApplication(t, svc, createTemplate(t, svc, 30))
	record, err := svc.Issue(app.ID, IssueRequest{})
	require.NoError(t, err)

	before := model.DateOf(testNow).AddDate(0, 0, -1)
	_, err = svc.Renew(record.CertificateID, &before)
	assert.True(t, isInvalidArgument(err), "expiry before issue date")

	later := model.DateOf(testNow).AddDate(2, 0, 0)
	r, err := svc.Renew(record.CertificateID, &later)
	require.NoError(t, err)
	require.NotNil(t, r.ExpiryDate)
	assert.True(t, later.Equal(model.DateOf(*r.ExpiryDate)))

	r, err = svc.Renew(record.CertificateID, nil)
	require.NoError(t, err)
	assert.Nil(t, r.ExpiryDate)

	_, err = svc.Renew("unknown", nil)
	assert.True(t, isNotFound(err))

	r, err = svc.UpdateMetadata(record.CertificateID, map[string]any{"note": "renewed"})
	require.NoError(t, err)
	assert.Equal(t, "renewed", r.Metadata["note"])
}

func TestGenerateNumber(t *testing.T) {
	n1, err := generateNumber(testNow)
	require.NoError(t, err)
	n2, err := generateNumber(testNow)
	require.NoError(t, err)
	assert.NotEqual(t, n1, n2)
	assert.Regexp(t, `^CERT-20260504-[A-Z2-9]{8}$`, n1)
}

func TestIssue_StaleApplicationCopies(t *testing.T) {
	svc, s := newTestService(t)
	app := approvedApplication(t, svc, createTemplate(t, svc, 365))

	apps := s.ApplicationsStorage()
	first, err := apps.Get(app.ID)
	require.NoError(t, err)
	second, err := apps.Get(app.ID)
	require.NoError(t, err)

	issue := func(a *model.CertificateApplication, number string) error {
		a.Status = model.ApplicationStatusIssued
		return apps.Issue(
			a, &model.Certificate{
				Title:      a.Title,
				HolderName: a.HolderName,
				Valid:      true,
			}, &model.CertificateRecord{
				CertificateNumber: number,
				VerificationCode:  "code-" + number,
				IssueDate:         testNow,
			},
		)
	}
	require.NoError(t, issue(first, "CERT-A"))
	err = issue(second, "CERT-B")
	assert.True(t, isInvalidArgument(err), "got %v", err)

	var records, certificates int64
	require.NoError(t, s.DB().Model(&model.CertificateRecord{}).Count(&records).Error)
	require.NoError(t, s.DB().Model(&model.Certificate{}).Count(&certificates).Error)
	assert.Equal(t, int64(1), records)
	assert.Equal(t, int64(1), certificates)

	stored, err := apps.Get(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusIssued, stored.Status)
	require.NotNil(t, stored.CertificateID)
	assert.Equal(t, *first.CertificateID, *stored.CertificateID)
}

func TestReview_StaleApplicationCopies(t *testing.T) {
	svc, s := newTestService(t)
	app, err := svc.SubmitApplication(
		ApplicationRequest{
			UserID:     "user-8",
			HolderName: "Ria Park",
			Title:      "Certified Welder",
			TemplateID: createTemplate(t, svc, 30).ID,
		},
	)
	require.NoError(t, err)

	apps := s.ApplicationsStorage()
	approve, err := apps.Get(app.ID)
	require.NoError(t, err)
	reject, err := apps.Get(app.ID)
	require.NoError(t, err)

	approve.Status = model.ApplicationStatusApproved
	require.NoError(
		t, apps.Review(
			approve, &model.CertificateAudit{
				ApplicationID: app.ID,
				Decision:      model.AuditDecisionApproved,
				Auditor:       "auditor-1",
				AuditTime:     testNow,
			},
		),
	)
	reject.Status = model.ApplicationStatusRejected
	err = apps.Review(
		reject, &model.CertificateAudit{
			ApplicationID: app.ID,
			Decision:      model.AuditDecisionRejected,
			Auditor:       "auditor-2",
			AuditTime:     testNow,
		},
	)
	assert.True(t, isInvalidArgument(err), "got %v", err)

	audits, err := svc.ListAudits(app.ID)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "auditor-1", audits[0].Auditor)

	stored, err := svc.GetApplication(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusApproved, stored.Status)
}

func TestReview_UnknownApplication(t *testing.T) {
	_, s := newTestService(t)
	err := s.ApplicationsStorage().Review(
		&model.CertificateApplication{
			ID:     "missing",
			Status: model.ApplicationStatusApproved,
		}, &model.CertificateAudit{ApplicationID: "missing"},
	)
	assert.True(t, isNotFound(err), "got %v", err)
}
