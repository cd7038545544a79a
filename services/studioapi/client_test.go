package studioapi_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/studio/apps/api/echo"
	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/outstanding"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
	"github.com/trezcool/studio/services/studioapi"
	"github.com/trezcool/studio/testutil"
)

const adminPassword = "s3cret-pa55"

type backend struct {
	url    string
	conf   *core.Config
	studio *testutil.Studio
	close  func()
}

func setup(t *testing.T) backend {
	conf := core.NewTestConfig()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	conf.Auth.AdminPasswordHash = string(hash)

	studio := testutil.NewStudio()
	validate, translator := payment.NewValidator()
	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     &testutil.Logger{},
		Roster:     studio.Roster,
		Payments:   studio.Payments,
		MailSvc:    &testutil.Mailbox{},
		Validate:   validate,
		Translator: translator,
	})
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return backend{url: ts.URL, conf: conf, studio: studio, close: ts.Close}
}

func (b backend) client(t *testing.T, roles ...string) *studioapi.Client {
	token, err := echoapi.GenerateToken(b.conf, echoapi.NewClaims(b.conf, "admin", roles...))
	require.NoError(t, err)
	return studioapi.New(b.url, studioapi.Session{Token: token}, nil)
}

func TestLogin(t *testing.T) {
	b := setup(t)
	ctx := context.Background()

	_, err := studioapi.Login(ctx, b.url, nil, "admin", "wrong")
	assert.Equal(t, payment.KindValidation, payment.KindOf(err))

	session, err := studioapi.Login(ctx, b.url, nil, "Admin", adminPassword)
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	classes, err := studioapi.New(b.url, session, nil).QueryClasses(ctx)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestClient_roster(t *testing.T) {
	b := setup(t)
	ctx := context.Background()
	ballet := b.studio.Class(t, "Ballet", 800.5, 1)
	ada := b.studio.Student(t, "ada")
	bob := b.studio.Student(t, "bob")
	miss := b.studio.Teacher(t, "miss", true)

	client := b.client(t, echoapi.RoleStaff)
	store := roster.NewStore(client)

	class, err := client.GetClassByID(ctx, ballet.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.5", class.MonthlyPrice.String())

	require.NoError(t, store.AddEnrollment(ctx, ballet.ID, ada.ID))
	require.NoError(t, store.AddAssignment(ctx, ballet.ID, miss.ID))
	view, ok := store.View(ballet.ID)
	require.True(t, ok)
	require.Len(t, view.Students, 1)
	assert.Equal(t, ada.ID, view.Students[0].ID)
	require.Len(t, view.Teachers, 1)
	assert.Equal(t, miss.ID, view.Teachers[0].ID)

	tests := []struct {
		name    string
		mutate  func() error
		wantErr error
	}{
		{name: "already enrolled", mutate: func() error { return store.AddEnrollment(ctx, ballet.ID, ada.ID) }, wantErr: roster.ErrConflict},
		{name: "class full", mutate: func() error { return store.AddEnrollment(ctx, ballet.ID, bob.ID) }, wantErr: roster.ErrClassFull},
		{name: "unknown class", mutate: func() error { return client.EnrollStudent(ctx, ada.ID, "nothing") }, wantErr: roster.ErrClassNotFound},
		{name: "not enrolled", mutate: func() error { return store.RemoveEnrollment(ctx, ballet.ID, bob.ID) }, wantErr: roster.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.mutate())
		})
	}

	require.NoError(t, store.RemoveEnrollment(ctx, ballet.ID, ada.ID))
	students, err := store.ResolveEnrolledStudents(ctx, ballet.ID)
	require.NoError(t, err)
	assert.Empty(t, students)

	student, err := client.GetStudentByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.Empty(t, student.ClassIDs)

	_, err = client.GetStudentByID(ctx, "nobody")
	assert.Equal(t, roster.ErrStudentNotFound, err)
}

func TestClient_payments(t *testing.T) {
	b := setup(t)
	ctx := context.Background()
	ballet := b.studio.Class(t, "Ballet", 800)
	jazz := b.studio.Class(t, "Jazz", 700)
	ada := b.studio.Student(t, "ada", ballet, jazz)

	staff := b.client(t, echoapi.RoleStaff)
	validate, translator := payment.NewValidator()
	coordinator := payment.NewCoordinator(staff, validate, translator)
	source := outstanding.NewSource(staff, staff)

	ref := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	charges, err := source.PendingCharges(ctx, ada.ID, ref)
	require.NoError(t, err)
	require.Len(t, charges, 2)

	rec, err := coordinator.Submit(ctx, payment.Submission{
		StudentID:   ada.ID,
		Charges:     charges[:1],
		PaymentDate: "2024-03-05",
		Method:      payment.Cash,
	})
	require.NoError(t, err)
	assert.False(t, rec.MultiClass)
	assert.Equal(t, []string{ballet.ID}, rec.ClassIDs)
	assert.Equal(t, "800", rec.TotalAmount.String())

	_, err = staff.CreatePayment(ctx, payment.SingleClassRequest{
		StudentID: ada.ID, ClassID: ballet.ID, Amount: 800,
		PaymentMonth: "2024-03", PaymentDate: "2024-03-05", PaymentMethod: payment.Cash,
	})
	assert.Equal(t, payment.KindDuplicatePayment, payment.KindOf(err))

	_, err = staff.CreatePayment(ctx, payment.SingleClassRequest{
		StudentID: ada.ID, ClassID: jazz.ID, Amount: 700,
		PaymentMonth: "03-2024", PaymentDate: "2024-03-05", PaymentMethod: payment.Cash,
	})
	pErr := payment.Classify(err)
	assert.Equal(t, payment.KindValidation, pErr.Kind)
	assert.Contains(t, pErr.Fields, "paymentMonth")

	charges, err = source.PendingCharges(ctx, ada.ID, ref)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, jazz.ID, charges[0].ClassID)

	records, err := staff.ListPayments(ctx, payment.Filter{
		StudentID: ada.ID,
		Month:     "2024-03",
		Ordering:  []core.DBOrdering{{Field: "payment_date"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	err = staff.DeletePayment(ctx, rec.ID)
	assert.Equal(t, payment.KindPermissionDenied, payment.KindOf(err))

	admin := b.client(t, echoapi.RoleAdmin)
	require.NoError(t, admin.DeletePayment(ctx, rec.ID))
	err = admin.DeletePayment(ctx, rec.ID)
	pErr = payment.Classify(err)
	assert.Equal(t, payment.KindUnknown, pErr.Kind)
	assert.Equal(t, payment.TagPaymentNotFound, pErr.Tag)
}

func TestClient_failures(t *testing.T) {
	b := setup(t)
	ballet := b.studio.Class(t, "Ballet", 800)

	anonymous := studioapi.New(b.url, studioapi.Session{}, nil)
	_, err := anonymous.GetClassByID(context.Background(), ballet.ID)
	assert.Equal(t, payment.KindUnauthenticated, payment.KindOf(err))

	client := b.client(t, echoapi.RoleStaff)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetClassByID(ctx, ballet.ID)
	assert.True(t, payment.IsCancelled(err))

	b.close()
	_, err = client.GetClassByID(context.Background(), ballet.ID)
	pErr := payment.Classify(err)
	assert.Equal(t, payment.KindTransport, pErr.Kind)
	assert.Error(t, errors.Cause(pErr.Err))
}
