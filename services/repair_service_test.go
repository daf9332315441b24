package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"repairshop-backend/models"
	"repairshop-backend/storage"
	"repairshop-backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMessage struct {
	recipient string
	template  string
	data      map[string]any
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, recipient, templateName string, data map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentMessage{recipient: recipient, template: templateName, data: data})
	return nil
}

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	svc      *RepairService
	notifier *NotificationService
	settings *SettingsService
	email    *recordingDispatcher
	sms      *recordingDispatcher
	broker   *recordingDispatcher
	uploads  string
	now      time.Time

	admin, tech, client, other *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := &fixture{
		ctx:     context.Background(),
		db:      db,
		email:   &recordingDispatcher{},
		sms:     &recordingDispatcher{},
		broker:  &recordingDispatcher{},
		uploads: t.TempDir(),
		now:     time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	files, err := storage.NewLocalStorage(f.uploads)
	require.NoError(t, err)

	f.settings = NewSettingsService(db)
	f.notifier = NewNotificationService(db, f.settings, NotificationConfig{BatchSize: 50, MaxAttempts: 2}, zap.NewNop())
	f.notifier.Register(models.ChannelEmail, f.email)
	f.notifier.Register(models.ChannelSMS, f.sms)
	f.notifier.Register(models.ChannelBroker, f.broker)
	f.notifier.now = func() time.Time { return f.now }

	f.svc = NewRepairService(db, f.settings, f.notifier, files, zap.NewNop())
	f.svc.SetClock(func() time.Time { return f.now })

	f.admin = testutil.SeedUser(t, db, models.RoleAdmin, "admin@example.com")
	f.tech = testutil.SeedUser(t, db, models.RoleTechnician, "tech@example.com")
	f.client = testutil.SeedUser(t, db, models.RoleClient, "client@example.com")
	f.other = testutil.SeedUser(t, db, models.RoleClient, "other@example.com")
	return f
}

func (f *fixture) createRepair(t *testing.T, actor *models.User, customer *models.User) *models.Repair {
	t.Helper()
	r, err := f.svc.Create(f.ctx, actor, CreateRepairInput{
		CustomerID:         &customer.ID,
		BrandOther:         "Apple",
		Model:              "iPhone 13",
		ServiceRequested:   "Screen replacement",
		ProblemDescription: "Cracked screen",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) events(t *testing.T, repairID uuid.UUID) []models.NotificationEvent {
	t.Helper()
	var events []models.NotificationEvent
	require.NoError(t, f.db.Where("repair_id = ?", repairID).Order("channel").Find(&events).Error)
	return events
}

func TestCreateRepairComputesTotalAndWritesHistory(t *testing.T) {
	f := newFixture(t)

	r, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{
		CustomerID:         &f.client.ID,
		TechnicianID:       &f.tech.ID,
		Model:              "Galaxy S21",
		ProblemDescription: "Does not charge",
		DiagnosisCost:      f64(50),
		LaborCost:          f64(120),
		PartsCost:          f64(300),
		Discount:           f64(40),
	})
	require.NoError(t, err)

	assert.Regexp(t, `^REP-240110-\d{4}$`, r.TicketNumber)
	assert.Equal(t, models.StatusReceived, r.Status)
	assert.Equal(t, 430.0, r.TotalCost)
	assert.Equal(t, 30, r.WarrantyDays)
	assert.Equal(t, 1, r.Version)

	got, err := f.svc.Get(f.ctx, f.tech, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 430.0, got.TotalCost)
	require.Len(t, got.History, 1)
	assert.Equal(t, models.StatusReceived, got.History[0].Status)
	assert.Equal(t, "Repair created", got.History[0].Notes)
	assert.Equal(t, f.tech.ID, *got.History[0].ChangedBy)

	events := f.events(t, r.ID)
	require.Len(t, events, 2)
	assert.Equal(t, models.ChannelBroker, events[0].Channel)
	assert.Equal(t, "repair.received", events[0].Recipient)
	assert.Equal(t, models.ChannelEmail, events[1].Channel)
	assert.Equal(t, f.client.Email, events[1].Recipient)
	assert.Equal(t, TemplateRepairCreated, events[1].Template)
	assert.Equal(t, models.NotificationPending, events[1].Status)
}

func TestCreateRepairValidation(t *testing.T) {
	f := newFixture(t)
	var verr *ValidationError

	_, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{CustomerID: &f.client.ID})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "problem_description", verr.Field)

	_, err = f.svc.Create(f.ctx, f.tech, CreateRepairInput{CustomerID: &f.tech.ID, ProblemDescription: "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_id", verr.Field)

	_, err = f.svc.Create(f.ctx, f.tech, CreateRepairInput{CustomerID: &f.client.ID, ProblemDescription: "x", LaborCost: f64(-1)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "labor_cost", verr.Field)

	_, err = f.svc.Create(f.ctx, f.tech, CreateRepairInput{CustomerID: &f.client.ID, ProblemDescription: "x", TechnicianID: &f.client.ID})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "technician_id", verr.Field)

	var count int64
	f.db.Model(&models.Repair{}).Count(&count)
	assert.Zero(t, count)
}

func TestClientCreatesRepairForThemselves(t *testing.T) {
	f := newFixture(t)

	r, err := f.svc.Create(f.ctx, f.client, CreateRepairInput{
		CustomerID:         &f.other.ID,
		TechnicianID:       &f.tech.ID,
		ProblemDescription: "Battery drains fast",
		LaborCost:          f64(999),
	})
	require.NoError(t, err)

	assert.Equal(t, f.client.ID, r.CustomerID)
	assert.Nil(t, r.TechnicianID)
	assert.Zero(t, r.TotalCost)
}

func TestClientCannotSeeForeignRepairs(t *testing.T) {
	f := newFixture(t)
	mine := f.createRepair(t, f.tech, f.client)
	theirs := f.createRepair(t, f.tech, f.other)

	_, err := f.svc.Get(f.ctx, f.client, theirs.ID)
	assert.ErrorIs(t, err, ErrRepairNotFound)
	_, err = f.svc.AddNote(f.ctx, f.client, theirs.ID, "hello?", false)
	assert.ErrorIs(t, err, ErrRepairNotFound)

	list, total, err := f.svc.List(f.ctx, f.client, RepairFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, total, err = f.svc.List(f.ctx, f.admin, RepairFilter{Search: strings.ToLower(theirs.TicketNumber)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, theirs.ID, list[0].ID)

	_, _, err = f.svc.List(f.ctx, f.admin, RepairFilter{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestNotesVisibility(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	note, err := f.svc.AddNote(f.ctx, f.client, r.ID, "Please call me first", true)
	require.NoError(t, err)
	assert.False(t, note.IsInternal)

	_, err = f.svc.AddNote(f.ctx, f.tech, r.ID, "Board is water damaged", true)
	require.NoError(t, err)

	_, err = f.svc.AddNote(f.ctx, f.tech, r.ID, "   ", false)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	staffView, err := f.svc.Get(f.ctx, f.tech, r.ID)
	require.NoError(t, err)
	assert.Len(t, staffView.Notes, 2)

	clientView, err := f.svc.Get(f.ctx, f.client, r.ID)
	require.NoError(t, err)
	require.Len(t, clientView.Notes, 1)
	assert.Equal(t, "Please call me first", clientView.Notes[0].Note)
}

func TestUpdateRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{
		CustomerID:         &f.client.ID,
		ProblemDescription: "No sound",
		LaborCost:          f64(120),
		PartsCost:          f64(300),
	})
	require.NoError(t, err)

	version := 1
	updated, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{PartsCost: f64(100), Version: &version})
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.PartsCost)
	assert.Equal(t, 120.0, updated.LaborCost)
	assert.Equal(t, 220.0, updated.TotalCost)
	assert.Equal(t, 2, updated.Version)

	model := "Pixel 8"
	updated, err = f.svc.Update(f.ctx, f.admin, r.ID, RepairPatch{Model: &model, TechnicianID: &f.tech.ID})
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", updated.Model)
	assert.Equal(t, f.tech.ID, *updated.TechnicianID)
	assert.Equal(t, 220.0, updated.TotalCost)

	unassign := uuid.Nil
	updated, err = f.svc.Update(f.ctx, f.admin, r.ID, RepairPatch{TechnicianID: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.TechnicianID)
}

func TestUpdateRejections(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	_, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = f.svc.Update(f.ctx, f.client, r.ID, RepairPatch{LaborCost: f64(1)})
	var aerr *AuthorizationError
	assert.ErrorAs(t, err, &aerr)

	_, err = f.svc.Update(f.ctx, f.tech, uuid.New(), RepairPatch{LaborCost: f64(1)})
	assert.ErrorIs(t, err, ErrRepairNotFound)

	condition := 9
	_, err = f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{PhysicalCondition: &condition})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateRepairRejectsUnknownCatalogEntries(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	cases := []struct {
		entity string
		input  CreateRepairInput
	}{
		{"service", CreateRepairInput{ServiceID: &missing}},
		{"device type", CreateRepairInput{DeviceTypeID: &missing}},
		{"brand", CreateRepairInput{BrandID: &missing}},
	}
	for _, tc := range cases {
		t.Run(tc.entity, func(t *testing.T) {
			in := tc.input
			in.CustomerID = &f.client.ID
			in.ProblemDescription = "No power"

			_, err := f.svc.Create(f.ctx, f.tech, in)
			var nerr *NotFoundError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, tc.entity, nerr.Entity)
		})
	}

	var count int64
	f.db.Model(&models.Repair{}).Count(&count)
	assert.Zero(t, count)
	f.db.Model(&models.NotificationEvent{}).Count(&count)
	assert.Zero(t, count)

	nilID := uuid.Nil
	r, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{
		CustomerID:         &f.client.ID,
		BrandID:            &nilID,
		ProblemDescription: "No power",
	})
	require.NoError(t, err)
	assert.Nil(t, r.BrandID)
}

func TestUpdateRejectsUnknownCatalogEntries(t *testing.T) {
	f := newFixture(t)
	brand := models.Brand{Name: "Samsung", IsActive: true}
	require.NoError(t, f.db.Create(&brand).Error)
	r := f.createRepair(t, f.tech, f.client)

	missing := uuid.New()
	_, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{BrandID: &missing})
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "brand", nerr.Entity)

	_, err = f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{ServiceID: &missing})
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "service", nerr.Entity)

	got, err := f.svc.Get(f.ctx, f.tech, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BrandID)
	assert.Equal(t, r.Version, got.Version)

	updated, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{BrandID: &brand.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.BrandID)
	assert.Equal(t, brand.ID, *updated.BrandID)

	unassign := uuid.Nil
	updated, err = f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{BrandID: &unassign})
	require.NoError(t, err)
	assert.Nil(t, updated.BrandID)
}

func TestWarrantyDaysMustBePositive(t *testing.T) {
	f := newFixture(t)
	var verr *ValidationError

	for _, days := range []int{0, -5} {
		d := days
		_, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{
			CustomerID:         &f.client.ID,
			ProblemDescription: "No power",
			WarrantyDays:       &d,
		})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "warranty_days", verr.Field)
	}

	r := f.createRepair(t, f.tech, f.client)
	zero := 0
	_, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{WarrantyDays: &zero})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "warranty_days", verr.Field)
}

func TestTicketCollisionRetries(t *testing.T) {
	f := newFixture(t)
	taken := f.createRepair(t, f.tech, f.client).TicketNumber

	calls := 0
	f.svc.ticket = func(now time.Time) string {
		calls++
		if calls < 3 {
			return taken
		}
		return "REP-240110-4242"
	}
	r := f.createRepair(t, f.tech, f.client)
	assert.Equal(t, "REP-240110-4242", r.TicketNumber)
	assert.Equal(t, 3, calls)

	calls = 0
	f.svc.ticket = func(now time.Time) string {
		calls++
		return taken
	}
	_, err := f.svc.Create(f.ctx, f.tech, CreateRepairInput{CustomerID: &f.client.ID, ProblemDescription: "No power"})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ticketAttempts, calls)

	var count int64
	f.db.Model(&models.Repair{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestUpdateWarrantyDaysAfterDelivery(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	for _, step := range []TransitionRequest{
		{Status: models.StatusDiagnosing},
		{Status: models.StatusRepairing},
		{Status: models.StatusReady},
		{Status: models.StatusDelivered, Signature: "data:image/png;base64,SIG"},
	} {
		_, err := f.svc.Transition(f.ctx, f.tech, r.ID, step, nil)
		require.NoError(t, err, step.Status)
	}

	days := 90
	got, err := f.svc.Update(f.ctx, f.admin, r.ID, RepairPatch{WarrantyDays: &days})
	require.NoError(t, err)
	require.NotNil(t, got.DeliveredAt)
	require.NotNil(t, got.WarrantyExpires)
	assert.Equal(t, 90, got.WarrantyDays)
	assert.True(t, WarrantyExpiration(*got.DeliveredAt, 90).Equal(*got.WarrantyExpires))
	assert.True(t, time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC).Equal(*got.WarrantyExpires))
}

func TestConcurrentUpdateWithStaleVersion(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)
	read := r.Version

	_, err := f.svc.Update(f.ctx, f.tech, r.ID, RepairPatch{LaborCost: f64(10), Version: &read})
	require.NoError(t, err)

	_, err = f.svc.Update(f.ctx, f.admin, r.ID, RepairPatch{LaborCost: f64(20), Version: &read})
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)

	_, err = f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusDiagnosing}, &read)
	assert.ErrorIs(t, err, ErrStaleRepair)

	got, err := f.svc.Get(f.ctx, f.tech, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.TotalCost)
	assert.Equal(t, models.StatusReceived, got.Status)
}

func TestTransitionLifecycle(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	steps := []TransitionRequest{
		{Status: models.StatusDiagnosing},
		{Status: models.StatusRepairing},
		{Status: models.StatusReady, Notes: "Come by after 5pm"},
	}
	for _, step := range steps {
		f.now = f.now.Add(24 * time.Hour)
		_, err := f.svc.Transition(f.ctx, f.tech, r.ID, step, nil)
		require.NoError(t, err, step.Status)
	}

	_, err := f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusDelivered}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	f.now = time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	got, err := f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusDelivered, Signature: "data:image/png;base64,SIG"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDelivered, got.Status)
	require.NotNil(t, got.WarrantyExpires)
	assert.True(t, time.Date(2024, 2, 19, 12, 0, 0, 0, time.UTC).Equal(*got.WarrantyExpires))
	assert.True(t, time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC).Equal(*got.StartedAt))
	assert.True(t, time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC).Equal(*got.CompletedAt))
	assert.Len(t, got.History, 5)
	assert.Equal(t, models.StatusDelivered, got.History[0].Status)
	assert.Equal(t, 5, got.Version)

	_, err = f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusCancelled}, nil)
	assert.Error(t, err)

	var templates []string
	for _, e := range f.events(t, r.ID) {
		if e.Channel == models.ChannelEmail {
			templates = append(templates, e.Template)
		}
	}
	assert.ElementsMatch(t, []string{
		TemplateRepairCreated, TemplateStatusChanged, TemplateStatusChanged, TemplateRepairReady, TemplateStatusChanged,
	}, templates)
}

func TestClientTransitions(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	_, err := f.svc.Transition(f.ctx, f.client, r.ID, TransitionRequest{Status: models.StatusCancelled}, nil)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)

	_, err = f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusWaitingApproval}, nil)
	require.NoError(t, err)

	_, err = f.svc.Transition(f.ctx, f.client, r.ID, TransitionRequest{Status: models.StatusRepairing}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "signature", verr.Field)

	got, err := f.svc.Transition(f.ctx, f.client, r.ID, TransitionRequest{Status: models.StatusRepairing, Signature: "data:image/png;base64,OK"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRepairing, got.Status)
	assert.Equal(t, "data:image/png;base64,OK", got.SignatureApproval)

	_, err = f.svc.Transition(f.ctx, f.other, r.ID, TransitionRequest{Status: models.StatusCancelled}, nil)
	assert.ErrorIs(t, err, ErrRepairNotFound)
}

func TestClientSchedulesPickup(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)
	_, err := f.svc.Transition(f.ctx, f.tech, r.ID, TransitionRequest{Status: models.StatusReady}, nil)
	require.NoError(t, err)

	_, err = f.svc.Transition(f.ctx, f.client, r.ID, TransitionRequest{Status: models.StatusReady}, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	pickup := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got, err := f.svc.Transition(f.ctx, f.client, r.ID, TransitionRequest{Status: models.StatusReady, EstimatedDelivery: &pickup}, nil)
	require.NoError(t, err)
	assert.True(t, pickup.Equal(*got.EstimatedDelivery))
	assert.Equal(t, models.StatusReady, got.Status)
}

func TestDeleteRepairCascades(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)
	_, err := f.svc.AddNote(f.ctx, f.tech, r.ID, "internal", true)
	require.NoError(t, err)
	images, err := f.svc.AddImages(f.ctx, f.tech, r.ID, models.ImageBefore, []ImageUpload{jpeg("front.jpg")})
	require.NoError(t, err)

	var aerr *AuthorizationError
	assert.ErrorAs(t, f.svc.Delete(f.ctx, f.tech, r.ID), &aerr)

	require.NoError(t, f.svc.Delete(f.ctx, f.admin, r.ID))

	_, err = f.svc.Get(f.ctx, f.admin, r.ID)
	assert.ErrorIs(t, err, ErrRepairNotFound)
	for _, model := range []interface{}{&models.StatusHistory{}, &models.RepairNote{}, &models.RepairImage{}, &models.NotificationEvent{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Where("repair_id = ?", r.ID).Count(&n).Error)
		assert.Zero(t, n)
	}
	_, statErr := os.Stat(filepath.Join(f.uploads, filepath.Base(images[0].ImagePath)))
	assert.True(t, os.IsNotExist(statErr))

	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.admin, r.ID), ErrRepairNotFound)
}

func jpeg(name string) ImageUpload {
	return ImageUpload{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        4,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("\xff\xd8\xff\xe0")), nil
		},
	}
}

func TestImages(t *testing.T) {
	f := newFixture(t)
	r := f.createRepair(t, f.tech, f.client)

	images, err := f.svc.AddImages(f.ctx, f.client, r.ID, "", []ImageUpload{jpeg("Front Side.jpg"), jpeg("back.jpg")})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, models.ImageBefore, images[0].ImageType)
	assert.True(t, strings.HasPrefix(images[0].ImagePath, "/uploads/repair-"))
	assert.True(t, strings.HasSuffix(images[0].ImagePath, "-front-side.jpg"))
	_, err = os.Stat(filepath.Join(f.uploads, filepath.Base(images[0].ImagePath)))
	require.NoError(t, err)

	var verr *ValidationError
	_, err = f.svc.AddImages(f.ctx, f.tech, r.ID, models.ImageAfter, []ImageUpload{{Filename: "notes.pdf", Size: 10}})
	assert.ErrorAs(t, err, &verr)
	_, err = f.svc.AddImages(f.ctx, f.tech, r.ID, "later", []ImageUpload{jpeg("a.jpg")})
	assert.ErrorAs(t, err, &verr)
	big := jpeg("big.jpg")
	big.Size = MaxImageSize + 1
	_, err = f.svc.AddImages(f.ctx, f.tech, r.ID, models.ImageAfter, []ImageUpload{big})
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.AddImages(f.ctx, f.other, r.ID, models.ImageAfter, []ImageUpload{jpeg("a.jpg")})
	assert.ErrorIs(t, err, ErrRepairNotFound)

	var aerr *AuthorizationError
	assert.ErrorAs(t, f.svc.DeleteImage(f.ctx, f.client, images[0].ID), &aerr)

	require.NoError(t, f.svc.DeleteImage(f.ctx, f.tech, images[0].ID))
	_, err = os.Stat(filepath.Join(f.uploads, filepath.Base(images[0].ImagePath)))
	assert.True(t, os.IsNotExist(err))
	assert.True(t, IsNotFound(f.svc.DeleteImage(f.ctx, f.tech, images[0].ID)))

	got, err := f.svc.Get(f.ctx, f.client, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 1)
}
