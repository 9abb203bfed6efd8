package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	eventmocks "github.com/code-withabhi/safety-compass/internal/events/mocks"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/notify"
	notifymocks "github.com/code-withabhi/safety-compass/internal/notify/mocks"
	riskmocks "github.com/code-withabhi/safety-compass/internal/risk/mocks"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/code-withabhi/safety-compass/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type submitterFixture struct {
	incidents  *mocks.MockIncidentRepository
	contacts   *mocks.MockContactRepository
	classifier *riskmocks.MockClassifier
	dispatcher *notifymocks.MockDispatcher
	publisher  *eventmocks.MockPublisher
	guard      *mocks.MockSubmitGuard
	submitter  service.Submitter
}

func newSubmitterFixture(t *testing.T, cooldown time.Duration) *submitterFixture {
	ctrl := gomock.NewController(t)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	f := &submitterFixture{
		incidents:  mocks.NewMockIncidentRepository(ctrl),
		contacts:   mocks.NewMockContactRepository(ctrl),
		classifier: riskmocks.NewMockClassifier(ctrl),
		dispatcher: notifymocks.NewMockDispatcher(ctrl),
		publisher:  eventmocks.NewMockPublisher(ctrl),
		guard:      mocks.NewMockSubmitGuard(ctrl),
	}
	f.submitter = service.NewSubmitter(
		f.incidents, f.contacts, f.classifier, f.dispatcher, f.publisher, f.guard, cooldown, logger,
	)
	return f
}

func testFix() *models.PositionFix {
	return &models.PositionFix{
		Latitude:  55.75,
		Longitude: 37.62,
		Speed:     65,
		Timestamp: time.Now(),
	}
}

func reachableContact() *models.EmergencyContact {
	return &models.EmergencyContact{
		ID:     uuid.New(),
		UserID: "user-1",
		Name:   "Anna",
		Phone:  "+79990000001",
	}
}

func TestSubmit_Success(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), "user-1", 8*time.Second).Return(true, nil).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskHigh, Confidence: 0.9, Provenance: models.ProvenanceModel}, nil).
		Times(1)
	f.incidents.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = uuid.New()
			inc.DetectedAt = time.Now()
			return nil
		}).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.contacts.EXPECT().ListByUser(gomock.Any(), "user-1").Return([]*models.EmergencyContact{reachableContact()}, nil).Times(1)
	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&notify.Report{Results: []notify.ContactResult{{ContactName: "Anna", Channel: "sms", Delivered: true}}}).
		Times(1)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSuccess, outcome.Status)
	require.NotNil(t, outcome.Incident)
	assert.Equal(t, models.RiskHigh, outcome.Incident.RiskLevel)
	assert.Equal(t, models.StatusPending, outcome.Incident.Status)
	require.NotNil(t, outcome.Report)
	assert.True(t, outcome.Report.AnyDelivered())
}

func TestSubmit_NilFix(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", nil, nil)

	assert.ErrorIs(t, err, service.ErrNoPositionFix)
	assert.Nil(t, outcome)
}

// Второй сабмит в пределах окна кулдауна подавляется, инцидент один
func TestSubmit_CooldownSuppressesDuplicate(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), "user-1", gomock.Any()).Return(true, nil).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskLow, Confidence: 0.6, Provenance: models.ProvenanceFallback}, nil).
		Times(1)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.contacts.EXPECT().ListByUser(gomock.Any(), "user-1").Return([]*models.EmergencyContact{reachableContact()}, nil).Times(1)
	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&notify.Report{Results: []notify.ContactResult{{Delivered: true}}}).
		Times(1)

	first, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSuccess, first.Status)

	second, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)
	assert.ErrorIs(t, err, service.ErrDuplicateSubmission)
	assert.Nil(t, second)
}

// Кулдаун действует на пользователя, а не глобально
func TestSubmit_CooldownIsPerUser(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskLow, Confidence: 0.6, Provenance: models.ProvenanceFallback}, nil).
		Times(2)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	f.contacts.EXPECT().ListByUser(gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)

	_, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)
	require.NoError(t, err)

	_, err = f.submitter.Submit(context.Background(), "user-2", testFix(), nil)
	require.NoError(t, err)
}

// Межсессионный маркер уже стоит - сабмит подавляется до любой записи
func TestSubmit_CrossSessionGuardSuppresses(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), "user-1", gomock.Any()).Return(false, nil).Times(1)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	assert.ErrorIs(t, err, service.ErrDuplicateSubmission)
	assert.Nil(t, outcome)
}

// Недоступность Redis не должна блокировать экстренный сабмит
func TestSubmit_GuardErrorDoesNotBlock(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), "user-1", gomock.Any()).Return(false, errors.New("redis down")).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskLow, Confidence: 0.6, Provenance: models.ProvenanceFallback}, nil).
		Times(1)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.contacts.EXPECT().ListByUser(gomock.Any(), "user-1").Return(nil, nil).Times(1)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomePartial, outcome.Status)
}

// Отказ классификатора деградирует до локального правила по скорости
func TestSubmit_ClassifierErrorUsesLocalRule(t *testing.T) {
	tests := []struct {
		name     string
		speed    float64
		expected models.RiskTier
	}{
		{"high speed", 70, models.RiskHigh},
		{"medium speed", 35, models.RiskMedium},
		{"low speed", 5, models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubmitterFixture(t, 8*time.Second)

			f.guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(1)
			f.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(nil, errors.New("model timeout")).Times(1)
			f.incidents.EXPECT().
				Create(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, inc *models.Incident) error {
					assert.Equal(t, tt.expected, inc.RiskLevel)
					return nil
				}).Times(1)
			f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
			f.contacts.EXPECT().ListByUser(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

			fix := testFix()
			fix.Speed = tt.speed

			outcome, err := f.submitter.Submit(context.Background(), "user-1", fix, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, outcome.Incident.RiskLevel)
		})
	}
}

// Отказ записи - терминальный провал, уведомления не рассылаются
func TestSubmit_PersistenceFailure(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskHigh, Confidence: 0.9, Provenance: models.ProvenanceModel}, nil).
		Times(1)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down")).Times(1)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	assert.Error(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, service.OutcomeFailure, outcome.Status)
	assert.Equal(t, "failed to save emergency alert", outcome.Message)
}

// Инцидент записан, доставка не удалась - частичный успех, записи остаются
func TestSubmit_NotificationFailureIsPartial(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskMedium, Confidence: 0.7, Provenance: models.ProvenanceModel}, nil).
		Times(1)
	f.incidents.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			inc.ID = uuid.New()
			return nil
		}).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.contacts.EXPECT().ListByUser(gomock.Any(), "user-1").Return([]*models.EmergencyContact{reachableContact()}, nil).Times(1)
	f.dispatcher.EXPECT().
		Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&notify.Report{Results: []notify.ContactResult{{ContactName: "Anna", Channel: "sms", Error: "provider error"}}}).
		Times(1)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomePartial, outcome.Status)
	assert.Equal(t, "alert saved, notification failed", outcome.Message)
	require.NotNil(t, outcome.Incident)
	assert.Equal(t, models.StatusPending, outcome.Incident.Status)
}

// Ошибка загрузки контактов не откатывает записанный инцидент
func TestSubmit_ContactLoadErrorIsPartial(t *testing.T) {
	f := newSubmitterFixture(t, 8*time.Second)

	f.guard.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil).Times(1)
	f.classifier.EXPECT().
		Classify(gomock.Any(), gomock.Any()).
		Return(&models.ClassificationResult{RiskLevel: models.RiskLow, Confidence: 0.6, Provenance: models.ProvenanceFallback}, nil).
		Times(1)
	f.incidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	f.contacts.EXPECT().ListByUser(gomock.Any(), "user-1").Return(nil, errors.New("db down")).Times(1)
	f.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	outcome, err := f.submitter.Submit(context.Background(), "user-1", testFix(), nil)

	require.NoError(t, err)
	assert.Equal(t, service.OutcomePartial, outcome.Status)
	assert.Nil(t, outcome.Report)
}
