package service_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/code-withabhi/safety-compass/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sessionFixture struct {
	submitter *mocks.MockSubmitter
	positions *mocks.MockPositionRepository
	contacts  *mocks.MockContactRepository
	sessions  service.SessionService
}

func newSessionFixture(t *testing.T, countdown, poll time.Duration) *sessionFixture {
	ctrl := gomock.NewController(t)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	f := &sessionFixture{
		submitter: mocks.NewMockSubmitter(ctrl),
		positions: mocks.NewMockPositionRepository(ctrl),
		contacts:  mocks.NewMockContactRepository(ctrl),
	}
	f.sessions = service.NewSessionManager(f.submitter, f.positions, f.contacts, countdown, poll, logger)
	return f
}

func (f *sessionFixture) expectReachableContacts(times int) {
	f.contacts.EXPECT().
		ListByUser(gomock.Any(), gomock.Any()).
		Return([]*models.EmergencyContact{reachableContact()}, nil).
		Times(times)
}

func TestSessionOpen_Status(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)
	f.expectReachableContacts(1)

	status, err := f.sessions.Open(context.Background(), "user-1", testFix(), "shake")

	require.NoError(t, err)
	assert.True(t, status.Open)
	assert.False(t, status.Loading)
	assert.Equal(t, "shake", status.TriggerReason)
	assert.Greater(t, status.RemainingSeconds, 14.0)
	assert.LessOrEqual(t, status.RemainingSeconds, 15.0)

	got := f.sessions.Status(context.Background(), "user-1")
	assert.True(t, got.Open)

	// Отсутствие сессии у другого пользователя
	other := f.sessions.Status(context.Background(), "user-2")
	assert.False(t, other.Open)
}

func TestSessionOpen_AlreadyOpen(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)
	f.expectReachableContacts(2)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	require.NoError(t, err)

	_, err = f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	assert.ErrorIs(t, err, service.ErrSessionOpen)
}

// Без позиции (ни в запросе, ни в кеше) сессия не открывается
func TestSessionOpen_NoPositionFix(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)

	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil).Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", nil, "manual")
	assert.ErrorIs(t, err, service.ErrNoPositionFix)
}

// Позиция берется из кеша, если запрос ее не принес
func TestSessionOpen_FixFromCache(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)

	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(testFix(), nil).Times(1)
	f.expectReachableContacts(1)

	status, err := f.sessions.Open(context.Background(), "user-1", nil, "drop")
	require.NoError(t, err)
	assert.True(t, status.Open)
}

func TestSessionOpen_NoReachableContacts(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)

	f.contacts.EXPECT().
		ListByUser(gomock.Any(), "user-1").
		Return([]*models.EmergencyContact{{Name: "Nobody"}}, nil). // Ни телефона, ни email
		Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	assert.ErrorIs(t, err, service.ErrNoReachableContacts)
}

// Истечение отсчета запускает пайплайн ровно один раз
func TestSessionCountdown_FiresOnce(t *testing.T) {
	f := newSessionFixture(t, 40*time.Millisecond, 5*time.Millisecond)
	f.expectReachableContacts(1)

	fired := make(chan struct{})
	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil).AnyTimes()
	f.submitter.EXPECT().
		Submit(gomock.Any(), "user-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, *models.PositionFix, *models.PositionFix) (*service.Outcome, error) {
			close(fired)
			return &service.Outcome{Status: service.OutcomeSuccess}, nil
		}).Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "shake")
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not fire")
	}

	// Даем циклу опроса завершиться и проверяем, что сессия закрыта
	time.Sleep(50 * time.Millisecond)
	status := f.sessions.Status(context.Background(), "user-1")
	assert.False(t, status.Open)
}

func TestSessionConfirm_FiresPipeline(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)
	f.expectReachableContacts(1)

	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil).AnyTimes()
	f.submitter.EXPECT().
		Submit(gomock.Any(), "user-1", gomock.Any(), gomock.Any()).
		Return(&service.Outcome{Status: service.OutcomeSuccess, Message: "alert saved, contacts notified"}, nil).
		Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	require.NoError(t, err)

	outcome, err := f.sessions.Confirm(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeSuccess, outcome.Status)

	status := f.sessions.Status(context.Background(), "user-1")
	assert.False(t, status.Open)
}

func TestSessionConfirm_NoSession(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)

	_, err := f.sessions.Confirm(context.Background(), "user-1")
	assert.ErrorIs(t, err, service.ErrNoSession)
}

// Гонка таймера и ручного подтверждения: пайплайн срабатывает ровно один раз
func TestSessionFire_ExactlyOnceUnderRace(t *testing.T) {
	f := newSessionFixture(t, 30*time.Millisecond, 2*time.Millisecond)
	f.expectReachableContacts(1)

	var submits sync.WaitGroup
	submits.Add(1)
	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil).AnyTimes()
	f.submitter.EXPECT().
		Submit(gomock.Any(), "user-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, *models.PositionFix, *models.PositionFix) (*service.Outcome, error) {
			submits.Done() // Вторая попытка уронит панику WaitGroup
			time.Sleep(10 * time.Millisecond)
			return &service.Outcome{Status: service.OutcomeSuccess}, nil
		}).Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "shake")
	require.NoError(t, err)

	// Подтверждаем параллельно в окно истечения отсчета
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(25 * time.Millisecond)
		for i := 0; i < 20; i++ {
			if _, err := f.sessions.Confirm(context.Background(), "user-1"); err == service.ErrNoSession {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	submits.Wait()
	<-done

	time.Sleep(50 * time.Millisecond)
	status := f.sessions.Status(context.Background(), "user-1")
	assert.False(t, status.Open)
}

func TestSessionCancel_BeforeFire(t *testing.T) {
	f := newSessionFixture(t, 40*time.Millisecond, 5*time.Millisecond)
	f.expectReachableContacts(1)

	f.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	require.NoError(t, err)

	require.NoError(t, f.sessions.Cancel(context.Background(), "user-1"))

	// Ждем дольше исходного дедлайна: отсчет не должен сработать
	time.Sleep(100 * time.Millisecond)
	status := f.sessions.Status(context.Background(), "user-1")
	assert.False(t, status.Open)
}

func TestSessionCancel_NoSession(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)

	err := f.sessions.Cancel(context.Background(), "user-1")
	assert.ErrorIs(t, err, service.ErrNoSession)
}

// Отмена после старта пайплайна - no-op: сабмит не прерывается
func TestSessionCancel_AfterFireIsNoop(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)
	f.expectReachableContacts(1)

	started := make(chan struct{})
	release := make(chan struct{})
	f.positions.EXPECT().Get(gomock.Any(), "user-1").Return(nil, nil).AnyTimes()
	f.submitter.EXPECT().
		Submit(gomock.Any(), "user-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, *models.PositionFix, *models.PositionFix) (*service.Outcome, error) {
			close(started)
			<-release
			return &service.Outcome{Status: service.OutcomeSuccess}, nil
		}).Times(1)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	require.NoError(t, err)

	confirmed := make(chan struct{})
	go func() {
		defer close(confirmed)
		_, _ = f.sessions.Confirm(context.Background(), "user-1")
	}()

	<-started
	assert.NoError(t, f.sessions.Cancel(context.Background(), "user-1"))
	close(release)
	<-confirmed
}

// Повторное открытие после отмены сбрасывает дедлайн и барьер
func TestSessionReopen_AfterCancel(t *testing.T) {
	f := newSessionFixture(t, 15*time.Second, 250*time.Millisecond)
	f.expectReachableContacts(2)

	_, err := f.sessions.Open(context.Background(), "user-1", testFix(), "manual")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Cancel(context.Background(), "user-1"))

	status, err := f.sessions.Open(context.Background(), "user-1", testFix(), "drop")
	require.NoError(t, err)
	assert.True(t, status.Open)
	assert.Equal(t, "drop", status.TriggerReason)
	assert.Greater(t, status.RemainingSeconds, 14.0)
}
