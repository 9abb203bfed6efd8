package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/sirupsen/logrus"
)

// SessionStatus - снимок состояния сессии подтверждения для клиента
type SessionStatus struct {
	Open             bool      `json:"open"`
	RemainingSeconds float64   `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline,omitempty"`
	Loading          bool      `json:"loading"`
	TriggerReason    string    `json:"trigger_reason,omitempty"`
}

// SessionService определяет контракт машины состояний подтверждения
type SessionService interface {
	Open(ctx context.Context, userID string, fix *models.PositionFix, reason string) (*SessionStatus, error)
	Confirm(ctx context.Context, userID string) (*Outcome, error)
	Cancel(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) *SessionStatus
}

// session - одна открытая сессия подтверждения. Отсчет ведется от абсолютного
// дедлайна, а не декрементом счетчика: приостановленный контекст исполнения
// не растягивает обратный отсчет.
type session struct {
	userID   string
	fix      *models.PositionFix
	reason   string
	deadline time.Time
	hasFired bool
	loading  bool
	done     chan struct{} // закрывается при закрытии сессии, будит цикл опроса
}

type sessionManager struct {
	submitter Submitter
	positions PositionRepository
	contacts  ContactRepository
	countdown time.Duration
	poll      time.Duration
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionManager(
	submitter Submitter,
	positions PositionRepository,
	contacts ContactRepository,
	countdown time.Duration,
	poll time.Duration,
	logger *logrus.Logger,
) SessionService {
	return &sessionManager{
		submitter: submitter,
		positions: positions,
		contacts:  contacts,
		countdown: countdown,
		poll:      poll,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// Open открывает сессию подтверждения: Closed -> Open.
// Требуется актуальная позиция (из запроса или из кеша) и хотя бы один
// достижимый контакт; иначе действие блокируется без побочных эффектов.
func (m *sessionManager) Open(ctx context.Context, userID string, fix *models.PositionFix, reason string) (*SessionStatus, error) {
	log := m.logger.WithFields(logrus.Fields{
		"service": "session",
		"method":  "Open",
		"user_id": userID,
		"reason":  reason,
	})

	if fix == nil {
		cached, err := m.positions.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("session: could not resolve position fix: %w", err)
		}
		if cached == nil {
			log.Warn("No position fix available, refusing to open session")
			return nil, ErrNoPositionFix
		}
		fix = cached
	}

	if err := m.checkReachableContacts(ctx, userID); err != nil {
		log.Warn("No reachable emergency contacts, refusing to open session")
		return nil, err
	}

	m.mu.Lock()
	if _, exists := m.sessions[userID]; exists {
		m.mu.Unlock()
		return nil, ErrSessionOpen
	}
	// Открытие всегда сбрасывает дедлайн, барьер срабатывания и флаг загрузки
	sess := &session{
		userID:   userID,
		fix:      fix,
		reason:   reason,
		deadline: m.now().Add(m.countdown),
		done:     make(chan struct{}),
	}
	m.sessions[userID] = sess
	m.mu.Unlock()

	go m.watch(sess)

	log.WithField("deadline", sess.deadline).Info("Confirmation session opened")
	return m.snapshot(sess), nil
}

// watch - цикл опроса обратного отсчета: просыпаемся не позже чем через
// min(интервал опроса, остаток), остаток пересчитывается от дедлайна
func (m *sessionManager) watch(sess *session) {
	for {
		m.mu.Lock()
		if sess.hasFired || m.sessions[sess.userID] != sess {
			m.mu.Unlock()
			return
		}
		remaining := sess.deadline.Sub(m.now())
		m.mu.Unlock()

		if remaining <= 0 {
			m.fire(sess, "countdown")
			return
		}

		wait := m.poll
		if remaining < wait {
			wait = remaining
		}

		select {
		case <-sess.done:
			return
		case <-time.After(wait):
		}
	}
}

// Confirm - явное подтверждение пользователем: Open -> Confirmed
func (m *sessionManager) Confirm(ctx context.Context, userID string) (*Outcome, error) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if sess.loading {
		// Пайплайн уже работает, управление заблокировано
		m.mu.Unlock()
		return nil, ErrDuplicateSubmission
	}
	m.mu.Unlock()

	return m.fire(sess, "manual")
}

// fire запускает пайплайн сабмита не больше одного раза на сессию:
// барьер hasFired закрывает гонку таймера и ручного подтверждения
func (m *sessionManager) fire(sess *session, trigger string) (*Outcome, error) {
	m.mu.Lock()
	if sess.hasFired || m.sessions[sess.userID] != sess {
		m.mu.Unlock()
		return nil, ErrDuplicateSubmission
	}
	sess.hasFired = true
	sess.loading = true
	fix := sess.fix
	m.mu.Unlock()

	log := m.logger.WithFields(logrus.Fields{
		"service": "session",
		"method":  "fire",
		"user_id": sess.userID,
		"trigger": trigger,
	})
	log.Info("Confirmation fired, running submission pipeline")

	// Отвязанный контекст: обрыв клиентского запроса не должен
	// останавливать экстренный сабмит
	ctx := context.Background()

	var latest *models.PositionFix
	if cached, err := m.positions.Get(ctx, sess.userID); err == nil && cached != nil {
		latest = cached
	} else {
		latest = fix
	}

	outcome, err := m.submitter.Submit(ctx, sess.userID, latest, fix)
	if err != nil {
		log.WithError(err).Warn("Submission pipeline reported an error")
	}

	// Сессия закрывается независимо от исхода; ошибка не переоткрывает отсчет
	m.close(sess)
	log.Info("Confirmation session closed")
	return outcome, err
}

// Cancel - отмена пользователем: Open -> Cancelled.
// После срабатывания барьера подтверждения отмена - no-op.
func (m *sessionManager) Cancel(_ context.Context, userID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return ErrNoSession
	}
	if sess.hasFired {
		m.mu.Unlock()
		return nil
	}
	delete(m.sessions, userID)
	close(sess.done)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"service": "session",
		"method":  "Cancel",
		"user_id": userID,
	}).Info("Confirmation session cancelled")
	return nil
}

// Status возвращает снимок текущей сессии; закрытая сессия = Open=false
func (m *sessionManager) Status(_ context.Context, userID string) *SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return &SessionStatus{}
	}
	return m.snapshotLocked(sess)
}

func (m *sessionManager) snapshot(sess *session) *SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(sess)
}

func (m *sessionManager) snapshotLocked(sess *session) *SessionStatus {
	remaining := sess.deadline.Sub(m.now()).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return &SessionStatus{
		Open:             true,
		RemainingSeconds: remaining,
		Deadline:         sess.deadline,
		Loading:          sess.loading,
		TriggerReason:    sess.reason,
	}
}

func (m *sessionManager) close(sess *session) {
	m.mu.Lock()
	if m.sessions[sess.userID] == sess {
		delete(m.sessions, sess.userID)
	}
	select {
	case <-sess.done:
	default:
		close(sess.done)
	}
	m.mu.Unlock()
}

func (m *sessionManager) checkReachableContacts(ctx context.Context, userID string) error {
	contacts, err := m.contacts.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("session: could not load contacts: %w", err)
	}
	for _, c := range contacts {
		if c.Reachable() {
			return nil
		}
	}
	return ErrNoReachableContacts
}
