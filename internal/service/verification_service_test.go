package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/mail"
	"github.com/ciepi/portal-service/internal/repository"
	apperrors "github.com/ciepi/portal-service/pkg/util"
)

// memoryTokenStore implements the token repository contract in memory,
// including the conditional-consume semantics the pgx implementation gets
// from its guarded UPDATE.
type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*domain.VerificationToken
	seq    int
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: make(map[string]*domain.VerificationToken)}
}

func (s *memoryTokenStore) Issue(_ context.Context, token *domain.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.Token]; exists {
		return repository.ErrDuplicateToken
	}
	for _, existing := range s.tokens {
		if existing.SubjectID == token.SubjectID && existing.Purpose == token.Purpose && existing.Active(token.CreatedAt) {
			at := token.CreatedAt
			existing.SupersededAt = &at
		}
	}
	s.seq++
	token.ID = "tok-" + strconv.Itoa(s.seq)
	stored := *token
	s.tokens[token.Token] = &stored
	return nil
}

func (s *memoryTokenStore) InvalidateActive(_ context.Context, subjectID string, purpose domain.TokenPurpose, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, existing := range s.tokens {
		if existing.SubjectID == subjectID && existing.Purpose == purpose && existing.Active(now) {
			at := now
			existing.SupersededAt = &at
			count++
		}
	}
	return count, nil
}

func (s *memoryTokenStore) GetByToken(_ context.Context, tokenStr string) (*domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (s *memoryTokenStore) Consume(_ context.Context, tokenStr string, usedFromIP *string, now time.Time) (*domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenStr]
	if !ok || !token.Active(now) {
		return nil, pgx.ErrNoRows
	}
	at := now
	token.UsedAt = &at
	token.UsedFromIP = usedFromIP
	copied := *token
	return &copied, nil
}

func (s *memoryTokenStore) ListBySubject(_ context.Context, subjectID string, purpose domain.TokenPurpose) ([]domain.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationToken
	for _, token := range s.tokens {
		if token.SubjectID == subjectID && token.Purpose == purpose {
			out = append(out, *token)
		}
	}
	return out, nil
}

func (s *memoryTokenStore) activeCount(subjectID string, purpose domain.TokenPurpose, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, token := range s.tokens {
		if token.SubjectID == subjectID && token.Purpose == purpose && token.Active(now) {
			count++
		}
	}
	return count
}

type memoryRegistrantStore struct {
	mu          sync.Mutex
	registrants map[string]*domain.Registrant
}

func newMemoryRegistrantStore() *memoryRegistrantStore {
	return &memoryRegistrantStore{registrants: make(map[string]*domain.Registrant)}
}

func (s *memoryRegistrantStore) Create(_ context.Context, registrant *domain.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if registrant.ID == "" {
		registrant.ID = "reg-" + strconv.Itoa(len(s.registrants)+1)
	}
	stored := *registrant
	s.registrants[registrant.ID] = &stored
	return nil
}

func (s *memoryRegistrantStore) GetByID(_ context.Context, id string) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	registrant, ok := s.registrants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *registrant
	return &copied, nil
}

func (s *memoryRegistrantStore) GetByCedula(_ context.Context, cedula string) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, registrant := range s.registrants {
		if registrant.Cedula == cedula {
			copied := *registrant
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryRegistrantStore) GetByEmail(_ context.Context, email string) (*domain.Registrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, registrant := range s.registrants {
		if registrant.Email == email {
			copied := *registrant
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memoryRegistrantStore) MarkVerified(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	registrant, ok := s.registrants[id]
	if !ok {
		return pgx.ErrNoRows
	}
	registrant.Status = domain.RegistrantStatusVerified
	verifiedAt := at
	registrant.VerifiedAt = &verifiedAt
	return nil
}

func (s *memoryRegistrantStore) UpdateEmail(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	registrant, ok := s.registrants[id]
	if !ok {
		return pgx.ErrNoRows
	}
	registrant.Email = email
	return nil
}

type memoryEnrollmentStore struct {
	mu          sync.Mutex
	enrollments map[string]*domain.Enrollment
}

func newMemoryEnrollmentStore() *memoryEnrollmentStore {
	return &memoryEnrollmentStore{enrollments: make(map[string]*domain.Enrollment)}
}

func (s *memoryEnrollmentStore) Create(_ context.Context, enrollment *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollment.RegistrantID + "|" + enrollment.CapacitacionID
	if _, exists := s.enrollments[key]; exists {
		// Mirrors ON CONFLICT DO NOTHING returning no rows.
		return pgx.ErrNoRows
	}
	enrollment.ID = "enr-" + strconv.Itoa(len(s.enrollments)+1)
	enrollment.CreatedAt = time.Now()
	stored := *enrollment
	s.enrollments[key] = &stored
	return nil
}

func (s *memoryEnrollmentStore) GetByRegistrantAndCourse(_ context.Context, registrantID, capacitacionID string) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[registrantID+"|"+capacitacionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *enrollment
	return &copied, nil
}

func (s *memoryEnrollmentStore) ListByCapacitacion(_ context.Context, capacitacionID string) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Enrollment
	for _, enrollment := range s.enrollments {
		if enrollment.CapacitacionID == capacitacionID {
			out = append(out, *enrollment)
		}
	}
	return out, nil
}

func (s *memoryEnrollmentStore) CountByCapacitacion(_ context.Context, capacitacionID string) (int, error) {
	list, _ := s.ListByCapacitacion(context.Background(), capacitacionID)
	return len(list), nil
}

type memoryCapacitacionStore struct {
	mu      sync.Mutex
	courses map[string]*domain.Capacitacion
}

func newMemoryCapacitacionStore() *memoryCapacitacionStore {
	return &memoryCapacitacionStore{courses: make(map[string]*domain.Capacitacion)}
}

func (s *memoryCapacitacionStore) Create(_ context.Context, capacitacion *domain.Capacitacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if capacitacion.ID == "" {
		capacitacion.ID = "cap-" + strconv.Itoa(len(s.courses)+1)
	}
	stored := *capacitacion
	s.courses[capacitacion.ID] = &stored
	return nil
}

func (s *memoryCapacitacionStore) Update(_ context.Context, capacitacion *domain.Capacitacion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[capacitacion.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *capacitacion
	s.courses[capacitacion.ID] = &stored
	return nil
}

func (s *memoryCapacitacionStore) GetByID(_ context.Context, id string) (*domain.Capacitacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	capacitacion, ok := s.courses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *capacitacion
	return &copied, nil
}

func (s *memoryCapacitacionStore) List(_ context.Context, filter repository.CapacitacionFilter) ([]domain.Capacitacion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Capacitacion
	for _, capacitacion := range s.courses {
		if filter.Status != nil && capacitacion.Status != *filter.Status {
			continue
		}
		out = append(out, *capacitacion)
	}
	return out, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  int
	fail  bool
	lastTo string
}

func (n *recordingNotifier) SendEmailVerification(_ context.Context, v mail.Verification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sent++
	n.lastTo = v.Address
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type verificationFixture struct {
	service     *VerificationService
	tokens      *memoryTokenStore
	registrants *memoryRegistrantStore
	enrollments *memoryEnrollmentStore
	courses     *memoryCapacitacionStore
	notifier    *recordingNotifier
	clock       *fakeClock
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	fixture := &verificationFixture{
		tokens:      newMemoryTokenStore(),
		registrants: newMemoryRegistrantStore(),
		enrollments: newMemoryEnrollmentStore(),
		courses:     newMemoryCapacitacionStore(),
		notifier:    &recordingNotifier{},
		clock:       clock,
	}
	fixture.service = NewVerificationService(VerificationDependencies{
		TokenRepo:        fixture.tokens,
		RegistrantRepo:   fixture.registrants,
		EnrollmentRepo:   fixture.enrollments,
		CapacitacionRepo: fixture.courses,
		Notifier:         fixture.notifier,
		Logger:           zap.NewNop(),
		DefaultTTL:       15 * time.Minute,
		BaseURL:          "https://portal.ciepi.example",
		Now:              clock.Now,
	})
	return fixture
}

func (f *verificationFixture) seedRegistrant(t *testing.T, id string) *domain.Registrant {
	t.Helper()
	registrant := &domain.Registrant{
		ID:        id,
		Cedula:    "8-888-" + id,
		FirstName: "Maria",
		LastName:  "Gonzalez",
		Email:     id + "@example.com",
		Status:    domain.RegistrantStatusPending,
	}
	if err := f.registrants.Create(context.Background(), registrant); err != nil {
		t.Fatalf("seed registrant: %v", err)
	}
	return registrant
}

func (f *verificationFixture) seedCourse(t *testing.T, id string) *domain.Capacitacion {
	t.Helper()
	course := &domain.Capacitacion{
		ID:       id,
		Title:    "Curso " + id,
		StartsAt: f.clock.Now().Add(24 * time.Hour),
		EndsAt:   f.clock.Now().Add(48 * time.Hour),
		Status:   domain.CapacitacionStatusOpen,
		Capacity: 30,
	}
	if err := f.courses.Create(context.Background(), course); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return course
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	return domainErr.Code
}

func TestIssueGeneratesUniqueActiveToken(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	result, err := fixture.service.Issue(context.Background(), IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeRegistration,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if result.Token.Token == "" || len(result.Token.Token) != 64 {
		t.Fatalf("expected 64-char hex token, got %q", result.Token.Token)
	}
	if result.Token.ContactAddress != registrant.Email {
		t.Fatalf("contact address %q, want %q", result.Token.ContactAddress, registrant.Email)
	}
	if got, want := result.Token.ExpiresAt, fixture.clock.Now().Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("expires_at %v, want %v", got, want)
	}
	if !result.EmailSent || fixture.notifier.sent != 1 {
		t.Fatalf("expected one email sent, got sent=%v count=%d", result.EmailSent, fixture.notifier.sent)
	}
}

func TestIssueUnknownSubjectOrPurpose(t *testing.T) {
	fixture := newVerificationFixture(t)

	_, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: "missing", Purpose: domain.PurposeRegistration})
	if code := domainErrCode(t, err); code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s", code)
	}

	registrant := fixture.seedRegistrant(t, "r1")
	_, err = fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: "bogus"})
	if code := domainErrCode(t, err); code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %s", code)
	}
}

func TestAtMostOneActivePerSubjectPurpose(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	const issues = 5
	for i := 0; i < issues; i++ {
		if _, err := fixture.service.Issue(context.Background(), IssueInput{
			SubjectID: registrant.ID,
			Purpose:   domain.PurposeRegistration,
		}); err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
	}

	if active := fixture.tokens.activeCount(registrant.ID, domain.PurposeRegistration, fixture.clock.Now()); active != 1 {
		t.Fatalf("expected exactly one active token, got %d", active)
	}
}

func TestConcurrentIssueLeavesOneActive(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r9")

	// Issuance for a pair is serialized at the store (the pgx
	// implementation holds a per-pair advisory lock for the
	// supersede-then-insert transaction). Racing issuances must all
	// succeed and leave exactly one active token.
	const issuers = 6
	var wg sync.WaitGroup
	errs := make([]error, issuers)
	wg.Add(issuers)
	for i := 0; i < issuers; i++ {
		idx := i
		go func() {
			defer wg.Done()
			_, errs[idx] = fixture.service.Issue(context.Background(), IssueInput{
				SubjectID: registrant.ID,
				Purpose:   domain.PurposeRegistration,
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
	}
	if active := fixture.tokens.activeCount(registrant.ID, domain.PurposeRegistration, fixture.clock.Now()); active != 1 {
		t.Fatalf("expected exactly one active token after concurrent issues, got %d", active)
	}
}

func TestReissueInvalidatesPredecessor(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r7")

	first, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	validity, err := fixture.service.Validate(context.Background(), first.Token.Token)
	if err != nil {
		t.Fatalf("validate first: %v", err)
	}
	if validity.Valid || validity.Reason != domain.ReasonSuperseded {
		t.Fatalf("expected superseded first token, got %+v", validity)
	}

	validity, err = fixture.service.Validate(context.Background(), second.Token.Token)
	if err != nil {
		t.Fatalf("validate second: %v", err)
	}
	if !validity.Valid {
		t.Fatalf("expected second token valid, got %+v", validity)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 5; i++ {
		validity, err := fixture.service.Validate(context.Background(), result.Token.Token)
		if err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
		if !validity.Valid {
			t.Fatalf("validate %d: expected valid, got %+v", i, validity)
		}
	}

	stored, err := fixture.tokens.GetByToken(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if stored.UsedAt != nil || stored.SupersededAt != nil {
		t.Fatalf("validate mutated token state: %+v", stored)
	}
}

func TestValidateReasons(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	validity, err := fixture.service.Validate(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("validate missing: %v", err)
	}
	if validity.Valid || validity.Reason != domain.ReasonNotFound {
		t.Fatalf("expected not_found, got %+v", validity)
	}

	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fixture.clock.Advance(15*time.Minute + time.Second)
	validity, err = fixture.service.Validate(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("validate expired: %v", err)
	}
	if validity.Valid || validity.Reason != domain.ReasonExpired {
		t.Fatalf("expected expired, got %+v", validity)
	}
}

func TestExpiryBoundary(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// One second before expiry the token is still consumable.
	fixture.clock.Advance(15*time.Minute - time.Second)
	validity, err := fixture.service.Validate(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !validity.Valid {
		t.Fatalf("expected valid just before expiry, got %+v", validity)
	}

	fixture.clock.Advance(2 * time.Second)
	validity, err = fixture.service.Validate(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validity.Valid || validity.Reason != domain.ReasonExpired {
		t.Fatalf("expected expired just after expiry, got %+v", validity)
	}
}

func TestConsumeRegistrationCreatesEnrollmentOnce(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r42")
	course := fixture.seedCourse(t, "cap-5")

	result, err := fixture.service.Issue(context.Background(), IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeRegistration,
		Metadata:  domain.TokenMetadata{CapacitacionID: &course.ID},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ip := "203.0.113.9"
	consumed, err := fixture.service.Consume(context.Background(), result.Token.Token, &ip)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.Enrollment == nil || consumed.Enrollment.CapacitacionID != course.ID {
		t.Fatalf("expected enrollment for %s, got %+v", course.ID, consumed.Enrollment)
	}
	if consumed.Registrant.Status != domain.RegistrantStatusVerified {
		t.Fatalf("expected verified registrant, got %s", consumed.Registrant.Status)
	}
	if consumed.Token.UsedFromIP == nil || *consumed.Token.UsedFromIP != ip {
		t.Fatalf("expected used_from_ip %s, got %v", ip, consumed.Token.UsedFromIP)
	}

	_, err = fixture.service.Consume(context.Background(), result.Token.Token, &ip)
	if code := domainErrCode(t, err); code != apperrors.CodeTokenAlreadyUsed {
		t.Fatalf("expected %s on second consume, got %s", apperrors.CodeTokenAlreadyUsed, code)
	}

	if count, _ := fixture.enrollments.CountByCapacitacion(context.Background(), course.ID); count != 1 {
		t.Fatalf("expected exactly one enrollment, got %d", count)
	}
}

func TestConcurrentConsumeExactlyOneWinner(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r42")
	course := fixture.seedCourse(t, "cap-5")

	result, err := fixture.service.Issue(context.Background(), IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeRegistration,
		Metadata:  domain.TokenMetadata{CapacitacionID: &course.ID},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		idx := i
		go func() {
			defer wg.Done()
			_, errs[idx] = fixture.service.Consume(context.Background(), result.Token.Token, nil)
		}()
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case domainErrCode(t, err) == apperrors.CodeTokenAlreadyUsed:
			losers++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if winners != 1 || losers != attempts-1 {
		t.Fatalf("expected 1 winner and %d already-used, got winners=%d losers=%d", attempts-1, winners, losers)
	}
	if count, _ := fixture.enrollments.CountByCapacitacion(context.Background(), course.ID); count != 1 {
		t.Fatalf("side effect ran %d times, want once", count)
	}
}

func TestConsumeExpiredAndMissing(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	_, err := fixture.service.Consume(context.Background(), "nope", nil)
	if code := domainErrCode(t, err); code != apperrors.CodeTokenNotFound {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenNotFound, code)
	}

	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	fixture.clock.Advance(16 * time.Minute)
	_, err = fixture.service.Consume(context.Background(), result.Token.Token, nil)
	if code := domainErrCode(t, err); code != apperrors.CodeTokenExpired {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenExpired, code)
	}
}

func TestConsumeSupersededToken(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	first, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if _, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration}); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	_, err = fixture.service.Consume(context.Background(), first.Token.Token, nil)
	if code := domainErrCode(t, err); code != apperrors.CodeTokenSuperseded {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenSuperseded, code)
	}
}

func TestConsumeEmailChangeUpdatesAddress(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	newAddress := "nuevo@example.com"

	result, err := fixture.service.Issue(context.Background(), IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeEmailChange,
		Metadata:  domain.TokenMetadata{NewAddress: &newAddress},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	consumed, err := fixture.service.Consume(context.Background(), result.Token.Token, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed.NewEmail == nil || *consumed.NewEmail != newAddress {
		t.Fatalf("expected new email %s, got %v", newAddress, consumed.NewEmail)
	}
	if consumed.Registrant.Email != newAddress {
		t.Fatalf("registrant email not updated: %s", consumed.Registrant.Email)
	}
}

func TestStatusStates(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	status, err := fixture.service.Status(context.Background(), "missing")
	if err != nil {
		t.Fatalf("status missing: %v", err)
	}
	if status.Exists {
		t.Fatalf("expected missing token, got %+v", status)
	}

	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	status, err = fixture.service.Status(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("status pending: %v", err)
	}
	if !status.Exists || status.Used || status.Expired || status.State != StatePendiente {
		t.Fatalf("expected pendiente, got %+v", status)
	}

	fixture.clock.Advance(20 * time.Minute)
	status, err = fixture.service.Status(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("status expired: %v", err)
	}
	if !status.Exists || status.Used || !status.Expired || status.State != StateExpirado {
		t.Fatalf("expected {exists:true used:false expired:true}, got %+v", status)
	}
}

func TestStatusAfterConsumption(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := fixture.service.Consume(context.Background(), result.Token.Token, nil); err != nil {
		t.Fatalf("consume: %v", err)
	}

	status, err := fixture.service.Status(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Used || status.State != StateVerificado {
		t.Fatalf("expected verificado, got %+v", status)
	}

	// Consumed state outlives expiry.
	fixture.clock.Advance(time.Hour)
	status, err = fixture.service.Status(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("status after expiry: %v", err)
	}
	if !status.Used || status.State != StateVerificado {
		t.Fatalf("expected verificado after TTL, got %+v", status)
	}
}

func TestResendCopiesSubjectPurposeMetadata(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	course := fixture.seedCourse(t, "cap-9")

	first, err := fixture.service.Issue(context.Background(), IssueInput{
		SubjectID: registrant.ID,
		Purpose:   domain.PurposeRegistration,
		Metadata:  domain.TokenMetadata{CapacitacionID: &course.ID},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	second, err := fixture.service.Resend(context.Background(), first.Token.Token, nil)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if second.Token.SubjectID != registrant.ID || second.Token.Purpose != domain.PurposeRegistration {
		t.Fatalf("resend copied wrong subject/purpose: %+v", second.Token)
	}
	if second.Token.Metadata.CapacitacionID == nil || *second.Token.Metadata.CapacitacionID != course.ID {
		t.Fatalf("resend dropped metadata: %+v", second.Token.Metadata)
	}

	validity, err := fixture.service.Validate(context.Background(), first.Token.Token)
	if err != nil {
		t.Fatalf("validate first: %v", err)
	}
	if validity.Valid {
		t.Fatalf("expected prior token superseded after resend")
	}
}

func TestResendConsumedTokenRejected(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRecovery})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := fixture.service.Consume(context.Background(), result.Token.Token, nil); err != nil {
		t.Fatalf("consume: %v", err)
	}

	_, err = fixture.service.Resend(context.Background(), result.Token.Token, nil)
	if code := domainErrCode(t, err); code != apperrors.CodeTokenAlreadyUsed {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenAlreadyUsed, code)
	}
}

func TestIssueSurvivesEmailFailure(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")
	fixture.notifier.fail = true

	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if result.EmailSent {
		t.Fatalf("expected email_sent=false when dispatch fails")
	}

	validity, err := fixture.service.Validate(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !validity.Valid {
		t.Fatalf("token must remain valid when email dispatch fails, got %+v", validity)
	}
}

func TestInvalidateActiveIsIdempotent(t *testing.T) {
	fixture := newVerificationFixture(t)
	registrant := fixture.seedRegistrant(t, "r1")

	if err := fixture.service.InvalidateActive(context.Background(), registrant.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("invalidate with none active: %v", err)
	}

	result, err := fixture.service.Issue(context.Background(), IssueInput{SubjectID: registrant.ID, Purpose: domain.PurposeRegistration})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := fixture.service.InvalidateActive(context.Background(), registrant.ID, domain.PurposeRegistration); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	validity, err := fixture.service.Validate(context.Background(), result.Token.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validity.Valid || validity.Reason != domain.ReasonSuperseded {
		t.Fatalf("expected superseded, got %+v", validity)
	}
}

func TestVerificationURLEmbedsTokenAsPathSegment(t *testing.T) {
	fixture := newVerificationFixture(t)
	url := fixture.service.VerificationURL("abc123")
	if url != "https://portal.ciepi.example/verificacion/abc123" {
		t.Fatalf("unexpected verification url %q", url)
	}
}
