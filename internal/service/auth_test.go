package service

import (
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/db"
	"github.com/templui/taskboard/internal/repository"
)

const testPassword = "correct horse battery"

type recordingMailer struct {
	sent []sentConfirmation
	err  error
}

type sentConfirmation struct {
	email string
	token string
}

func (m *recordingMailer) SendConfirmationEmail(email, token string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentConfirmation{email: email, token: token})
	return nil
}

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1].token
}

func newTestAuthService(t *testing.T, expiry time.Duration) (*AuthService, *recordingMailer) {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "auth.db")+"?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	mailer := &recordingMailer{}
	svc := NewAuthService(
		repository.NewUserRepository(database),
		repository.NewTokenRepository(database),
		mailer,
		"test-secret",
		false,
		expiry,
		24*time.Hour,
	)
	return svc, mailer
}

func TestSignUpConfirmSignIn(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)

	user, err := svc.SignUp(" Ada@Example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ada@example.com", mailer.sent[0].email)

	_, err = svc.SignIn("ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)

	confirmed, err := svc.ConfirmEmail(mailer.lastToken(t))
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed())

	signedIn, err := svc.SignIn("ADA@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)
}

func TestSignInInvalidCredentials(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)

	_, err := svc.SignIn("nobody@example.com", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)
	_, err = svc.ConfirmEmail(mailer.lastToken(t))
	require.NoError(t, err)

	_, err = svc.SignIn("ada@example.com", "wrong horse battery")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)

	_, err := svc.SignUp("not-an-email", testPassword)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.SignUp("ada@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.ErrorContains(t, err, "at least 12")

	assert.Empty(t, mailer.sent)
}

func TestSignUpExistingUser(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)

	first, err := svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)

	// unconfirmed: the link is re-sent and the old one stops working
	again, err := svc.SignUp("ada@example.com", "another long secret")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	require.Len(t, mailer.sent, 2)

	_, err = svc.ConfirmEmail(mailer.sent[0].token)
	assert.ErrorIs(t, err, ErrInvalidConfirmLink)
	_, err = svc.ConfirmEmail(mailer.sent[1].token)
	require.NoError(t, err)

	_, err = svc.SignIn("ada@example.com", "another long secret")
	require.NoError(t, err)

	_, err = svc.SignUp("ada@example.com", testPassword)
	assert.ErrorIs(t, err, ErrUserAlreadyRegistered)
}

func TestSignUpMailFailure(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)
	mailer.err = errors.New("smtp down")

	_, err := svc.SignUp("ada@example.com", testPassword)
	assert.ErrorContains(t, err, "failed to send email")
}

func TestConfirmEmailTokenIsSingleUse(t *testing.T) {
	svc, mailer := newTestAuthService(t, time.Hour)

	_, err := svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)

	token := mailer.lastToken(t)
	_, err = svc.ConfirmEmail(token)
	require.NoError(t, err)

	_, err = svc.ConfirmEmail(token)
	assert.ErrorIs(t, err, ErrInvalidConfirmLink)
}

func TestJWTRoundTrip(t *testing.T) {
	svc, _ := newTestAuthService(t, time.Hour)

	user, err := svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateJWT(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)

	_, err = svc.VerifyJWT(token + "x")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestJWTExpired(t *testing.T) {
	svc, _ := newTestAuthService(t, -time.Minute)

	user, err := svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)

	token, _, err := svc.GenerateJWT(user)
	require.NoError(t, err)

	_, err = svc.VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRefreshIssuesNewToken(t *testing.T) {
	svc, _ := newTestAuthService(t, time.Hour)

	user, err := svc.SignUp("ada@example.com", testPassword)
	require.NoError(t, err)
	token, _, err := svc.GenerateJWT(user)
	require.NoError(t, err)

	refreshedUser, refreshed, _, err := svc.Refresh(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshedUser.ID)
	assert.NotEqual(t, token, refreshed)

	_, _, _, err = svc.Refresh("garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestJWTCookies(t *testing.T) {
	svc, _ := newTestAuthService(t, time.Hour)

	rec := httptest.NewRecorder()
	svc.SetJWTCookie(rec, "tok", time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	svc.ClearJWTCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
}

func TestConfirmEmailTemplate(t *testing.T) {
	subject, body := confirmEmailTemplate("http://localhost/auth/confirm/abc", "Task Manager", 24*time.Hour)
	assert.Equal(t, "Confirm your signup for Task Manager", subject)
	assert.Contains(t, body, "http://localhost/auth/confirm/abc")
	assert.Contains(t, body, "24 hours")
}

func TestEmailServiceDevModeLogsOnly(t *testing.T) {
	svc := NewEmailService("", "noreply@example.com", "http://localhost:8090", "Task Manager", true, time.Hour)
	assert.Equal(t, "http://localhost:8090/auth/confirm/abc", svc.ConfirmURL("abc"))
	assert.NoError(t, svc.SendConfirmationEmail("ada@example.com", "abc"))

	prod := NewEmailService("", "noreply@example.com", "http://localhost:8090", "Task Manager", false, time.Hour)
	assert.ErrorContains(t, prod.SendConfirmationEmail("ada@example.com", "abc"), "not configured")
}
