package taskboard

import (
	"context"

	"github.com/templui/taskboard/internal/backend"
)

// AuthController runs sign-up, sign-in and sign-out and turns their outcome
// into the status message.
type AuthController struct {
	b *Board
}

func (a *AuthController) signUp(email, password string, finish func(error)) {
	b := a.b
	if b.state.Busy {
		finish(ErrBusy)
		return
	}
	b.state.Message = ""
	b.state.Busy = true
	b.changed()

	call(b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.client.Auth().SignUp(ctx, email, password)
	}, func(_ struct{}, err error) {
		b.state.Busy = false
		if err != nil {
			b.state.Message = "Sign up error: " + err.Error()
		} else {
			b.state.Message = "Sign up success! Check your email to confirm."
		}
		b.changed()
		finish(err)
	})
}

// signIn leaves the identity alone; it arrives through the session listener,
// which the backend notifies before the sign-in call returns.
func (a *AuthController) signIn(email, password string, finish func(error)) {
	b := a.b
	if b.state.Busy {
		finish(ErrBusy)
		return
	}
	b.state.Message = ""
	b.state.Busy = true
	b.changed()

	call(b, func(ctx context.Context) (*backend.Session, error) {
		return b.client.Auth().SignInWithPassword(ctx, email, password)
	}, func(_ *backend.Session, err error) {
		b.state.Busy = false
		if err != nil {
			b.state.Message = "Sign in error: " + err.Error()
		} else {
			b.state.Message = "Signed in successfully!"
		}
		b.changed()
		finish(err)
	})
}

func (a *AuthController) signOut(finish func(error)) {
	b := a.b
	call(b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.client.Auth().SignOut(ctx)
	}, func(_ struct{}, err error) {
		b.sessions.set(nil)
		b.state.Message = "Signed out"
		b.changed()
		finish(err)
	})
}

func (a *AuthController) setMode(mode Mode) {
	b := a.b
	b.state.Mode = mode
	b.state.Message = ""
	b.changed()
}

// SignUp registers an account. It never changes the identity.
func (b *Board) SignUp(ctx context.Context, email, password string) error {
	return b.do(ctx, func(finish func(error)) {
		b.auth.signUp(email, password, finish)
	})
}

// SignIn returns once the outcome message is set. On success the identity
// has already been applied.
func (b *Board) SignIn(ctx context.Context, email, password string) error {
	return b.do(ctx, func(finish func(error)) {
		b.auth.signIn(email, password, finish)
	})
}

// SignOut is safe to call while signed out.
func (b *Board) SignOut(ctx context.Context) error {
	return b.do(ctx, func(finish func(error)) {
		b.auth.signOut(finish)
	})
}

// SetMode switches between the sign-in and sign-up forms.
func (b *Board) SetMode(ctx context.Context, mode Mode) error {
	return b.do(ctx, func(finish func(error)) {
		b.auth.setMode(mode)
		finish(nil)
	})
}
