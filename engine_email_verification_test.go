package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestEmailVerificationFlow(t *testing.T) {
	engine, _, notifier := newResetFixture(t)
	ctx := context.Background()

	account := registerTestUser(t, engine)
	if account.Verified {
		t.Fatal("account verified at registration")
	}

	// Registration with a notifier delivers the verification token.
	plaintext := tokenFromBody(t, notifier.last(t).Body)

	verified, err := engine.VerifyEmail(ctx, plaintext)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !verified.Verified {
		t.Error("account not marked verified")
	}

	// One-time use.
	if _, err := engine.VerifyEmail(ctx, plaintext); !errors.Is(err, ErrTokenInvalidOrExpired) {
		t.Errorf("token reuse: expected ErrTokenInvalidOrExpired, got %v", err)
	}
}

func TestVerifyEmailUnblocksLogin(t *testing.T) {
	store := newMockStore()
	notifier := &recordingNotifier{}

	cfg := testConfig()
	cfg.EmailVerification.Required = true
	engine, err := New().WithConfig(cfg).WithStore(store).WithNotifier(notifier).Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	ctx := context.Background()

	registerTestUser(t, engine)

	if _, err := engine.Login(ctx, testEmail, testPassword, SessionMetadata{}); !errors.Is(err, ErrAccountUnverified) {
		t.Fatalf("expected ErrAccountUnverified before verification, got %v", err)
	}

	plaintext := tokenFromBody(t, notifier.last(t).Body)
	if _, err := engine.VerifyEmail(ctx, plaintext); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	if _, err := engine.Login(ctx, testEmail, testPassword, SessionMetadata{}); err != nil {
		t.Fatalf("login after verification: %v", err)
	}
}

func TestRequestEmailVerification(t *testing.T) {
	engine, _, notifier := newResetFixture(t)
	ctx := context.Background()

	registerTestUser(t, engine)
	before := notifier.count()

	if err := engine.RequestEmailVerification(ctx, testEmail); err != nil {
		t.Fatalf("RequestEmailVerification: %v", err)
	}
	if notifier.count() != before+1 {
		t.Error("no verification email re-issued")
	}

	// Unknown email is silently ignored.
	if err := engine.RequestEmailVerification(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email: %v", err)
	}
	if notifier.count() != before+1 {
		t.Error("email sent for unknown account")
	}

	// Already-verified accounts get nothing either.
	plaintext := tokenFromBody(t, notifier.last(t).Body)
	if _, err := engine.VerifyEmail(ctx, plaintext); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if err := engine.RequestEmailVerification(ctx, testEmail); err != nil {
		t.Fatalf("verified account: %v", err)
	}
	if notifier.count() != before+1 {
		t.Error("email sent for verified account")
	}
}

func TestVerificationRejectsResetToken(t *testing.T) {
	engine, _, notifier := newResetFixture(t)
	ctx := context.Background()

	registerTestUser(t, engine)
	if err := engine.RequestPasswordReset(ctx, testEmail); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	resetPlaintext := tokenFromBody(t, notifier.last(t).Body)

	// Kind mismatch reads the same as an invalid token.
	if _, err := engine.VerifyEmail(ctx, resetPlaintext); !errors.Is(err, ErrTokenInvalidOrExpired) {
		t.Fatalf("expected ErrTokenInvalidOrExpired, got %v", err)
	}
}
