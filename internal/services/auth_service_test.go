package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/core"
)

func TestSignup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, sess, err := f.auth.Signup(ctx, signupData("Alice"))
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Equal(t, core.StartingBalance, u.Balance)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.Equal(t, 1, f.sessions.Len())

	stored, err := f.repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestSignupRejects(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "alice")

	tests := []struct {
		name    string
		mutate  func(*core.SignupData)
		wantErr error
		field   string
	}{
		{"username taken ignoring case", func(d *core.SignupData) { d.Username = "ALICE" }, core.ErrUsernameTaken, ""},
		{"short username", func(d *core.SignupData) { d.Username = "ab" }, nil, "username"},
		{"short password", func(d *core.SignupData) { d.Password = "12345" }, nil, "password"},
		{"bad pin", func(d *core.SignupData) { d.PIN = "12a4" }, nil, "pin"},
		{"bad email", func(d *core.SignupData) { d.Profile.Email = "nope" }, nil, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := signupData("bob")
			tt.mutate(&d)
			_, sess, err := f.auth.Signup(context.Background(), d)
			require.Error(t, err)
			assert.Nil(t, sess)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Equal(t, 1, f.repo.Len())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.signup(t, "alice")

	got, sess, err := f.auth.Login(ctx, "ALICE", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, sess)

	_, _, err = f.auth.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	_, _, err = f.auth.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	_, sess, err := f.auth.Signup(context.Background(), signupData("alice"))
	require.NoError(t, err)

	assert.True(t, f.auth.Logout(context.Background(), sess.Token))
	assert.False(t, f.auth.Logout(context.Background(), sess.Token))
	assert.Zero(t, f.sessions.Len())
}
