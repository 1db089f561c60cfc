package user

import (
	"testing"
	"time"

	"github.com/aulanet/campus/core"
	"github.com/aulanet/campus/core/authz"
)

func TestMakeVerifyToken(t *testing.T) {
	conf := &core.Config{SecretKey: []byte("secret")}
	conf.Server.PasswordResetTimeoutDelta = 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "7f9c34dc-6a35-4f64-9a3f-bb1dca3c1e01",
		Name:      "T",
		Email:     "t@test.test",
		Role:      authz.RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := conf.Server.PasswordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	NowFunc = time.Now // reset

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(conf, tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInvalidatedByPasswordChange(t *testing.T) {
	conf := &core.Config{SecretKey: []byte("secret")}
	conf.Server.PasswordResetTimeoutDelta = 3 * 24 * time.Hour

	usr := User{ID: "u1", Email: "u@test.test"}
	_ = usr.SetPassword("old")

	token, err := MakeToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	if err := verifyToken(conf, usr, token); err != nil {
		t.Fatalf("fresh token should verify: %v", err)
	}

	_ = usr.SetPassword("new")
	if err := verifyToken(conf, usr, token); err != errInvalidToken {
		t.Errorf("token should die with the old password; got %v", err)
	}
}
