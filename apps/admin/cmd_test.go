package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	db := inmemdb.Open()
	return &commandLine{
		usrRepo: inmemdb.NewUserRepository(db),
		cmpRepo: inmemdb.NewCampusRepository(db),
	}
}

func createUser(t *testing.T, repo user.Repository, name, uname, email, pwd string) user.User {
	t.Helper()
	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	extra   interface{}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addSuper(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"addsuper"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addsuper", "-username", "root"}, wantErr: errHelp},
		{name: "no password", args: []string{"addsuper", "-username", "root", "-email", "root@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"addsuper", "-username", "root", "-email", "root@test.cd"}, extra: extra{pwd: "s3cret"}},
		{name: "idempotent update", args: []string{"addsuper", "-username", "root", "-email", "root@test.cd"}, extra: extra{pwd: "n3w"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{Username: "root"})
			if err != nil {
				t.Fatalf("GetUser() failed, %v", err)
			}
			if !usr.IsSuper() {
				t.Errorf("expected super roles, got %v", usr.Roles)
			}
			if !usr.Active() {
				t.Error("expected user to be active")
			}
		})
	}

	// only one account should exist after both runs
	users, err := cli.usrRepo.QueryUsers(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("QueryUsers() failed, %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func Test_commandLine_createCampus(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"createcampus"}, wantErr: errHelp},
		{name: "missing email", args: []string{"createcampus", "-name", "Hilltop"}, wantErr: errHelp},
		{name: "create", args: []string{"createcampus", "-name", "Hilltop Academy", "-email", "info@hilltop.cd"}},
		{name: "explicit slug", args: []string{"createcampus", "-name", "Lakeside School", "-slug", "lakeside", "-email", "info@lakeside.cd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
		})
	}

	cmp, err := cli.cmpRepo.GetCampus(context.Background(), campus.GetFilter{Slug: "lakeside"})
	if err != nil {
		t.Fatalf("GetCampus() failed, %v", err)
	}
	if cmp.Status != campus.StatusTrial {
		t.Errorf("expected status %q, got %q", campus.StatusTrial, cmp.Status)
	}
	if cmp.FeatureEnabled(campus.FeaturePayments) {
		t.Error("payments should be disabled by default")
	}
}
