package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
	inmemdb "github.com/udemo/academy/storage/database/inmem"
	testutil "github.com/udemo/academy/tests"
)

func TestMain(m *testing.M) {
	core.Conf.TestMode = true
	m.Run()
}

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db := inmemdb.Open()
	cats := category.NewService(inmemdb.NewCategoryRepository(db))

	// start CLI
	return &commandLine{
		usrRepo: inmemdb.NewUserRepository(db),
		cats:    cats,
		courses: course.NewService(inmemdb.NewCourseRepository(db), cats, nil),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, cli.usrRepo, "Taken", "taken", "taken@test.cd", "", []string{user.RoleStudent}, true)

	mockPassword("")
	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "boss", "-email", "boss@test.cd"}))
	assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-username", "boss"}))

	mockPassword("s3cret-Pass")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "Boss", "-email", "BOSS@test.cd", "-admin"}))
	boss, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "boss", boss.Name)
	assert.Equal(t, "boss@test.cd", boss.Email)
	assert.True(t, boss.IsAdmin())
	assert.True(t, boss.IsActive)
	assert.True(t, boss.IsVerified)
	assert.NoError(t, boss.CheckPassword("s3cret-Pass"))

	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "minh", "-email", "minh@test.cd", "-name", "Trần Minh", "-teacher"}))
	minh, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "minh"})
	require.NoError(t, err)
	assert.Equal(t, "Trần Minh", minh.Name)
	assert.True(t, minh.IsTeacher())
	assert.False(t, minh.IsAdmin())

	// existing users are updated in place
	mockPassword("n3w-Pass")
	require.NoError(t, cli.run([]string{"admin", "adduser", "-username", "minh", "-email", "minh@test.cd", "-teacher"}))
	updated, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "minh"})
	require.NoError(t, err)
	assert.Equal(t, minh.ID, updated.ID)
	assert.Len(t, updated.Roles, len(minh.Roles))
	assert.NoError(t, updated.CheckPassword("n3w-Pass"))

	assert.Error(t, cli.run([]string{"admin", "adduser", "-username", "other", "-email", "taken@test.cd"}))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

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

func Test_commandLine_resetPasswordReactivates(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, cli.usrRepo, "Lan", "lan", "lan@test.cd", "old-pass", nil, false)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("n3w-Pass"), nil }
	require.NoError(t, cli.run([]string{"admin", "resetpassword", "-username", "  LAN@test.cd "}))

	updated, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.True(t, updated.IsVerified)
	assert.NoError(t, updated.CheckPassword("n3w-Pass"))
	assert.False(t, updated.UpdatedAt.Before(usr.UpdatedAt))
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "seed"}))

	tree, err := cli.cats.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, len(seedCatalog))
	assert.Equal(t, "Lập trình", tree[0].Name)
	assert.Len(t, tree[0].Children, 2)

	res, err := cli.courses.Search(ctx, course.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)

	teacher, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: seedTeacherUsername})
	require.NoError(t, err)
	assert.True(t, teacher.IsTeacher())

	d, err := cli.courses.Detail(ctx, res.Courses[0].ID, nil)
	require.NoError(t, err)
	assert.Len(t, d.Sections, 2)
	assert.Equal(t, 4, d.LectureCount)

	// seeding twice is a no-op
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	res, err = cli.courses.Search(ctx, course.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)
}
