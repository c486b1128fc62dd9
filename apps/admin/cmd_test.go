package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/sample"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
	inmemdb "github.com/trezcool/studentdir/storage/database/inmem"
	"github.com/trezcool/studentdir/tests"
)

var (
	usrRepo  user.Repository
	studRepo student.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig()
	validate, translator := testutil.NewValidator()
	logger := testutil.NewLogger()

	// set up DB & repos
	feed := student.NewFeed()
	db := inmemdb.Open(feed)
	usrRepo = inmemdb.NewUserRepository(db)
	studRepo = inmemdb.NewStudentRepository(db)

	fallback, err := sample.Embedded()
	require.NoError(t, err)

	// start CLI
	studSvc := student.NewService(studRepo, validate, translator, logger, nil)
	out := new(bytes.Buffer)
	return &commandLine{
		conf:     conf,
		usrSvc:   user.NewService(usrRepo, conf, validate, translator),
		studSvc:  studSvc,
		dir:      directory.New(studSvc, fallback, feed, nil, conf.CacheSize),
		fallback: fallback,
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantFields []string // field errors of a core.ValidationError
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if pwd, ok := tt.extra.(string); ok {
				return []byte(pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			case tt.wantFields != nil:
				var vErr *core.ValidationError
				if assert.ErrorAs(t, err, &vErr) {
					fields := make([]string, 0, len(vErr.Fields))
					for _, f := range vErr.Fields {
						fields = append(fields, f.Field)
					}
					assert.Equal(t, tt.wantFields, fields)
				}
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)
	cli.conf.StorageEngine = core.EnginePostgres

	origRun := gooseRunFunc
	defer func() { gooseRunFunc = origRun }()
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
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
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance_notes", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	runCLITests(t, cli, tests, nil)

	t.Run("other engines", func(t *testing.T) {
		cli.conf.StorageEngine = core.EngineBadger
		assert.Equal(t, errNotPostgres, cli.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no name", args: []string{"adduser", "--email", "t@test.ph"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--email", "t@test.ph", "--name", "Teacher"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "--email", "t@test.ph", "--name", "Teacher"}, extra: "1234", wantFields: []string{"password"}},
		{name: "teacher", args: []string{"adduser", "--email", "T@test.ph", "--name", "Teacher"}, extra: "s3cret-pwd"},
		{name: "admin", args: []string{"adduser", "--email", testutil.AdminEmail, "--name", "Admin"}, extra: "s3cret-pwd"},
		{name: "update", args: []string{"adduser", "--email", "t@test.ph", "--name", "New Name"}, extra: "new-s3cret"},
	}
	runCLITests(t, cli, tests, nil)

	ctx := context.Background()
	usr, err := usrRepo.GetUserByEmail(ctx, "t@test.ph")
	require.NoError(t, err)
	assert.Equal(t, "New Name", usr.Name)
	assert.NoError(t, usr.CheckPassword("new-s3cret"))
	assert.Contains(t, out.String(), "user t@test.ph saved with role teacher")
	assert.Contains(t, out.String(), "user "+testutil.AdminEmail+" saved with role admin")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "user@test.ph", "mdr-s3cret", true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "--email", "lol@test.ph"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@test.ph"}, extra: "lol-s3cret", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--email", usr.Email}, extra: "lmao-s3cret"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
		require.NoError(t, err)
		assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "failed to update new password")
		assert.NoError(t, refreshed.CheckPassword(tt.extra.(string)))
	})
}

func Test_commandLine_data(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	// seed
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	count, err := studRepo.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(cli.fallback.Students()), count)
	assert.Contains(t, out.String(), fmt.Sprintf("Database seeded with %d students.", count))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Equal(t, "Database already contains data. Seeding skipped.\n", out.String())

	// import
	importFile := filepath.Join(dir, "import.json")
	require.NoError(t, os.WriteFile(importFile, []byte(`[
		{"name": "Pedro Penduko", "email": "pedro@test.ph", "department": "Business Administration"},
		{"name": "", "email": "nobody@test.ph"}
	]`), 0o600))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "import", importFile}))
	assert.Contains(t, out.String(), "1 students imported successfully.")
	assert.Contains(t, out.String(), "entry 1 nobody@test.ph: invalid student")

	out.Reset()
	assert.EqualError(t, cli.run([]string{"admin", "import", importFile}), "nothing imported")
	assert.Equal(t, errHelp, cli.run([]string{"admin", "import"}))

	// export
	exportFile := filepath.Join(dir, "export.json")
	require.NoError(t, cli.run([]string{"admin", "export", exportFile}))
	content, err := os.ReadFile(exportFile)
	require.NoError(t, err)

	var exported []student.Student
	require.NoError(t, json.Unmarshal(content, &exported))
	assert.Len(t, exported, count+1)
	assert.Equal(t, "pedro@test.ph", exported[len(exported)-1].Email)
}
