package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/services/llm"
	inmemdb "github.com/trezcool/maktab/storage/database/inmem"
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	catalogSvc := catalog.NewService(inmemdb.NewCatalogRepository(inmemdb.Open()))
	model := llm.NewDummy()
	return &commandLine{
		validate:   validate,
		catalogSvc: catalogSvc,
		chatSvc:    chat.NewService(chat.Deps{Catalog: catalogSvc, Model: model, Files: model}),
		out:        new(bytes.Buffer),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, cli *commandLine) {
	t.Helper()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	origRun, origConfirm := gooseRunFunc, confirmFunc
	t.Cleanup(func() { gooseRunFunc, confirmFunc = origRun, origConfirm })
	confirmed := true
	confirmFunc = func(string) bool { return confirmed }
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
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
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "topic_tags", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	confirmed = false
	for _, tt := range []cliTest{
		{name: "down: declined", args: []string{"migrate", "down"}, wantErr: errAborted},
		{name: "reset: declined", args: []string{"migrate", "reset"}, wantErr: errAborted},
		{name: "status: no confirmation needed", args: []string{"migrate", "status"}},
	} {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}
}

func Test_commandLine_catalog(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "addgrade: no args", args: []string{"addgrade"}, wantErr: errHelp},
		{name: "addgrade: unknown flag", args: []string{"addgrade", "-lol"}, wantErr: errHelp},
		{name: "addgrade", args: []string{"addgrade", "-id", "g5", "-name", " Синфи 5 "}},
		{name: "addsubject: no grade", args: []string{"addsubject", "-name", "Math"}, wantErr: errHelp},
		{name: "addsubject: unknown grade", args: []string{"addsubject", "-grade", "g9", "-name", "Math"}, wantErr: catalog.ErrParentNotFound},
		{name: "addsubject", args: []string{"addsubject", "-id", "math", "-grade", "g5", "-name", "Math"}},
		{name: "addsubject with pdf", args: []string{"addsubject", "-id", "bio", "-grade", "g5", "-name", "Biology", "-pdf", "files/bio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	grade, err := cli.catalogSvc.GetGrade(ctx, "g5")
	require.NoError(t, err)
	assert.Equal(t, "Синфи 5", grade.Name)

	math, err := cli.catalogSvc.GetSubject(ctx, "math")
	require.NoError(t, err)
	assert.False(t, math.HasPDF())

	bio, err := cli.catalogSvc.GetSubject(ctx, "bio")
	require.NoError(t, err)
	if assert.True(t, bio.HasPDF()) {
		assert.Equal(t, "files/bio", *bio.PDFURI)
	}
}

func Test_commandLine_uploadPDF(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	_, err := cli.catalogSvc.CreateGrade(ctx, catalog.NewGrade{ID: "g5", Name: "5"})
	require.NoError(t, err)
	_, err = cli.catalogSvc.CreateSubject(ctx, catalog.NewSubject{ID: "math", GradeID: "g5", Name: "Math"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "math.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	tests := []cliTest{
		{name: "no args", args: []string{"uploadpdf"}, wantErr: errHelp},
		{name: "no file", args: []string{"uploadpdf", "-subject", "math"}, wantErr: errHelp},
		{name: "unknown subject", args: []string{"uploadpdf", "-subject", "lol", "-file", path}, wantErr: catalog.ErrNotFound},
		{name: "missing file", args: []string{"uploadpdf", "-subject", "math", "-file", path + ".lol"}, wantErrStr: "opening textbook: open " + path + ".lol: no such file or directory"},
		{name: "upload", args: []string{"uploadpdf", "-subject", "math", "-file", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	math, err := cli.catalogSvc.GetSubject(ctx, "math")
	require.NoError(t, err)
	if assert.True(t, math.HasPDF()) {
		assert.Contains(t, *math.PDFURI, "dummy://files/")
		assert.Contains(t, cli.out.(*bytes.Buffer).String(), "textbook attached to math: "+*math.PDFURI)
	}
}
