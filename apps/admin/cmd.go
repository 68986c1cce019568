package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sql.DB
	validate   *validator.Validate
	catalogSvc catalog.Service
	chatSvc    chat.Service
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  addgrade -name NAME [-id ID] - create a grade")
	fmt.Fprintln(cli.out, "  addsubject -grade GRADE_ID -name NAME [-id ID] [-pdf URI] - create a subject")
	fmt.Fprintln(cli.out, "  uploadpdf -subject SUBJECT_ID -file PATH - upload a textbook and attach it to a subject")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addGradeCmd := flag.NewFlagSet("addgrade", flag.ContinueOnError)
	addGradeID := addGradeCmd.String("id", "", "The grade id (generated when empty).")
	addGradeName := addGradeCmd.String("name", "", "The grade's display name.")

	addSubjectCmd := flag.NewFlagSet("addsubject", flag.ContinueOnError)
	addSubjectID := addSubjectCmd.String("id", "", "The subject id (generated when empty).")
	addSubjectGrade := addSubjectCmd.String("grade", "", "The id of the grade the subject belongs to.")
	addSubjectName := addSubjectCmd.String("name", "", "The subject's display name.")
	addSubjectPDF := addSubjectCmd.String("pdf", "", "An already uploaded textbook URI.")

	uploadCmd := flag.NewFlagSet("uploadpdf", flag.ContinueOnError)
	uploadSubject := uploadCmd.String("subject", "", "The subject the textbook belongs to.")
	uploadFile := uploadCmd.String("file", "", "Path to the textbook PDF.")

	for _, fs := range []*flag.FlagSet{addGradeCmd, addSubjectCmd, uploadCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addgrade":
		if err := addGradeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addGradeName == "" {
			addGradeCmd.Usage()
			return errHelp
		}
		return cli.addGrade(*addGradeID, *addGradeName)

	case "addsubject":
		if err := addSubjectCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addSubjectGrade == "" || *addSubjectName == "" {
			addSubjectCmd.Usage()
			return errHelp
		}
		return cli.addSubject(*addSubjectID, *addSubjectGrade, *addSubjectName, *addSubjectPDF)

	case "uploadpdf":
		if err := uploadCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *uploadSubject == "" || *uploadFile == "" {
			uploadCmd.Usage()
			return errHelp
		}
		return cli.uploadPDF(*uploadSubject, *uploadFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
