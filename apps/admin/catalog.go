package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

func (cli *commandLine) addGrade(id, name string) error {
	ng := catalog.NewGrade{ID: id, Name: name}
	if err := ng.Validate(cli.validate); err != nil {
		return err
	}
	grade, err := cli.catalogSvc.CreateGrade(context.Background(), ng)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "grade %q created: %s\n", grade.Name, grade.ID)
	return nil
}

func (cli *commandLine) addSubject(id, gradeID, name, pdfURI string) error {
	ns := catalog.NewSubject{ID: id, GradeID: gradeID, Name: name}
	if pdfURI != "" {
		ns.PDFURI = &pdfURI
	}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	subject, err := cli.catalogSvc.CreateSubject(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "subject %q created: %s\n", subject.Name, subject.ID)
	return nil
}

// uploadPDF sends a local textbook to the model's file store and attaches the returned URI.
func (cli *commandLine) uploadPDF(subjectID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening textbook")
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/pdf"
	}
	uri, err := cli.chatSvc.UploadTextbook(context.Background(), chat.Upload{
		SubjectID: subjectID,
		Name:      filepath.Base(path),
		MIMEType:  mimeType,
		Body:      f,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "textbook attached to %s: %s\n", subjectID, uri)
	return nil
}
