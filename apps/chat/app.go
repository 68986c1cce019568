package main

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/maktab/client"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

type api interface {
	client.Backend
	client.Replier
	Actions(ctx context.Context, role chat.Role, lang chat.Language) ([]chat.ActionItem, error)
}

var _ api = (*client.Client)(nil)

var errQuit = errors.New("quit")

type app struct {
	api  api
	sess *client.Session
	con  console
	flow *client.Flow
	conv *client.Conversation
}

func newApp(a api, sess *client.Session, con console) *app {
	return &app{api: a, sess: sess, con: con, flow: client.NewFlow(a)}
}

const help = `commands: b (back), q (quit), lang (switch tj/ru), role (switch teacher/student), theme
`

func (a *app) run(ctx context.Context) error {
	if !a.sess.LoggedIn() {
		if err := a.login(); err != nil {
			return ignoreQuit(err)
		}
	}
	a.con.Printf(help)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var err error
		switch a.flow.Screen() {
		case client.ScreenGrades:
			err = a.grades(ctx)
		case client.ScreenSubjects:
			err = a.subjects(ctx)
		case client.ScreenTopics:
			err = a.topics(ctx)
		case client.ScreenChat:
			err = a.chat(ctx)
		}
		if err != nil {
			return ignoreQuit(err)
		}
	}
}

func ignoreQuit(err error) error {
	if err == errQuit || err == io.EOF {
		return nil
	}
	return err
}

func (a *app) login() error {
	a.con.Printf("Choose a role: 1) Teacher  2) Student\n")
	for {
		line, err := a.read()
		if err != nil {
			return err
		}
		switch line {
		case "1":
			a.sess.Login(chat.RoleTeacher)
			return nil
		case "2", "":
			a.sess.Login(chat.RoleStudent)
			return nil
		}
	}
}

// read returns the next trimmed line, handling the global commands itself.
func (a *app) read() (string, error) {
	for {
		line, err := a.con.ReadLine()
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "q", "quit", "exit":
			return "", errQuit
		case "lang":
			lang := chat.LangRussian
			if a.sess.Language() == chat.LangRussian {
				lang = chat.LangTajik
			}
			a.sess.SetLanguage(lang)
			a.conv = nil
			a.con.Printf("language: %s\n", lang)
		case "role":
			role := chat.RoleTeacher
			if a.sess.Role() == chat.RoleTeacher {
				role = chat.RoleStudent
			}
			a.sess.Login(role)
			a.conv = nil
			a.con.Printf("role: %s\n", role)
		case "theme":
			a.con.Printf("theme: %s\n", a.sess.ToggleTheme())
		default:
			return line, nil
		}
	}
}

// pick reads a 1-based choice among n items; ok is false when the line is not a valid choice.
func pick(line string, n int) (int, bool) {
	i, err := strconv.Atoi(line)
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func (a *app) grades(ctx context.Context) error {
	grades, err := a.flow.Grades(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.con.Printf("\n== %s ==\n", chat.T(a.sess.Language(), chat.MsgGrade))
	for i, g := range grades {
		a.con.Printf("%d) %s\n", i+1, g.Name)
	}

	line, err := a.read()
	if err != nil {
		return err
	}
	if i, ok := pick(line, len(grades)); ok {
		a.flow.SelectGrade(grades[i])
	}
	return nil
}

func (a *app) subjects(ctx context.Context) error {
	subjects, err := a.flow.Subjects(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}
	a.con.Printf("\n== %s ==\n", a.flow.Grade().Name)
	for i, s := range subjects {
		mark := ""
		if s.HasPDF() {
			mark = " [textbook]"
		}
		a.con.Printf("%d) %s%s\n", i+1, s.Name, mark)
	}

	line, err := a.read()
	if err != nil {
		return err
	}
	if line == "b" {
		a.flow.Back(ctx)
	} else if i, ok := pick(line, len(subjects)); ok {
		a.flow.SelectSubject(subjects[i])
	}
	return nil
}

func (a *app) topics(ctx context.Context) error {
	topics, err := a.flow.Topics(ctx, "")
	if err != nil {
		return a.fail(ctx, err)
	}
	if len(topics) == 0 {
		a.startChat(nil)
		return nil
	}

	shown := topics
	for {
		a.con.Printf("\n== %s ==\n0) whole subject\n", a.flow.Subject().Name)
		for i, t := range shown {
			a.con.Printf("%d) %s\n", i+1, t.Name)
		}
		a.con.Printf("(/text filters topics)\n")

		line, err := a.read()
		if err != nil {
			return err
		}
		switch {
		case line == "b":
			a.flow.Back(ctx)
			return nil
		case line == "0":
			a.startChat(nil)
			return nil
		case strings.HasPrefix(line, "/"):
			shown = client.FilterTopics(topics, line[1:])
		default:
			if i, ok := pick(line, len(shown)); ok {
				topic := shown[i]
				a.startChat(&topic)
				return nil
			}
		}
	}
}

func (a *app) startChat(topic *catalog.Topic) {
	a.flow.StartChat(topic)
	a.conv = nil
}

func (a *app) chat(ctx context.Context) error {
	if a.conv == nil {
		req := a.flow.ChatRequest(a.sess.Role(), a.sess.Language())
		a.conv = client.NewConversation(a.api, req)
		a.con.Printf("\n== %s ==\n", a.flow.Subject().Name)
	}

	actions, err := a.api.Actions(ctx, a.sess.Role(), a.sess.Language())
	if err != nil {
		return a.fail(ctx, err)
	}
	for i, act := range actions {
		a.con.Printf("%d) %s  ", i+1, act.Label)
	}
	a.con.Printf("\n")

	line, err := a.read()
	if err != nil {
		return err
	}
	if a.conv == nil { // role or language switched
		return nil
	}

	var reply client.Message
	switch {
	case line == "":
		return nil
	case line == "b":
		a.flow.Back(ctx)
		a.conv = nil
		return nil
	default:
		if i, ok := pick(line, len(actions)); ok {
			reply, err = a.conv.Do(ctx, actions[i])
		} else {
			reply, err = a.conv.Send(ctx, line)
		}
	}
	if err != nil && reply.Text == "" {
		return a.fail(ctx, err)
	}
	a.con.Printf("\n%s\n\n", reply.Text)
	return nil
}

// fail reports a recoverable error and lets the user go on.
func (a *app) fail(ctx context.Context, err error) error {
	a.con.Printf("error: %v\n", err)
	line, rerr := a.read()
	if rerr != nil {
		return rerr
	}
	if line == "b" {
		a.flow.Back(ctx)
	}
	return nil
}
