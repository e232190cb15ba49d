package telegram

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// Prompter asks the operator for login secrets.
type Prompter interface {
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
}

// TerminalPrompter reads answers line by line.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *TerminalPrompter) Code(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter the code you received: ")
}

func (p *TerminalPrompter) Password(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter your 2FA password: ")
}

func (p *TerminalPrompter) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// userAuth drives the phone code login. The 2FA password comes from the
// configuration when set, otherwise from the prompter.
type userAuth struct {
	phone    string
	password string
	prompt   Prompter
}

var _ auth.UserAuthenticator = userAuth{}

func (a userAuth) Phone(_ context.Context) (string, error) {
	return a.phone, nil
}

func (a userAuth) Password(ctx context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	if a.prompt == nil {
		return "", auth.ErrPasswordNotProvided
	}
	return a.prompt.Password(ctx)
}

func (a userAuth) Code(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
	if a.prompt == nil {
		return "", ErrNotAuthorized
	}
	return a.prompt.Code(ctx)
}

func (a userAuth) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a userAuth) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("signing up new accounts is not supported")
}
