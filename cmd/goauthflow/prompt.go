package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
)

const (
	cmdBack   = ":back"
	cmdResend = ":resend"
	cmdWait   = ":wait"
	cmdQuit   = ":quit"
)

// errInputClosed is returned by drive when stdin ends before the flow does.
var errInputClosed = errors.New("input closed")

// drive reads one line per prompt and feeds it to ctrl until the flow
// completes, the user quits, or in runs out. It reports whether a session
// was established.
func drive(ctx context.Context, ctrl *goAuthFlow.Controller, in *bufio.Scanner, out io.Writer) (bool, error) {
	lastHeading := ""
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		state := ctrl.State()
		msg := ctrl.Messages()
		if heading := msg.Title + "\n" + msg.Description; heading != lastHeading {
			fmt.Fprintf(out, "\n%s\n%s\n", msg.Title, msg.Description)
			lastHeading = heading
		}

		line, ok := prompt(in, out, promptFor(state, ctrl))
		if !ok {
			return false, errInputClosed
		}

		switch line {
		case cmdQuit:
			return false, nil
		case cmdBack:
			ctrl.Back()
			continue
		case cmdWait:
			wait(ctx, ctrl, out)
			continue
		case cmdResend:
			if _, err := ctrl.Resend(ctx); err != nil {
				report(out, err)
			} else {
				fmt.Fprintln(out, "A new code is on its way.")
			}
			continue
		}

		var (
			res goAuthFlow.Result
			err error
		)
		switch state.Step {
		case goAuthFlow.StepIdentifier:
			res, err = ctrl.SubmitIdentifier(ctx, line)
		case goAuthFlow.StepOtp:
			res, err = ctrl.SubmitOtp(ctx, line)
		case goAuthFlow.StepPassword:
			input := goAuthFlow.PasswordInput{Password: line}
			if state.Variant == goAuthFlow.VariantSignup {
				printRequirements(out, ctrl.Requirements(line))
				confirm, ok := prompt(in, out, "Confirm password: ")
				if !ok {
					return false, errInputClosed
				}
				input.Confirm = confirm
			}
			res, err = ctrl.SubmitPassword(ctx, input)
		}

		if err != nil {
			report(out, err)
			continue
		}
		if res.Completed {
			fmt.Fprintln(out, "You're signed in.")
			return true, nil
		}
	}
}

func promptFor(s goAuthFlow.State, ctrl *goAuthFlow.Controller) string {
	switch s.Step {
	case goAuthFlow.StepOtp:
		if left := ctrl.Cooldown().Remaining(); left > 0 {
			return fmt.Sprintf("Code (resend in %ds): ", left)
		}
		return "Code (or :resend): "
	case goAuthFlow.StepPassword:
		return "Password: "
	default:
		return "Email or mobile number: "
	}
}

func prompt(in *bufio.Scanner, out io.Writer, label string) (string, bool) {
	fmt.Fprint(out, label)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

// wait prints the resend countdown until it reaches zero.
func wait(ctx context.Context, ctrl *goAuthFlow.Controller, out io.Writer) {
	if ctrl.State().Step != goAuthFlow.StepOtp {
		fmt.Fprintln(out, "No code has been sent.")
		return
	}
	for left := range ctrl.Cooldown().Watch(ctx) {
		if left == 0 {
			fmt.Fprintln(out, "You can request a new code now.")
			return
		}
		fmt.Fprintf(out, "\rResend available in %2ds", left)
	}
	fmt.Fprintln(out)
}

func printRequirements(out io.Writer, r goAuthFlow.PasswordRequirements) {
	rows := []struct {
		ok    bool
		label string
	}{
		{r.HasMinLength, "at least 8 characters"},
		{r.HasUppercase, "an uppercase letter"},
		{r.HasLowercase, "a lowercase letter"},
		{r.HasNumber, "a number"},
		{r.HasSpecialChar, "a special character"},
	}
	for _, row := range rows {
		mark := " "
		if row.ok {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %s\n", mark, row.label)
	}
}

func report(out io.Writer, err error) {
	var ae *goAuthFlow.AuthError
	if errors.As(err, &ae) {
		fmt.Fprintf(out, "Error: %s\n", ae.Message)
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
