package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/hostpulse/hostpulse/internal/errors"
)

// Run executes a command in a fresh SSH session on the connection and
// returns its stdout. Each call serializes its own session; the caller
// is responsible for never overlapping calls on one Client.
func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	session, err := c.NewSession()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConnect,
			fmt.Sprintf("Couldn't open a session on %s", c.Address),
			"The connection may have dropped. It will be re-established on the next try.")
	}
	defer session.Close()

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := session.Output(cmd)
		done <- result{output, err}
	}()

	select {
	case <-ctx.Done():
		// Tear the session down so the remote command doesn't linger.
		session.Close()
		<-done
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			var exitErr *ssh.ExitError
			if stderrors.As(res.err, &exitErr) {
				return "", errors.New(errors.ErrExec,
					fmt.Sprintf("Command exited with status %d on %s", exitErr.ExitStatus(), c.Address),
					"Check the command works when run over plain ssh.")
			}
			return "", res.err
		}
		return strings.TrimRight(string(res.output), "\n"), nil
	}
}
