package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/auth"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// HashPasswordCmd implements the 'hash-password' command.
type HashPasswordCmd struct {
	Password string `arg:"" optional:"" help:"Password to hash (read from stdin when omitted)"`
}

func (h *HashPasswordCmd) Run() error {
	return RunHashPassword(h.Password, os.Stdin, os.Stdout)
}

// RunHashPassword writes the bcrypt hash of password to out. An empty
// password is read from the first line of in.
func RunHashPassword(password string, in io.Reader, out io.Writer) error {
	if password == "" {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return derrors.WrapError(err, derrors.CategoryValidation, "read password").Build()
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return derrors.ValidationError("password must not be empty").Build()
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
