package commands

import (
	"fmt"

	"git.home.luguber.info/inful/portfolio/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println("portfolio " + version.String())
	return nil
}
