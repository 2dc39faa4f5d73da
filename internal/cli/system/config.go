package system

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/daybell/internal/cli"
)

type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(ctx *cli.Context) error {
	ctx.Printf("%s\n", ctx.ConfigPath)
	return nil
}

// ConfigShowCmd prints the effective configuration. Secrets are omitted.
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	shown := *ctx.Config
	shown.Store = maskPassword(shown.Store)
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	ctx.Printf("# %s\n%s", ctx.ConfigPath, data)
	return nil
}
