package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/daybell/internal/cli"
	"github.com/julianstephens/daybell/internal/keyring"
	"github.com/julianstephens/daybell/internal/storage/postgres"
)

type KeyringFlags struct {
	Transcription bool `help:"Operate on the transcription API key instead of the database connection string."`
}

func (f KeyringFlags) user() string {
	if f.Transcription {
		return keyring.Users[1]
	}
	return keyring.Users[0]
}

func (f KeyringFlags) label() string {
	if f.Transcription {
		return "Transcription API key"
	}
	return "Connection string"
}

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	KeyringFlags
	Secret string `arg:"" help:"PostgreSQL connection string, or the API key with --transcription."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !cmd.Transcription {
		if !cli.IsPostgres(cmd.Secret) {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if _, err := postgres.ValidateConnString(cmd.Secret); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			ctx.Printf("⚠️  Warning: Connection string contains embedded credentials.\n")
			ctx.Printf("   It will be stored as-is in the encrypted OS keyring.\n")
		}
	}

	if err := keyring.Set(cmd.user(), cmd.Secret); err != nil {
		return err
	}
	ctx.Printf("✓ %s stored successfully in OS keyring\n", cmd.label())
	return nil
}

// KeyringGetCmd shows a stored secret with passwords masked
type KeyringGetCmd struct {
	KeyringFlags
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	secret, err := keyring.Get(cmd.user())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring. Use 'daybell keyring set' to store one", cmd.label())
		}
		return err
	}
	if cmd.Transcription {
		ctx.Printf("%s\n", maskKey(secret))
	} else {
		ctx.Printf("%s\n", maskPassword(secret))
	}
	return nil
}

// KeyringDeleteCmd removes a stored secret
type KeyringDeleteCmd struct {
	KeyringFlags
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.Delete(cmd.user()); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", cmd.label())
		}
		return err
	}
	ctx.Printf("✓ %s deleted from OS keyring\n", cmd.label())
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Printf("❌ OS keyring is not available on this system\n")
		return errors.New("keyring unavailable")
	}
	ctx.Printf("✓ OS keyring is available\n")
	for _, f := range []KeyringFlags{{}, {Transcription: true}} {
		if _, err := keyring.Get(f.user()); err == nil {
			ctx.Printf("✓ %s is stored in keyring\n", f.label())
		} else {
			ctx.Printf("ℹ No %s stored in keyring\n", f.label())
		}
	}
	return nil
}
