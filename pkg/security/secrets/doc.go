/*
Package secrets resolves the gateway's token signing secret.

Three sources are supported and chosen from configuration in this order:

  - auth.secret: an inline value (development only)
  - auth.secret_file: a file with 0600 or 0400 permissions, optionally
    watched with fsnotify and reloaded on change
  - auth.secret_env: an environment variable, JWT_SECRET by default

Whatever the source, a secret shorter than auth.min_secret_length is a fatal
startup error (ErrSecretTooShort). A watched file that is rewritten with a
short or unreadable secret is ignored and the previous secret stays active.

# Basic Usage

	src, err := secrets.FromConfig(&cfg.Auth)
	if err != nil {
		return err
	}
	defer src.Close()

	validator := auth.NewValidator(src, cfg.Auth.Algorithms)

# Rotation

With watch_secret enabled, replacing the file contents rotates the secret
without a restart. Tokens signed with the old secret stop validating as soon
as the reload completes.
*/
package secrets
