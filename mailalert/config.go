package mailalert

import "time"

// Config defines configuration options for the mailalert package.
// It is used both by the one-shot senders' batching counterpart (Core)
// and can be loaded through cfgloader with the usual yaml/default/validate tags.
type Config struct {
	// FromAddr is the address alerts are sent from. It is also the
	// username for SMTP authentication.
	FromAddr string `yaml:"from_addr" validate:"required"`

	// ToAddrs is the list of recipient addresses. At least one is required.
	ToAddrs []string `yaml:"to_addrs" validate:"required,min=1"`

	// SubjectPrefix is prepended to every alert subject (e.g. "[ALERT]").
	SubjectPrefix string `yaml:"subject_prefix" default:"[ALERT]"`

	// PasswordFile is the path to the SMTP password file, resolved
	// relative to the user's home directory. The stripped file contents
	// is used as the password.
	PasswordFile string `yaml:"password_file" validate:"required" mask:"true"`

	// SMTPHost is the mail submission server hostname.
	SMTPHost string `yaml:"smtp_host" validate:"required"`

	// SMTPPort is the mail submission server port.
	SMTPPort int `yaml:"smtp_port" default:"587"`

	// MaxBatchSize is the number of captured entries that triggers an
	// immediate flush. Zero means unlimited: entries accumulate until an
	// explicit Sync or Close.
	MaxBatchSize int `yaml:"max_batch_size"`

	// SendTimeout bounds how long a shutdown-triggered flush waits for
	// the in-flight send before abandoning it.
	SendTimeout time.Duration `yaml:"send_timeout" default:"30s"`

	// MinLevel is the minimum log level the handler captures.
	MinLevel string `yaml:"min_level" validate:"oneof=debug info warn error dpanic panic fatal" default:"error"`
}
