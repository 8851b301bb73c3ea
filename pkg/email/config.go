package email

// Config holds email delivery settings. Without Postmark tokens the portal
// falls back to DevSender, which writes messages to DevDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"EMAIL_SENDER" envDefault:"no-reply@gpportal.local"`
	SupportEmail         string `env:"EMAIL_SUPPORT" envDefault:"support@gpportal.local"`
	// OperatorEmail receives operational alerts such as catalog drift.
	OperatorEmail string `env:"EMAIL_OPERATOR"`
	DevDir        string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

// UsePostmark reports whether both Postmark tokens are configured.
func (c Config) UsePostmark() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}
