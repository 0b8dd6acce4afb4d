package mail

// Account is one sender identity on the relay. Immutable after startup;
// the slice handed to the dispatcher must already be ranked ascending by
// priority (config.Load does this).
type Account struct {
	Address    string
	Password   string
	Priority   int
	DailyLimit int
}

// Relay describes the shared mail-relay endpoint all accounts dial.
type Relay struct {
	Host               string
	Port               int
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
	FromName           string
}
