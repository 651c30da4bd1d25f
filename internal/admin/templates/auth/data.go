package auth

import "time"

// LoginPageData encapsulates rendering state for the admin login screen.
type LoginPageData struct {
	Email       string
	Message     string
	Error       string
	Remember    bool
	Next        string
	LoginPath   string
	BasePath    string
	CSRFToken   string
	Environment string
}

// LoginConfirmationData drives the page shown after a successful login,
// which replaces itself with Target once Delay has elapsed.
type LoginConfirmationData struct {
	Message     string
	Target      string
	Delay       time.Duration
	Environment string
}
